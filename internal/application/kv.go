package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devbush/tabr/internal/ports"
)

// loadJSON decodes key from tier into v, reporting whether the key existed.
func loadJSON(ctx context.Context, store ports.KVStore, tier ports.Tier, key string, v any) (bool, error) {
	values, err := store.Get(ctx, tier, []string{key})
	if err != nil {
		return false, err
	}
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", tier, key, err)
	}
	return true, nil
}

// saveJSON encodes v and stores it under key in tier.
func saveJSON(ctx context.Context, store ports.KVStore, tier ports.Tier, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", tier, key, err)
	}
	return store.Set(ctx, tier, map[string][]byte{key: raw})
}
