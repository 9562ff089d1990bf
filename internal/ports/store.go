package ports

import "context"

// Tier selects one of the two storage areas
type Tier string

const (
	// TierSync holds small user preferences (provider choice, API keys)
	TierSync Tier = "sync"
	// TierLocal holds larger payloads (caches, favorites, mode flags)
	TierLocal Tier = "local"
)

// KVStore is a durable key/value blob store split into tiers.
// Missing keys are simply absent from Get results.
type KVStore interface {
	Get(ctx context.Context, tier Tier, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, tier Tier, values map[string][]byte) error
	Remove(ctx context.Context, tier Tier, keys []string) error
}
