package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbush/tabr/internal/adapters/kvstore"
	"github.com/devbush/tabr/internal/domain"
)

func newTestPreloader(prober *fakeProber) (*Preloader, *PhotoCacheService) {
	cache := NewPhotoCacheService(kvstore.NewMemoryStore())
	if prober == nil {
		prober = &fakeProber{}
	}
	return NewPreloader(cache, prober, 2, nil), cache
}

func TestPreloader_FullTopUpFillsToCapacity(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)

	current := photo("current")
	provider := newFakeProvider(domain.ProviderUnsplash,
		current, photo("a"), photo("a"), photo("b"), photo("c"))

	added, err := pre.TopUp(ctx, provider, current.URL, TopUpFull)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	queued, err := cache.Preloaded(ctx, domain.ProviderUnsplash)
	require.NoError(t, err)
	assert.Equal(t, urls([]domain.Photo{photo("a"), photo("b")}), urls(queued))
	assert.Equal(t, 4, provider.Calls(), "current and duplicate candidates are refetched")
}

func TestPreloader_IncrementalAddsAtMostOne(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)
	provider := newFakeProvider(domain.ProviderUnsplash)

	added, err := pre.TopUp(ctx, provider, "", TopUpIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	queued, _ := cache.Preloaded(ctx, domain.ProviderUnsplash)
	assert.Len(t, queued, 1)
	assert.Equal(t, 1, provider.Calls())
}

func TestPreloader_NewPhotosGoAheadOfExisting(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)

	_, err := cache.MergePreloaded(ctx, domain.ProviderUnsplash, []domain.Photo{photo("old")}, "", 2)
	require.NoError(t, err)

	provider := newFakeProvider(domain.ProviderUnsplash, photo("old"), photo("new"))
	added, err := pre.TopUp(ctx, provider, "", TopUpFull)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	queued, _ := cache.Preloaded(ctx, domain.ProviderUnsplash)
	assert.Equal(t, urls([]domain.Photo{photo("new"), photo("old")}), urls(queued))
}

func TestPreloader_FullQueueFetchesNothing(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)

	_, err := cache.MergePreloaded(ctx, domain.ProviderUnsplash, []domain.Photo{photo("a"), photo("b")}, "", 2)
	require.NoError(t, err)

	provider := newFakeProvider(domain.ProviderUnsplash)
	added, err := pre.TopUp(ctx, provider, "", TopUpFull)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, provider.Calls())
}

func TestPreloader_GivesUpAfterFiveDuplicates(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)

	current := photo("current")
	provider := newFakeProvider(domain.ProviderUnsplash)
	provider.RepeatForever(current)

	added, err := pre.TopUp(ctx, provider, current.URL, TopUpIncremental)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 5, provider.Calls())

	queued, _ := cache.Preloaded(ctx, domain.ProviderUnsplash)
	assert.Empty(t, queued)
}

func TestPreloader_FallbackEndsRound(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)

	provider := newFakeProvider(domain.ProviderPixabay,
		photo("x").WithError(domain.ErrorNoKey))

	added, err := pre.TopUp(ctx, provider, "", TopUpFull)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 1, provider.Calls())

	queued, _ := cache.Preloaded(ctx, domain.ProviderPixabay)
	assert.Empty(t, queued)
}

func TestPreloader_DropsFailedProbes(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{reject: map[string]bool{photo("broken").URL: true}}
	pre, cache := newTestPreloader(prober)

	provider := newFakeProvider(domain.ProviderUnsplash, photo("broken"), photo("fine"))
	added, err := pre.TopUp(ctx, provider, "", TopUpFull)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	queued, _ := cache.Preloaded(ctx, domain.ProviderUnsplash)
	assert.Equal(t, []string{photo("fine").URL}, urls(queued))
	assert.ElementsMatch(t, []string{photo("broken").URL, photo("fine").URL}, prober.Probed())
}

func TestPreloader_CancelledContextDoesNotMerge(t *testing.T) {
	pre, cache := newTestPreloader(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := newFakeProvider(domain.ProviderUnsplash)
	added, err := pre.TopUp(ctx, provider, "", TopUpFull)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, added)

	queued, _ := cache.Preloaded(context.Background(), domain.ProviderUnsplash)
	assert.Empty(t, queued)
}

func TestPreloader_QueueInvariants(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)
	current := photo("gen-1")

	provider := newFakeProvider(domain.ProviderUnsplash,
		photo("a"), photo("a"), current, photo("b"), photo("a"), photo("c"))

	for i := 0; i < 3; i++ {
		_, err := pre.TopUp(ctx, provider, current.URL, TopUpFull)
		require.NoError(t, err)
		_, err = cache.TakePreloaded(ctx, domain.ProviderUnsplash)
		require.NoError(t, err)
	}
	_, err := pre.TopUp(ctx, provider, current.URL, TopUpFull)
	require.NoError(t, err)

	queued, _ := cache.Preloaded(ctx, domain.ProviderUnsplash)
	assert.LessOrEqual(t, len(queued), 2)
	seen := map[string]bool{}
	for _, q := range queued {
		assert.NotEqual(t, current.URL, q.URL)
		assert.False(t, seen[q.URL], "duplicate %s", q.URL)
		seen[q.URL] = true
	}
}

func TestPreloader_DropsQueuedCurrentPhoto(t *testing.T) {
	ctx := context.Background()
	pre, cache := newTestPreloader(nil)
	assert.Equal(t, 2, pre.Capacity())

	require.NoError(t, cache.SetPreloaded(ctx, domain.ProviderPixabay, []domain.Photo{photo("shown"), photo("b")}))

	provider := newFakeProvider(domain.ProviderPixabay, photo("n"))
	added, err := pre.TopUp(ctx, provider, photo("shown").URL, TopUpFull)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	queued, _ := cache.Preloaded(ctx, domain.ProviderPixabay)
	assert.Equal(t, urls([]domain.Photo{photo("n"), photo("b")}), urls(queued))
}

func TestPreloader_JoinedTopUpExcludesOwnCurrentPhoto(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	pre, cache := newTestPreloader(prober)

	// The first run queues c while the second caller already shows c.
	provider := newFakeProvider(domain.ProviderUnsplash, photo("c"))

	type result struct {
		added int
		err   error
	}
	first := make(chan result, 1)
	go func() {
		added, err := pre.TopUp(ctx, provider, photo("a").URL, TopUpIncremental)
		first <- result{added, err}
	}()
	<-prober.started

	second := make(chan result, 1)
	go func() {
		added, err := pre.TopUp(ctx, provider, photo("c").URL, TopUpFull)
		second <- result{added, err}
	}()
	// Give the second caller time to join the in-flight run.
	time.Sleep(50 * time.Millisecond)
	close(prober.gate)

	r1 := <-first
	require.NoError(t, r1.err)
	assert.Equal(t, 1, r1.added)

	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, 2, r2.added)

	queued, err := cache.Preloaded(ctx, domain.ProviderUnsplash)
	require.NoError(t, err)
	assert.Len(t, queued, 2, "full top-up fills to capacity")
	assert.NotContains(t, urls(queued), photo("c").URL)
}

func TestTopUpMode_String(t *testing.T) {
	assert.Equal(t, "full", TopUpFull.String())
	assert.Equal(t, "incremental", TopUpIncremental.String())
}
