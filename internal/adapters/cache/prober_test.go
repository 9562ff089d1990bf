package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProber(t *testing.T, timeout time.Duration) (*Prober, *FileCache) {
	t.Helper()
	images := NewFileCache(afero.NewMemMapFs(), "/images", time.Hour)
	return NewProber(nil, images, timeout, "tabr-test", nil), images
}

func TestProber_WarmsImage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "tabr-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg"))
	}))
	t.Cleanup(srv.Close)

	prober, images := newTestProber(t, time.Second)
	ctx := context.Background()
	url := srv.URL + "/photo.jpg"

	assert.True(t, prober.Probe(ctx, url))
	assert.True(t, prober.Probe(ctx, url), "second probe is served from memory")
	assert.Equal(t, int32(1), hits.Load())

	cached, err := images.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cached.Size)
}

func TestProber_UsesDiskCache(t *testing.T) {
	prober, images := newTestProber(t, time.Second)
	ctx := context.Background()

	_, err := images.Put(ctx, "https://offline.example/a.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	assert.True(t, prober.Probe(ctx, "https://offline.example/a.jpg"))
}

func TestProber_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.jpg":
			http.NotFound(w, r)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		case "/slow.jpg":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}
	}))
	t.Cleanup(srv.Close)

	prober, _ := newTestProber(t, 100*time.Millisecond)
	ctx := context.Background()

	assert.False(t, prober.Probe(ctx, ""))
	assert.False(t, prober.Probe(ctx, srv.URL+"/missing.jpg"))
	assert.False(t, prober.Probe(ctx, srv.URL+"/page.html"))

	start := time.Now()
	assert.False(t, prober.Probe(ctx, srv.URL+"/slow.jpg"))
	assert.Less(t, time.Since(start), time.Second, "probe resolves within its timeout")
}
