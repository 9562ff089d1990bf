package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/devbush/tabr/internal/domain"
)

// fakeProvider returns scripted photos, then numbered unique ones
type fakeProvider struct {
	id domain.ProviderID

	mu        sync.Mutex
	script    []domain.Photo
	repeat    *domain.Photo // returned forever once the script is used up
	calls     int
	skipCalls int
	generated int
}

func newFakeProvider(id domain.ProviderID, script ...domain.Photo) *fakeProvider {
	return &fakeProvider{id: id, script: script}
}

func (f *fakeProvider) ID() domain.ProviderID {
	return f.id
}

func (f *fakeProvider) FetchPhoto(ctx context.Context, skipCache bool) domain.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if skipCache {
		f.skipCalls++
	}
	if len(f.script) > 0 {
		p := f.script[0]
		f.script = f.script[1:]
		return p
	}
	if f.repeat != nil {
		return *f.repeat
	}
	f.generated++
	return photo(fmt.Sprintf("%s-gen-%d", f.id, f.generated))
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) RepeatForever(p domain.Photo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repeat = &p
}

// fakeProber accepts every URL except those listed in reject. With gate set,
// each probe signals started and blocks until gate is closed.
type fakeProber struct {
	mu     sync.Mutex
	reject map[string]bool
	probed []string

	gate    chan struct{}
	started chan struct{}
}

func (p *fakeProber) Probe(ctx context.Context, url string) bool {
	if p.gate != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
		<-p.gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, url)
	return !p.reject[url]
}

func (p *fakeProber) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

func photo(name string) domain.Photo {
	return domain.Photo{
		URL:              "https://img.test/" + name + ".jpg",
		PhotographerName: "Photographer " + name,
		PhotographerLink: "https://img.test/u/" + name,
		OriginalLink:     "https://img.test/p/" + name,
	}
}

func urls(photos []domain.Photo) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.URL
	}
	return out
}
