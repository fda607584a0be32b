package reviewkit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"reviewkit/core"
	"reviewkit/engine"
)

// ErrListingUnsupported is returned by List when the store cannot enumerate
// installations.
var ErrListingUnsupported = errors.New("storage cannot list installations")

// Installations hands out one reviewer per installation over a shared store,
// for servers that track many devices.
type Installations struct {
	cfg *config

	mu    sync.Mutex
	cache map[string]*engine.Reviewer
}

// NewInstallations applies opts once and reuses the resulting collaborators
// for every installation. WithInstallation is ignored.
func NewInstallations(opts ...Option) *Installations {
	return &Installations{cfg: newConfig(opts), cache: map[string]*engine.Reviewer{}}
}

// Bus returns the event bus shared by all reviewers.
func (p *Installations) Bus() *engine.EventBus { return p.cfg.bus }

// Settings returns the settings every installation is built with.
func (p *Installations) Settings() core.Settings { return p.cfg.settings.Normalize() }

// Get returns the reviewer for id, creating and initializing it on first use.
func (p *Installations) Get(ctx context.Context, id string) (*engine.Reviewer, error) {
	id, err := core.NormalizeInstallationID(id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.cache[id]; ok {
		return r, nil
	}
	r, err := engine.NewReviewer(ctx, p.cfg.dependencies(id), p.cfg.settings)
	if err != nil {
		return nil, err
	}
	p.cache[id] = r
	return r, nil
}

// Reset wipes the installation's state and starts a new first-use period.
func (p *Installations) Reset(ctx context.Context, id string) error {
	r, err := p.Get(ctx, id)
	if err != nil {
		return err
	}
	return r.Reset(ctx)
}

// List returns the ids of installations with stored state, sorted.
func (p *Installations) List(ctx context.Context) ([]string, error) {
	lister, ok := p.cfg.storage.(engine.InstallationLister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	ids, err := lister.Installations(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping reads a fixed key to check the store is reachable.
func (p *Installations) Ping(ctx context.Context) error {
	_, _, err := p.cfg.storage.Get(ctx, core.NamespacedKey("healthcheck", core.KeyReviewed))
	return err
}

// Cached reports how many reviewers are held in memory.
func (p *Installations) Cached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// Close stops the shared event bus.
func (p *Installations) Close() { p.cfg.bus.Close() }
