// Package reviewkit decides when to ask a user for an app-store review and
// describes the dialog to show.
//
//	r, err := reviewkit.New(ctx, reviewkit.WithAppID("123456789"))
//	if d, _ := r.RequestPrompt(ctx); d != nil {
//		// render d, then call r.OnReview, r.OnRememberLater or r.OnDecline
//	}
package reviewkit

import (
	"context"
	"log/slog"
	"time"

	mem "reviewkit/adapters/memory"
	"reviewkit/core"
	"reviewkit/engine"
	"reviewkit/i18n"
	"reviewkit/integrations/opener"
	"reviewkit/realtime"
)

// Option configures the reviewer builder.
type Option func(*config)

type config struct {
	storage   engine.Storage
	opener    engine.URLOpener
	localizer engine.Localizer
	mode      engine.DispatchMode
	bus       *engine.EventBus
	hub       *realtime.Hub
	handlers  []engine.Handler
	logger    *slog.Logger
	clock     func() time.Time
	namespace string
	settings  core.Settings
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithOpener sets the store URL launcher.
func WithOpener(o engine.URLOpener) Option { return func(c *config) { c.opener = o } }

// WithLocalizer replaces the embedded catalogs.
func WithLocalizer(l engine.Localizer) Option { return func(c *config) { c.localizer = l } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithEventBus shares an existing bus instead of creating one.
func WithEventBus(b *engine.EventBus) Option { return func(c *config) { c.bus = b } }

// WithRealtime wires a realtime hub to receive all review events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithEventHandler subscribes h to every review event.
func WithEventHandler(h engine.Handler) Option {
	return func(c *config) { c.handlers = append(c.handlers, h) }
}

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

func WithClock(now func() time.Time) Option { return func(c *config) { c.clock = now } }

// WithInstallation scopes all keys to one installation of a shared store.
func WithInstallation(id string) Option { return func(c *config) { c.namespace = id } }

// WithSettings replaces all settings at once.
func WithSettings(s core.Settings) Option { return func(c *config) { c.settings = s } }

func WithAppID(id string) Option { return func(c *config) { c.settings.AppID = id } }

// WithDevelopmentMode makes every eligibility check succeed.
func WithDevelopmentMode(on bool) Option {
	return func(c *config) { c.settings.DevelopmentMode = on }
}

func WithDaysUntilFirstRequest(days int) Option {
	return func(c *config) { c.settings.DaysUntilFirstRequest = days }
}

func WithDaysUntilRemember(days int) Option {
	return func(c *config) { c.settings.DaysUntilRemember = days }
}

// WithTexts sets explicit dialog strings; empty fields stay localized.
func WithTexts(t core.Texts) Option { return func(c *config) { c.settings.Texts = t } }

func WithLocale(locale string) Option { return func(c *config) { c.settings.Locale = locale } }

// WithStoreURLTemplate changes the review page URL, e.g. core.PlayStoreTemplate.
func WithStoreURLTemplate(tmpl string) Option {
	return func(c *config) { c.settings.StoreURLTemplate = tmpl }
}

func newConfig(opts []Option) *config {
	cfg := &config{mode: engine.DispatchSync, settings: core.DefaultSettings("")}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	if cfg.opener == nil {
		cfg.opener = opener.NewSystem(cfg.logger)
	}
	if cfg.localizer == nil {
		cfg.localizer = i18n.Default()
	}
	if cfg.settings.Locale == "" {
		cfg.settings.Locale = i18n.SystemLocale()
	}
	if cfg.bus == nil {
		cfg.bus = engine.NewEventBus(cfg.mode)
		if cfg.hub != nil {
			cfg.hub.Attach(cfg.bus)
		}
		for _, h := range cfg.handlers {
			cfg.bus.SubscribeAll(h)
		}
	}
	return cfg
}

func (c *config) dependencies(namespace string) engine.Dependencies {
	return engine.Dependencies{
		Storage:   c.storage,
		Opener:    c.opener,
		Localizer: c.localizer,
		Bus:       c.bus,
		Logger:    c.logger,
		Clock:     c.clock,
		Namespace: namespace,
	}
}

// New builds a reviewer. If not provided, defaults are used:
//   - storage: in-memory
//   - opener: the platform URL launcher
//   - texts: embedded catalogs in the system locale
//   - dispatch: sync
//
// A missing app id is accepted here and reported by OnReview.
func New(ctx context.Context, opts ...Option) (*engine.Reviewer, error) {
	cfg := newConfig(opts)
	return engine.NewReviewer(ctx, cfg.dependencies(cfg.namespace), cfg.settings)
}

// MustNew is New for program start-up: it panics on storage errors and on a
// missing or malformed store URL configuration.
func MustNew(ctx context.Context, opts ...Option) *engine.Reviewer {
	r, err := New(ctx, opts...)
	if err != nil {
		panic(err)
	}
	if _, err := r.StoreURL(); err != nil {
		panic(err)
	}
	return r
}
