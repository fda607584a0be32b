package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reviewkit/core"
	"reviewkit/i18n"
)

// Dependencies are the collaborators of a Reviewer. Only Storage is required.
type Dependencies struct {
	Storage   Storage
	Opener    URLOpener
	Localizer Localizer
	Bus       *EventBus
	Logger    *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Namespace scopes every key to one installation; empty for a single-user store.
	Namespace string
}

// Reviewer decides when to ask for a review, describes the dialog and
// applies the user's choice. It performs one load and at most one save per
// call and adds no locking of its own.
type Reviewer struct {
	repo      *StateRepository
	settings  core.Settings
	opener    URLOpener
	localizer Localizer
	bus       *EventBus
	log       *slog.Logger
	clock     func() time.Time
	namespace string
}

// NewReviewer persists the configuration values and, when no reminder date
// is stored yet, marks the installation as first use starting now. Unset
// day counts default to 15 and an empty locale to the system locale.
func NewReviewer(ctx context.Context, deps Dependencies, settings core.Settings) (*Reviewer, error) {
	if deps.Storage == nil {
		return nil, errors.New("reviewer requires a storage")
	}
	if settings.Locale == "" {
		settings.Locale = i18n.SystemLocale()
	}
	r := &Reviewer{
		repo:      NewStateRepository(deps.Storage, deps.Namespace),
		settings:  settings.Normalize(),
		opener:    deps.Opener,
		localizer: deps.Localizer,
		bus:       deps.Bus,
		log:       deps.Logger,
		clock:     deps.Clock,
		namespace: deps.Namespace,
	}
	if r.opener == nil {
		r.opener = nopOpener{}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if err := r.initialize(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reviewer) initialize(ctx context.Context) error {
	st, err := r.repo.Load(ctx)
	if err != nil {
		return err
	}
	firstRun := !st.HasReminder()
	st = core.Initialize(r.settings.Apply(st), r.clock())
	extra := map[string]string{
		core.KeyAppID:  r.settings.AppID,
		core.KeyLocale: r.settings.Locale,
	}
	if err := r.repo.Save(ctx, st, extra); err != nil {
		return err
	}
	if firstRun {
		r.log.Debug("review state initialized", "installation", r.namespace, "first_use_at", st.LastReminder)
	}
	return nil
}

// Settings returns the normalized settings the reviewer was built with.
func (r *Reviewer) Settings() core.Settings { return r.settings }

// Installation returns the namespace the reviewer's keys live under.
func (r *Reviewer) Installation() string { return r.namespace }

// WithLocale returns a reviewer over the same state that resolves dialog
// texts for locale.
func (r *Reviewer) WithLocale(locale string) *Reviewer {
	if locale == "" || locale == r.settings.Locale {
		return r
	}
	c := *r
	c.settings.Locale = locale
	return &c
}

// State returns the persisted review state.
func (r *Reviewer) State(ctx context.Context) (core.ReviewState, error) {
	return r.repo.Load(ctx)
}

// ShouldPrompt evaluates the eligibility policy at the current time.
func (r *Reviewer) ShouldPrompt(ctx context.Context) (bool, error) {
	st, err := r.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	return core.ShouldPrompt(st, r.clock()), nil
}

// NextPromptAt reports when the installation becomes eligible again.
func (r *Reviewer) NextPromptAt(ctx context.Context) (time.Time, bool, error) {
	st, err := r.repo.Load(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	at, ok := core.NextPromptAt(st)
	return at, ok, nil
}

// RequestPrompt returns the dialog to render, or nil when the user must not
// be asked now. Dismissing the dialog without a choice needs no call.
func (r *Reviewer) RequestPrompt(ctx context.Context) (*core.PromptDecision, error) {
	ok, err := r.ShouldPrompt(ctx)
	if err != nil || !ok {
		return nil, err
	}
	d := core.NewPromptDecision(r.Texts(), r.settings.Locale)
	r.publish(ctx, core.NewPromptShown(r.clock(), r.namespace, r.settings.AppID))
	return &d, nil
}

// AskToReview calls present with the dialog when eligible and reports
// whether it did.
func (r *Reviewer) AskToReview(ctx context.Context, present func(core.PromptDecision) error) (bool, error) {
	d, err := r.RequestPrompt(ctx)
	if err != nil || d == nil {
		return false, err
	}
	if present != nil {
		if err := present(*d); err != nil {
			return false, fmt.Errorf("present review prompt: %w", err)
		}
	}
	return true, nil
}

// Texts resolves the dialog strings: explicit settings first, then the
// localizer for the configured locale.
func (r *Reviewer) Texts() core.Texts {
	t := r.settings.Texts
	pick := func(explicit, key string) string {
		if explicit != "" || r.localizer == nil {
			return explicit
		}
		return r.localizer.String(key, r.settings.Locale)
	}
	return core.Texts{
		Title:          pick(t.Title, core.KeyAlertTitle),
		Message:        pick(t.Message, core.KeyAlertMessage),
		ReviewAction:   pick(t.ReviewAction, core.KeyReviewAction),
		RememberAction: pick(t.RememberAction, core.KeyRememberAction),
		DeclineAction:  pick(t.DeclineAction, core.KeyDeclineAction),
	}
}

// StoreURL returns the review page URL for the configured app id.
func (r *Reviewer) StoreURL() (string, error) {
	return core.StoreURL(r.settings.StoreURLTemplate, r.settings.AppID)
}

// OnReview marks the installation reviewed and opens the store page. A
// missing app id fails with a *core.ConfigurationError before any state
// changes; failing to open the page does not.
func (r *Reviewer) OnReview(ctx context.Context) error {
	storeURL, err := r.StoreURL()
	if err != nil {
		return err
	}
	if err := r.decide(ctx, core.ActionReview, core.Review); err != nil {
		return err
	}
	r.open(ctx, storeURL)
	return nil
}

// OnRememberLater postpones the prompt by the remember threshold.
func (r *Reviewer) OnRememberLater(ctx context.Context) error {
	return r.decide(ctx, core.ActionRememberLater, core.RememberLater)
}

// OnDecline permanently opts the user out.
func (r *Reviewer) OnDecline(ctx context.Context) error {
	return r.decide(ctx, core.ActionDecline, core.Decline)
}

// Handle dispatches a dialog choice to its handler.
func (r *Reviewer) Handle(ctx context.Context, action core.Action) error {
	switch action {
	case core.ActionReview:
		return r.OnReview(ctx)
	case core.ActionRememberLater:
		return r.OnRememberLater(ctx)
	case core.ActionDecline:
		return r.OnDecline(ctx)
	}
	return fmt.Errorf("%w: %q", core.ErrUnknownAction, action)
}

// Reset wipes the stored state and starts a new first-use period.
func (r *Reviewer) Reset(ctx context.Context) error {
	if err := r.repo.Clear(ctx); err != nil {
		return err
	}
	return r.initialize(ctx)
}

func (r *Reviewer) decide(ctx context.Context, action core.Action, transition func(core.ReviewState, time.Time) core.ReviewState) error {
	st, err := r.repo.Load(ctx)
	if err != nil {
		return err
	}
	now := r.clock()
	next := transition(st, now)
	if err := r.repo.Save(ctx, next, nil); err != nil {
		return err
	}
	r.log.Debug("review decision recorded", "installation", r.namespace, "action", action)
	r.publish(ctx, core.NewDecision(action, now, r.namespace, r.settings.AppID))
	return nil
}

func (r *Reviewer) open(ctx context.Context, storeURL string) {
	if !r.opener.CanOpen(ctx, storeURL) {
		r.log.Warn("store url cannot be opened", "url", storeURL)
		r.publish(ctx, core.NewStoreOpenFailed(r.clock(), r.namespace, r.settings.AppID, storeURL, errors.New("no handler for url")))
		return
	}
	if err := r.opener.Open(ctx, storeURL); err != nil {
		r.log.Warn("failed to open store url", "url", storeURL, "error", err)
		r.publish(ctx, core.NewStoreOpenFailed(r.clock(), r.namespace, r.settings.AppID, storeURL, err))
	}
}

func (r *Reviewer) publish(ctx context.Context, ev core.Event) {
	if r.bus != nil {
		r.bus.Publish(ctx, ev)
	}
}

type nopOpener struct{}

func (nopOpener) CanOpen(context.Context, string) bool { return false }
func (nopOpener) Open(context.Context, string) error   { return nil }
