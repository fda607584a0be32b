package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "reviewkit/adapters/memory"
	"reviewkit/core"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingOpener struct {
	canOpen bool
	err     error
	opened  []string
}

func (o *recordingOpener) CanOpen(context.Context, string) bool { return o.canOpen }
func (o *recordingOpener) Open(_ context.Context, u string) error {
	o.opened = append(o.opened, u)
	return o.err
}

type mapLocalizer map[string]string

func (l mapLocalizer) String(key, _ string) string { return l[key] }

type failingStorage struct{ *mem.Store }

func (failingStorage) Save(context.Context, map[string]string) error {
	return errors.New("disk full")
}

func newTestReviewer(t *testing.T, store Storage, clock *fakeClock, opener URLOpener, mutate func(*core.Settings)) (*Reviewer, *EventBus) {
	t.Helper()
	settings := core.DefaultSettings("APPID")
	if mutate != nil {
		mutate(&settings)
	}
	bus := NewEventBus(DispatchSync)
	r, err := NewReviewer(context.Background(), Dependencies{
		Storage:   store,
		Opener:    opener,
		Localizer: mapLocalizer{core.KeyAlertTitle: "Review", core.KeyAlertMessage: "Are you enjoying the app? Give us a Review", core.KeyReviewAction: "Sure", core.KeyRememberAction: "Remember me later", core.KeyDeclineAction: "Don't remember me again"},
		Bus:       bus,
		Clock:     clock.Now,
	}, settings)
	require.NoError(t, err)
	return r, bus
}

func start() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func TestNewReviewerInitializesFirstUse(t *testing.T) {
	store := mem.New()
	clock := start()
	r, _ := newTestReviewer(t, store, clock, nil, nil)

	st, err := r.State(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsFirstUse)
	assert.False(t, st.Reviewed)
	assert.True(t, st.LastReminder.Equal(clock.now))
	assert.Equal(t, 15, st.DaysUntilFirstRequest)
	assert.Equal(t, 15, st.DaysUntilRemember)

	appID, ok, err := r.repo.Value(context.Background(), core.KeyAppID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "APPID", appID)
}

func TestNewReviewerFromZeroSettingsUsesDefaults(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "pt_BR.UTF-8")
	ctx := context.Background()
	clock := start()

	r, err := NewReviewer(ctx, Dependencies{Storage: mem.New(), Clock: clock.Now}, core.Settings{AppID: "APPID"})
	require.NoError(t, err)

	st, err := r.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultDaysUntilFirstRequest, st.DaysUntilFirstRequest)
	assert.Equal(t, core.DefaultDaysUntilRemember, st.DaysUntilRemember)
	assert.Equal(t, "pt-BR", r.Settings().Locale)

	clock.Advance(time.Hour)
	ok, err := r.ShouldPrompt(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(15 * core.Day)
	ok, err = r.ShouldPrompt(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSecondConstructionKeepsFirstUseDate(t *testing.T) {
	store := mem.New()
	clock := start()
	first := clock.now
	newTestReviewer(t, store, clock, nil, nil)

	clock.Advance(3 * core.Day)
	r, _ := newTestReviewer(t, store, clock, nil, nil)
	st, err := r.State(context.Background())
	require.NoError(t, err)
	assert.True(t, st.LastReminder.Equal(first), "reminder date must not be overwritten")
	assert.True(t, st.IsFirstUse)
}

func TestSecondConstructionAppliesNewSettings(t *testing.T) {
	store := mem.New()
	clock := start()
	newTestReviewer(t, store, clock, nil, nil)
	r, _ := newTestReviewer(t, store, clock, nil, func(s *core.Settings) {
		s.DaysUntilRemember = 30
		s.DevelopmentMode = true
	})
	st, err := r.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, st.DaysUntilRemember)
	assert.True(t, st.DevelopmentMode)
}

func TestRequestPromptFollowsFirstUseThreshold(t *testing.T) {
	clock := start()
	r, bus := newTestReviewer(t, mem.New(), clock, nil, nil)
	shown := 0
	bus.Subscribe(core.EventPromptShown, func(context.Context, core.Event) { shown++ })
	ctx := context.Background()

	clock.Advance(10 * core.Day)
	d, err := r.RequestPrompt(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	clock.Advance(10 * core.Day)
	d, err = r.RequestPrompt(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Review", d.Title)
	assert.Equal(t, "Are you enjoying the app? Give us a Review", d.Message)
	require.Len(t, d.Actions, 3)
	assert.Equal(t, "Sure", d.Actions[0].Title)
	assert.Equal(t, "Remember me later", d.Actions[1].Title)
	assert.Equal(t, core.StyleDestructive, d.Actions[2].Style)
	assert.Equal(t, 1, shown)

	// dismissal leaves state unchanged, so the user is asked again
	d, err = r.RequestPrompt(ctx)
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestExplicitTextsWinOverLocalizer(t *testing.T) {
	r, _ := newTestReviewer(t, mem.New(), start(), nil, func(s *core.Settings) {
		s.DevelopmentMode = true
		s.Texts.Title = "Rate us"
	})
	d, err := r.RequestPrompt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Rate us", d.Title)
	assert.Equal(t, "Sure", d.Actions[0].Title)
}

func TestOnRememberLater(t *testing.T) {
	clock := start()
	r, bus := newTestReviewer(t, mem.New(), clock, nil, func(s *core.Settings) {
		s.DaysUntilFirstRequest = 30
		s.DaysUntilRemember = 5
	})
	var got []core.EventType
	bus.SubscribeAll(func(_ context.Context, e core.Event) { got = append(got, e.Type) })
	ctx := context.Background()

	clock.Advance(2 * core.Day)
	require.NoError(t, r.OnRememberLater(ctx))

	st, err := r.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Reviewed)
	assert.False(t, st.IsFirstUse)
	assert.True(t, st.LastReminder.Equal(clock.now))
	assert.Equal(t, []core.EventType{core.EventRemindLater}, got)

	clock.Advance(6 * core.Day)
	ok, err := r.ShouldPrompt(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "remember threshold applies after remind later")
}

func TestOnReviewOpensStoreAndStopsPrompts(t *testing.T) {
	clock := start()
	opener := &recordingOpener{canOpen: true}
	store := mem.New()
	r, _ := newTestReviewer(t, store, clock, opener, nil)
	ctx := context.Background()

	require.NoError(t, r.OnReview(ctx))
	assert.Equal(t, []string{"itms-apps://itunes.apple.com/app/APPID?mt=8&action=write-review"}, opener.opened)

	clock.Advance(365 * core.Day)
	ok, err := r.ShouldPrompt(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a fresh reviewer over the same store sees the terminal state
	again, _ := newTestReviewer(t, store, clock, nil, nil)
	ok, err = again.ShouldPrompt(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnReviewOpenFailureIsNotFatal(t *testing.T) {
	for name, opener := range map[string]*recordingOpener{
		"cannot open": {canOpen: false},
		"open error":  {canOpen: true, err: errors.New("no store app")},
	} {
		t.Run(name, func(t *testing.T) {
			r, bus := newTestReviewer(t, mem.New(), start(), opener, nil)
			failed := 0
			bus.Subscribe(core.EventStoreOpenFailed, func(context.Context, core.Event) { failed++ })

			require.NoError(t, r.OnReview(context.Background()))
			st, err := r.State(context.Background())
			require.NoError(t, err)
			assert.True(t, st.Reviewed)
			assert.Equal(t, 1, failed)
		})
	}
}

func TestOnReviewWithoutAppID(t *testing.T) {
	opener := &recordingOpener{canOpen: true}
	r, _ := newTestReviewer(t, mem.New(), start(), opener, func(s *core.Settings) { s.AppID = "" })

	err := r.OnReview(context.Background())
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, core.ErrMissingAppID)
	assert.Empty(t, opener.opened)

	st, err := r.State(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Reviewed, "state must not change on configuration error")
}

func TestOnDecline(t *testing.T) {
	clock := start()
	r, _ := newTestReviewer(t, mem.New(), clock, nil, nil)
	ctx := context.Background()
	require.NoError(t, r.OnDecline(ctx))

	st, err := r.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.Reviewed)
	assert.True(t, st.LastReminder.Equal(clock.now))

	_, scheduled, err := r.NextPromptAt(ctx)
	require.NoError(t, err)
	assert.False(t, scheduled)
}

func TestDevelopmentModeOverridesReviewed(t *testing.T) {
	store := mem.New()
	r, _ := newTestReviewer(t, store, start(), nil, nil)
	require.NoError(t, r.OnDecline(context.Background()))

	dev, _ := newTestReviewer(t, store, start(), nil, func(s *core.Settings) { s.DevelopmentMode = true })
	ok, err := dev.ShouldPrompt(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandleAndAskToReview(t *testing.T) {
	r, _ := newTestReviewer(t, mem.New(), start(), nil, func(s *core.Settings) { s.DevelopmentMode = true })
	ctx := context.Background()

	var presented core.PromptDecision
	shown, err := r.AskToReview(ctx, func(d core.PromptDecision) error { presented = d; return nil })
	require.NoError(t, err)
	assert.True(t, shown)
	assert.Equal(t, core.ActionReview, presented.Preferred)

	require.NoError(t, r.Handle(ctx, core.ActionRememberLater))
	assert.ErrorIs(t, r.Handle(ctx, core.Action("maybe")), core.ErrUnknownAction)
}

func TestAskToReviewNotEligible(t *testing.T) {
	r, _ := newTestReviewer(t, mem.New(), start(), nil, nil)
	called := false
	shown, err := r.AskToReview(context.Background(), func(core.PromptDecision) error { called = true; return nil })
	require.NoError(t, err)
	assert.False(t, shown)
	assert.False(t, called)
}

func TestReset(t *testing.T) {
	clock := start()
	r, _ := newTestReviewer(t, mem.New(), clock, nil, nil)
	ctx := context.Background()
	require.NoError(t, r.OnDecline(ctx))

	clock.Advance(core.Day)
	require.NoError(t, r.Reset(ctx))
	st, err := r.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Reviewed)
	assert.True(t, st.IsFirstUse)
	assert.True(t, st.LastReminder.Equal(clock.now))
}

func TestNamespacesAreIsolated(t *testing.T) {
	store := mem.New()
	ctx := context.Background()
	a, err := NewReviewer(ctx, Dependencies{Storage: store, Namespace: "a"}, core.DefaultSettings("APPID"))
	require.NoError(t, err)
	b, err := NewReviewer(ctx, Dependencies{Storage: store, Namespace: "b"}, core.DefaultSettings("APPID"))
	require.NoError(t, err)

	require.NoError(t, a.OnDecline(ctx))
	stB, err := b.State(ctx)
	require.NoError(t, err)
	assert.False(t, stB.Reviewed)
}

func TestSaveErrorsPropagate(t *testing.T) {
	_, err := NewReviewer(context.Background(), Dependencies{Storage: failingStorage{mem.New()}}, core.DefaultSettings("APPID"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNewReviewerRequiresStorage(t *testing.T) {
	_, err := NewReviewer(context.Background(), Dependencies{}, core.DefaultSettings("APPID"))
	require.Error(t, err)
}

func TestWithLocale(t *testing.T) {
	store := mem.New()
	r, err := NewReviewer(context.Background(), Dependencies{
		Storage:   store,
		Localizer: localeLocalizer{},
		Namespace: "phone",
	}, core.Settings{AppID: "APPID", DevelopmentMode: true, Locale: "en"})
	require.NoError(t, err)

	pt := r.WithLocale("pt-BR")
	assert.Same(t, r, r.WithLocale(""))
	assert.Equal(t, "phone", pt.Installation())

	d, err := pt.RequestPrompt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "pt-BR:alert.title", d.Title)
	assert.Equal(t, "pt-BR", d.Locale)
	assert.Equal(t, "en", r.Settings().Locale)
}

type localeLocalizer struct{}

func (localeLocalizer) String(key, locale string) string { return locale + ":" + key }
