package reviewkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "reviewkit/adapters/memory"
	"reviewkit/core"
	"reviewkit/engine"
	"reviewkit/integrations/opener"
	"reviewkit/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	capture := &opener.Capture{}
	var seen []core.EventType
	r, err := New(context.Background(),
		WithAppID("123"),
		WithStorage(mem.New()),
		WithOpener(capture),
		WithRealtime(hub),
		WithLocale("es"),
		WithDevelopmentMode(true),
		WithEventHandler(func(_ context.Context, e core.Event) { seen = append(seen, e.Type) }),
	)
	require.NoError(t, err)

	_, ch := hub.Subscribe(4, nil)
	d, err := r.RequestPrompt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Valoración", d.Title)

	require.NoError(t, r.OnReview(context.Background()))
	last, ok := capture.Last()
	assert.True(t, ok)
	assert.Equal(t, "itms-apps://itunes.apple.com/app/123?mt=8&action=write-review", last)

	assert.Equal(t, []core.EventType{core.EventPromptShown, core.EventReviewed}, seen)
	ev := <-ch
	assert.Equal(t, core.EventPromptShown, ev.Type)
}

func TestNewWithoutAppIDFailsOnReview(t *testing.T) {
	r, err := New(context.Background(), WithOpener(&opener.Capture{}))
	require.NoError(t, err)
	assert.True(t, errors.Is(r.OnReview(context.Background()), core.ErrMissingAppID))
}

func TestMustNewPanicsWithoutAppID(t *testing.T) {
	assert.Panics(t, func() { MustNew(context.Background()) })
	assert.NotPanics(t, func() {
		MustNew(context.Background(), WithAppID("com.example.app"), WithStoreURLTemplate(core.PlayStoreTemplate))
	})
}

func TestSettingsOptions(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := New(context.Background(),
		WithAppID("1"),
		WithDaysUntilFirstRequest(3),
		WithDaysUntilRemember(7),
		WithTexts(core.Texts{Title: "Rate"}),
		WithClock(func() time.Time { return now }),
		WithInstallation("phone"),
		WithDispatchMode(engine.DispatchSync),
	)
	require.NoError(t, err)
	at, ok, err := r.NextPromptAt(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, now.Add(3*core.Day).Equal(at))
	assert.Equal(t, "Rate", r.Texts().Title)
	assert.Equal(t, "phone", r.Installation())
}

func TestInstallations(t *testing.T) {
	store := mem.New()
	p := NewInstallations(WithAppID("1"), WithStorage(store), WithOpener(&opener.Capture{}))
	defer p.Close()
	ctx := context.Background()

	a, err := p.Get(ctx, "Phone-A")
	require.NoError(t, err)
	again, err := p.Get(ctx, "phone-a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := p.Get(ctx, "phone-b")
	require.NoError(t, err)
	require.NoError(t, a.OnDecline(ctx))

	stB, err := b.State(ctx)
	require.NoError(t, err)
	assert.False(t, stB.Reviewed)
	assert.Equal(t, 2, p.Cached())

	require.NoError(t, p.Reset(ctx, "phone-a"))
	stA, err := a.State(ctx)
	require.NoError(t, err)
	assert.False(t, stA.Reviewed)

	_, err = p.Get(ctx, "bad id!")
	assert.Error(t, err)
}
