package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteAdapter "reviewkit/adapters/sqlite"
	"reviewkit/core"
	"reviewkit/integrations/opener"
)

type harness struct {
	out    bytes.Buffer
	errOut bytes.Buffer
	opener *opener.Capture
}

func newHarness() *harness {
	return &harness{opener: &opener.Capture{}}
}

// run parses args and executes the selected command with stdin as input.
func (h *harness) run(t *testing.T, stdin string, args ...string) (*CLI, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("reviewkit"),
		kong.Vars{"version": "test"},
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	h.out.Reset()
	rt := &Runtime{Out: &h.out, In: strings.NewReader(stdin), Err: &h.errOut, Opener: h.opener}
	return &cli, kctx.Run(&cli, rt)
}

func storeArgs(t *testing.T) []string {
	return []string{"--path", filepath.Join(t.TempDir(), "reviews.db"), "--locale", "en", "--app-id", "123"}
}

func TestStatusJSONOnFreshStore(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "", append(storeArgs(t), "status", "--json")...)
	require.NoError(t, err)

	var v statusView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &v))
	assert.True(t, v.State.IsFirstUse)
	assert.False(t, v.State.Reviewed)
	assert.False(t, v.Eligible)
	require.NotNil(t, v.NextPromptAt)
	assert.Equal(t, "sqlite", v.Store)
}

func TestStatusText(t *testing.T) {
	h := newHarness()
	args := storeArgs(t)

	_, err := h.run(t, "", append(args, "--dev", "status")...)
	require.NoError(t, err)
	assert.Equal(t, "A review prompt can be shown now.\n", h.out.String())

	_, err = h.run(t, "", append(args, "decline")...)
	require.NoError(t, err)
	_, err = h.run(t, "", append(args, "status")...)
	require.NoError(t, err)
	assert.Equal(t, "The user has reviewed or declined. No more prompts.\n", h.out.String())
}

func TestPromptReviewChoice(t *testing.T) {
	h := newHarness()
	args := storeArgs(t)

	_, err := h.run(t, "1\n", append(args, "--dev", "prompt")...)
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Are you enjoying the app? Give us a Review")
	assert.Contains(t, out, "3) Don't remember me again")
	url := "itms-apps://itunes.apple.com/app/123?mt=8&action=write-review"
	assert.Contains(t, out, url)
	last, ok := h.opener.Last()
	require.True(t, ok)
	assert.Equal(t, url, last)

	_, err = h.run(t, "", append(args, "prompt")...)
	require.NoError(t, err)
	assert.Equal(t, "Not eligible for a review prompt.\n", h.out.String())
}

func TestPromptDismissAndInvalidChoice(t *testing.T) {
	h := newHarness()
	args := storeArgs(t)

	_, err := h.run(t, "\n", append(args, "--dev", "prompt")...)
	require.NoError(t, err)
	_, ok := h.opener.Last()
	assert.False(t, ok)

	_, err = h.run(t, "7\n", append(args, "--dev", "prompt")...)
	assert.ErrorContains(t, err, `invalid choice "7"`)
}

func TestPromptNotEligible(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "", append(storeArgs(t), "prompt")...)
	require.NoError(t, err)
	assert.Equal(t, "Not eligible for a review prompt.\n", h.out.String())
}

func TestReviewWithoutAppID(t *testing.T) {
	h := newHarness()
	path := filepath.Join(t.TempDir(), "reviews.db")
	_, err := h.run(t, "", "--path", path, "--locale", "en", "review")

	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	_, ok := h.opener.Last()
	assert.False(t, ok)

	// nothing was recorded
	_, err = h.run(t, "", "--path", path, "--locale", "en", "--dev", "status")
	require.NoError(t, err)
	assert.Equal(t, "A review prompt can be shown now.\n", h.out.String())
}

func TestRemindWithFileStore(t *testing.T) {
	h := newHarness()
	path := filepath.Join(t.TempDir(), "state", "reviews.json")

	_, err := h.run(t, "", "--store", "file", "--path", path, "--days-until-remember", "3", "remind")
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Recorded remind-later. Next prompt after")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), core.KeyReviewed)
}

func TestReset(t *testing.T) {
	h := newHarness()
	args := storeArgs(t)

	_, err := h.run(t, "", append(args, "decline")...)
	require.NoError(t, err)

	_, err = h.run(t, "n\n", append(args, "reset")...)
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Cancelled.")

	_, err = h.run(t, "", append(args, "reset", "--force")...)
	require.NoError(t, err)
	assert.Equal(t, "Review state reset.\n", h.out.String())

	_, err = h.run(t, "", append(args, "status", "--json")...)
	require.NoError(t, err)
	var v statusView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &v))
	assert.False(t, v.State.Reviewed)
	assert.True(t, v.State.IsFirstUse)
}

func TestDefaultPathFollowsStore(t *testing.T) {
	h := newHarness()

	cli, err := h.run(t, "", "locales")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cli.Path, filepath.Join(".reviewkit", "reviews.db")), cli.Path)
	assert.Contains(t, h.out.String(), "pt-BR\n")

	cli, err = h.run(t, "", "--store", "file", "locales")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(cli.Path, filepath.Join(".reviewkit", "reviews.json")), cli.Path)
}

func TestNewID(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "", "new-id")
	require.NoError(t, err)

	id, err := uuid.Parse(strings.TrimSpace(h.out.String()))
	require.NoError(t, err)
	normalized, err := core.NormalizeInstallationID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), normalized)
}

func TestInstallationIDIsNormalized(t *testing.T) {
	h := newHarness()
	args := storeArgs(t)

	_, err := h.run(t, "", append(args, "-i", " Tablet-1 ", "decline")...)
	require.NoError(t, err)

	_, err = h.run(t, "", append(args, "-i", "tablet-1", "status", "--json")...)
	require.NoError(t, err)
	var v statusView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &v))
	assert.Equal(t, "tablet-1", v.Installation)
	assert.True(t, v.State.Reviewed)

	_, err = h.run(t, "", append(args, "-i", "a:b", "status")...)
	assert.ErrorContains(t, err, "invalid installation id")
}

func TestStoreClosedWhenStateIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.db")
	store, err := sqliteAdapter.Open(path, sqliteAdapter.Options{})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), core.KeyLastReminded, "yesterday"))
	require.NoError(t, store.Close())

	h := newHarness()
	cli, err := h.run(t, "", "--path", path, "--locale", "en", "status")
	require.Error(t, err)
	assert.Empty(t, cli.closers)
}
