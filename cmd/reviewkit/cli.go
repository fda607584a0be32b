package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"

	"reviewkit"
	"reviewkit/adapters/jsonfile"
	sqliteAdapter "reviewkit/adapters/sqlite"
	"reviewkit/core"
	"reviewkit/engine"
	"reviewkit/i18n"
)

const (
	defaultSQLitePath = "~/.reviewkit/reviews.db"
	defaultFilePath   = "~/.reviewkit/reviews.json"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version      kong.VersionFlag `help:"Show version information"`
	Debug        bool             `help:"Enable debug logging to stderr" short:"d"`
	Store        string           `help:"Storage backend" enum:"sqlite,file" default:"sqlite" env:"REVIEWKIT_CLI_STORE"`
	Path         string           `help:"Path to the store (default ~/.reviewkit/reviews.db, or .json for the file store)" type:"path" env:"REVIEWKIT_CLI_PATH"`
	Installation string           `help:"Installation to act on; empty for a single-user store" short:"i" env:"REVIEWKIT_INSTALLATION"`
	AppID        string           `help:"Store app id used for review links" name:"app-id" env:"REVIEWKIT_REVIEW_APP_ID"`
	Locale       string           `help:"Dialog locale (BCP 47); defaults to the system locale" env:"REVIEWKIT_REVIEW_LOCALE"`
	Dev          bool             `help:"Development mode: always eligible" env:"REVIEWKIT_REVIEW_DEVELOPMENT_MODE"`
	FirstRequest int              `help:"Days before the first prompt" name:"days-until-first-request" default:"15"`
	Remember     int              `help:"Days before prompting again after remind later" name:"days-until-remember" default:"15"`
	Template     string           `help:"Store URL template containing {appID}" name:"store-url-template" env:"REVIEWKIT_REVIEW_STORE_URL_TEMPLATE"`

	Status   StatusCmd   `cmd:"" help:"Show the review state and when the next prompt is possible" default:"1"`
	Prompt   PromptCmd   `cmd:"" help:"Show the review dialog if the user may be asked now"`
	Review   ReviewCmd   `cmd:"" help:"Record a review and open the store page"`
	Remind   RemindCmd   `cmd:"" help:"Postpone the prompt"`
	Decline  DeclineCmd  `cmd:"" help:"Never ask again"`
	Reset    ResetCmd    `cmd:"" help:"Forget all state and start a new first-use period"`
	NewID    NewIDCmd    `cmd:"new-id" help:"Print a fresh installation id"`
	Locales  LocalesCmd  `cmd:"" help:"List the bundled dialog locales"`
	closers  []io.Closer `kong:"-"`
}

// AfterApply picks the default path matching the chosen backend.
func (c *CLI) AfterApply() error {
	if c.Path != "" {
		return nil
	}
	if c.Store == "file" {
		c.Path = kong.ExpandPath(defaultFilePath)
	} else {
		c.Path = kong.ExpandPath(defaultSQLitePath)
	}
	return nil
}

// Close releases stores opened by commands.
func (c *CLI) Close() {
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	c.closers = nil
}

// Runtime carries the process streams and collaborators commands use.
type Runtime struct {
	Out    io.Writer
	In     io.Reader
	Err    io.Writer
	Opener engine.URLOpener
}

func (c *CLI) logger(rt *Runtime) *slog.Logger {
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(rt.Err, &slog.HandlerOptions{Level: level}))
}

func (c *CLI) storage(log *slog.Logger) (engine.Storage, error) {
	switch c.Store {
	case "file":
		return jsonfile.New(c.Path)
	default:
		s, err := sqliteAdapter.Open(c.Path, sqliteAdapter.Options{Logger: log, Debug: c.Debug})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s)
		return s, nil
	}
}

func (c *CLI) locale() string {
	if c.Locale != "" {
		return c.Locale
	}
	return i18n.SystemLocale()
}

// reviewer opens the store and builds a reviewer from the flags. On error
// the store is already closed.
func (c *CLI) reviewer(ctx context.Context, rt *Runtime) (*engine.Reviewer, error) {
	installation := c.Installation
	if installation != "" {
		id, err := core.NormalizeInstallationID(installation)
		if err != nil {
			return nil, err
		}
		installation = id
	}

	log := c.logger(rt)
	store, err := c.storage(log)
	if err != nil {
		return nil, fmt.Errorf("open %s store %s: %w", c.Store, c.Path, err)
	}
	opts := []reviewkit.Option{
		reviewkit.WithStorage(store),
		reviewkit.WithLogger(log),
		reviewkit.WithAppID(c.AppID),
		reviewkit.WithInstallation(installation),
		reviewkit.WithLocale(c.locale()),
		reviewkit.WithDevelopmentMode(c.Dev),
		reviewkit.WithDaysUntilFirstRequest(c.FirstRequest),
		reviewkit.WithDaysUntilRemember(c.Remember),
	}
	if c.Template != "" {
		opts = append(opts, reviewkit.WithStoreURLTemplate(c.Template))
	}
	if rt.Opener != nil {
		opts = append(opts, reviewkit.WithOpener(rt.Opener))
	}
	r, err := reviewkit.New(ctx, opts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	return r, nil
}
