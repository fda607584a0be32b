package opener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// EnvLauncher overrides the platform launcher command, e.g. "firefox".
const EnvLauncher = "REVIEWKIT_OPENER"

// System opens URLs with the platform's handler: open on macOS, xdg-open on
// Linux, the url.dll protocol handler on Windows.
type System struct {
	// Command replaces the platform launcher when set.
	Command string
	Logger  *slog.Logger
}

// NewSystem returns an opener honoring $REVIEWKIT_OPENER.
func NewSystem(log *slog.Logger) *System {
	if log == nil {
		log = slog.Default()
	}
	return &System{Command: os.Getenv(EnvLauncher), Logger: log}
}

func (s *System) launcher(target string) (string, []string) {
	if s.Command != "" {
		return s.Command, []string{target}
	}
	return platformLauncher(target)
}

// CanOpen reports whether target parses as an absolute URL and a launcher
// binary is available.
func (s *System) CanOpen(_ context.Context, target string) bool {
	if !isAbsoluteURL(target) {
		return false
	}
	bin, _ := s.launcher(target)
	if bin == "" {
		return false
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

// Open starts the launcher and returns without waiting for it to exit.
func (s *System) Open(_ context.Context, target string) error {
	if !isAbsoluteURL(target) {
		return fmt.Errorf("not an absolute url: %q", target)
	}
	bin, args := s.launcher(target)
	if bin == "" {
		return errors.New("no url launcher for this platform")
	}

	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", bin, err)
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("opening store page", "launcher", bin, "url", target)
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn("url launcher exited with error", "error", err, "launcher", bin)
		}
	}()
	return nil
}

func isAbsoluteURL(target string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	return err == nil && u.Scheme != ""
}

// Deferred accepts any absolute URL and keeps nothing. Servers use it: the
// client receives the store URL in the response and opens it on the device.
type Deferred struct{}

func (Deferred) CanOpen(_ context.Context, target string) bool { return isAbsoluteURL(target) }

func (Deferred) Open(context.Context, string) error { return nil }

// Capture records opened URLs instead of launching them, for tests.
type Capture struct {
	mu     sync.Mutex
	opened []string
}

func (c *Capture) CanOpen(_ context.Context, target string) bool { return isAbsoluteURL(target) }

func (c *Capture) Open(_ context.Context, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = append(c.opened, target)
	return nil
}

// Last returns the most recently opened URL.
func (c *Capture) Last() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.opened) == 0 {
		return "", false
	}
	return c.opened[len(c.opened)-1], true
}

// Opened returns a copy of every captured URL.
func (c *Capture) Opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opened...)
}
