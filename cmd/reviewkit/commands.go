package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reviewkit/core"
	"reviewkit/i18n"
)

// statusView is the --json rendering of status.
type statusView struct {
	Installation string           `json:"installation,omitempty"`
	State        core.ReviewState `json:"state"`
	Eligible     bool             `json:"eligible"`
	NextPromptAt *time.Time       `json:"next_prompt_at,omitempty"`
	Store        string           `json:"store"`
	Path         string           `json:"path"`
}

// StatusCmd prints the persisted state and eligibility.
type StatusCmd struct {
	JSON bool `help:"Print the state as JSON"`
}

func (s *StatusCmd) Run(cli *CLI, rt *Runtime) error {
	ctx := context.Background()
	r, err := cli.reviewer(ctx, rt)
	if err != nil {
		return err
	}
	defer cli.Close()

	st, err := r.State(ctx)
	if err != nil {
		return err
	}
	eligible, err := r.ShouldPrompt(ctx)
	if err != nil {
		return err
	}
	next, hasNext, err := r.NextPromptAt(ctx)
	if err != nil {
		return err
	}

	if s.JSON {
		v := statusView{Installation: r.Installation(), State: st, Eligible: eligible, Store: cli.Store, Path: cli.Path}
		if hasNext && !eligible {
			v.NextPromptAt = &next
		}
		enc := json.NewEncoder(rt.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	p := i18n.Default().Printer(r.Settings().Locale)
	switch {
	case st.Reviewed:
		p.Fprintf(rt.Out, "status.reviewed")
	case eligible:
		p.Fprintf(rt.Out, "status.eligible")
	case hasNext:
		p.Fprintf(rt.Out, "status.next-prompt", next.Local().Format(time.RFC1123))
	}
	fmt.Fprintln(rt.Out)
	return nil
}

// PromptCmd renders the dialog on the terminal and applies the choice.
type PromptCmd struct{}

func (p *PromptCmd) Run(cli *CLI, rt *Runtime) error {
	ctx := context.Background()
	r, err := cli.reviewer(ctx, rt)
	if err != nil {
		return err
	}
	defer cli.Close()

	d, err := r.RequestPrompt(ctx)
	if err != nil {
		return err
	}
	if d == nil {
		fmt.Fprintln(rt.Out, "Not eligible for a review prompt.")
		return nil
	}

	fmt.Fprintf(rt.Out, "%s\n%s\n\n", d.Title, d.Message)
	for i, a := range d.Actions {
		fmt.Fprintf(rt.Out, "  %d) %s\n", i+1, a.Title)
	}
	fmt.Fprint(rt.Out, "Choose [1-3], or press enter to dismiss: ")

	line, err := bufio.NewReader(rt.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read choice: %w", err)
	}
	fmt.Fprintln(rt.Out)
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(d.Actions) {
		return fmt.Errorf("invalid choice %q", line)
	}
	action := d.Actions[n-1].Action
	if err := r.Handle(ctx, action); err != nil {
		return err
	}
	if action == core.ActionReview {
		if u, err := r.StoreURL(); err == nil {
			fmt.Fprintln(rt.Out, u)
		}
	}
	return nil
}

// ReviewCmd records a review and opens the store page.
type ReviewCmd struct{}

func (c *ReviewCmd) Run(cli *CLI, rt *Runtime) error {
	ctx := context.Background()
	r, err := cli.reviewer(ctx, rt)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := r.OnReview(ctx); err != nil {
		return err
	}
	u, _ := r.StoreURL()
	fmt.Fprintln(rt.Out, u)
	return nil
}

// RemindCmd postpones the prompt.
type RemindCmd struct{}

func (c *RemindCmd) Run(cli *CLI, rt *Runtime) error {
	return decide(cli, rt, core.ActionRememberLater)
}

// DeclineCmd opts out for good.
type DeclineCmd struct{}

func (c *DeclineCmd) Run(cli *CLI, rt *Runtime) error {
	return decide(cli, rt, core.ActionDecline)
}

func decide(cli *CLI, rt *Runtime, action core.Action) error {
	ctx := context.Background()
	r, err := cli.reviewer(ctx, rt)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := r.Handle(ctx, action); err != nil {
		return err
	}
	next, ok, err := r.NextPromptAt(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(rt.Out, "Recorded %s. Next prompt after %s.\n", action, next.Local().Format(time.RFC1123))
	} else {
		fmt.Fprintf(rt.Out, "Recorded %s.\n", action)
	}
	return nil
}

// ResetCmd clears the stored state.
type ResetCmd struct {
	Force bool `help:"Skip confirmation" short:"f"`
}

func (c *ResetCmd) Run(cli *CLI, rt *Runtime) error {
	if !c.Force {
		fmt.Fprintf(rt.Out, "Reset review state in %s? [y/N] ", cli.Path)
		line, _ := bufio.NewReader(rt.In).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Fprintln(rt.Out, "Cancelled.")
			return nil
		}
	}

	ctx := context.Background()
	r, err := cli.reviewer(ctx, rt)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := r.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(rt.Out, "Review state reset.")
	return nil
}

// NewIDCmd prints a random installation id.
type NewIDCmd struct{}

func (c *NewIDCmd) Run(rt *Runtime) error {
	fmt.Fprintln(rt.Out, uuid.NewString())
	return nil
}

// LocalesCmd lists the bundled catalogs.
type LocalesCmd struct{}

func (c *LocalesCmd) Run(rt *Runtime) error {
	for _, l := range i18n.Default().Locales() {
		fmt.Fprintln(rt.Out, l)
	}
	return nil
}
