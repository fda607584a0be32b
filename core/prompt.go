package core

import (
	"fmt"
	"strings"
)

// Action is one of the dialog choices.
type Action string

const (
	ActionReview        Action = "review"
	ActionRememberLater Action = "remind-later"
	ActionDecline       Action = "decline"
)

// ParseAction accepts the canonical names plus a few aliases used by the CLI.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "review":
		return ActionReview, nil
	case "remind-later", "remind", "remember-later", "later":
		return ActionRememberLater, nil
	case "decline", "never", "do-not-remember":
		return ActionDecline, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Localization keys for the dialog strings.
const (
	KeyAlertTitle     = "alert.title"
	KeyAlertMessage   = "alert.message"
	KeyReviewAction   = "review.title"
	KeyRememberAction = "remember-later.title"
	KeyDeclineAction  = "do-not-remember.title"
)

// ActionStyle hints how a UI should render a button.
type ActionStyle string

const (
	StyleDefault     ActionStyle = "default"
	StyleDestructive ActionStyle = "destructive"
)

// PromptAction is one button of the dialog.
type PromptAction struct {
	Action Action      `json:"action"`
	Title  string      `json:"title"`
	Style  ActionStyle `json:"style"`
}

// PromptDecision describes the dialog a UI layer renders. The UI must invoke
// exactly one decision handler on user choice, or none when dismissed.
type PromptDecision struct {
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Actions   []PromptAction `json:"actions"`
	Preferred Action         `json:"preferred"`
	Locale    string         `json:"locale,omitempty"`
}

// NewPromptDecision builds the three-action dialog from resolved texts.
func NewPromptDecision(t Texts, locale string) PromptDecision {
	return PromptDecision{
		Title:   t.Title,
		Message: t.Message,
		Actions: []PromptAction{
			{Action: ActionReview, Title: t.ReviewAction, Style: StyleDefault},
			{Action: ActionRememberLater, Title: t.RememberAction, Style: StyleDefault},
			{Action: ActionDecline, Title: t.DeclineAction, Style: StyleDestructive},
		},
		Preferred: ActionReview,
		Locale:    locale,
	}
}
