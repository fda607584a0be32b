package core

import (
	"strings"
	"time"
)

// Day is the length of one threshold day.
const Day = 24 * time.Hour

const (
	DefaultDaysUntilFirstRequest = 15
	DefaultDaysUntilRemember     = 15
)

// ReviewState is a snapshot of the persisted review flags, dates and the
// configuration values the eligibility policy reads.
type ReviewState struct {
	IsFirstUse            bool      `json:"is_first_use"`
	Reviewed              bool      `json:"reviewed"`
	LastReminder          time.Time `json:"last_reminder"`
	DaysUntilFirstRequest int       `json:"days_until_first_request"`
	DaysUntilRemember     int       `json:"days_until_remember"`
	DevelopmentMode       bool      `json:"development_mode"`
}

// HasReminder reports whether a reminder date has been recorded.
func (s ReviewState) HasReminder() bool { return !s.LastReminder.IsZero() }

// Texts holds explicit dialog strings. Empty values fall back to the
// localization provider.
type Texts struct {
	Title          string `json:"title,omitempty"`
	Message        string `json:"message,omitempty"`
	ReviewAction   string `json:"review_action,omitempty"`
	RememberAction string `json:"remember_action,omitempty"`
	DeclineAction  string `json:"decline_action,omitempty"`
}

// Settings is the constructor-time configuration of a reviewer.
type Settings struct {
	AppID                 string
	DevelopmentMode       bool
	Texts                 Texts
	// Day counts of zero or less mean unset and take the defaults. Use
	// DevelopmentMode to prompt without waiting.
	DaysUntilFirstRequest int
	DaysUntilRemember     int
	// Locale is a BCP 47 tag; empty means the system locale.
	Locale string
	// StoreURLTemplate must contain the {appID} placeholder.
	StoreURLTemplate string
}

// DefaultSettings returns settings for appID with the library defaults.
func DefaultSettings(appID string) Settings {
	return Settings{
		AppID:                 appID,
		DaysUntilFirstRequest: DefaultDaysUntilFirstRequest,
		DaysUntilRemember:     DefaultDaysUntilRemember,
		StoreURLTemplate:      AppStoreTemplate,
	}
}

// Normalize replaces unset day counts and an empty template with defaults.
func (s Settings) Normalize() Settings {
	s.AppID = strings.TrimSpace(s.AppID)
	if s.DaysUntilFirstRequest <= 0 {
		s.DaysUntilFirstRequest = DefaultDaysUntilFirstRequest
	}
	if s.DaysUntilRemember <= 0 {
		s.DaysUntilRemember = DefaultDaysUntilRemember
	}
	if strings.TrimSpace(s.StoreURLTemplate) == "" {
		s.StoreURLTemplate = AppStoreTemplate
	}
	return s
}

// Apply copies the configuration values of s into state.
func (s Settings) Apply(state ReviewState) ReviewState {
	state.DaysUntilFirstRequest = s.DaysUntilFirstRequest
	state.DaysUntilRemember = s.DaysUntilRemember
	state.DevelopmentMode = s.DevelopmentMode
	return state
}
