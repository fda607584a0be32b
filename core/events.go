package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates review lifecycle events.
type EventType string

const (
	EventPromptShown     EventType = "prompt_shown"
	EventReviewed        EventType = "reviewed"
	EventRemindLater     EventType = "remind_later"
	EventDeclined        EventType = "declined"
	EventStoreOpenFailed EventType = "store_open_failed"
)

// EventTypes lists every event type in dispatch order.
var EventTypes = []EventType{EventPromptShown, EventReviewed, EventRemindLater, EventDeclined, EventStoreOpenFailed}

// Event represents an immutable review event.
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Time         time.Time      `json:"time"`
	Installation string         `json:"installation,omitempty"`
	AppID        string         `json:"app_id,omitempty"`
	StoreURL     string         `json:"store_url,omitempty"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func newEvent(typ EventType, at time.Time, installation, appID string) Event {
	return Event{ID: uuid.NewString(), Type: typ, Time: at.UTC(), Installation: installation, AppID: appID}
}

func NewPromptShown(at time.Time, installation, appID string) Event {
	return newEvent(EventPromptShown, at, installation, appID)
}

// NewDecision returns the event recorded for a user's dialog choice.
func NewDecision(action Action, at time.Time, installation, appID string) Event {
	switch action {
	case ActionReview:
		return newEvent(EventReviewed, at, installation, appID)
	case ActionRememberLater:
		return newEvent(EventRemindLater, at, installation, appID)
	default:
		return newEvent(EventDeclined, at, installation, appID)
	}
}

func NewStoreOpenFailed(at time.Time, installation, appID, storeURL string, err error) Event {
	ev := newEvent(EventStoreOpenFailed, at, installation, appID)
	ev.StoreURL = storeURL
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}
