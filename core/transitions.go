package core

import "time"

// Initialize marks a fresh state as first use and starts the reminder clock.
// A state that already carries a reminder date is returned unchanged.
func Initialize(state ReviewState, now time.Time) ReviewState {
	if state.HasReminder() {
		return state
	}
	state.IsFirstUse = true
	state.LastReminder = now.UTC()
	return state
}

// Review records that the user went to the store. Terminal.
func Review(state ReviewState, now time.Time) ReviewState {
	state.Reviewed = true
	state.LastReminder = now.UTC()
	return state
}

// RememberLater defers the prompt; the next wait uses the remember threshold.
func RememberLater(state ReviewState, now time.Time) ReviewState {
	state.Reviewed = false
	state.IsFirstUse = false
	state.LastReminder = now.UTC()
	return state
}

// Decline records a permanent opt-out. Terminal.
func Decline(state ReviewState, now time.Time) ReviewState {
	state.Reviewed = true
	state.LastReminder = now.UTC()
	return state
}
