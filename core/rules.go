package core

import "time"

// ShouldPrompt reports whether the user may be asked for a review at now.
//
// Development mode always prompts and a reviewed state never does. Without a
// recorded reminder date the user is eligible. Otherwise the time elapsed
// since the last reminder must strictly exceed the active threshold.
func ShouldPrompt(state ReviewState, now time.Time) bool {
	if state.DevelopmentMode {
		return true
	}
	if state.Reviewed {
		return false
	}
	if !state.HasReminder() {
		return true
	}
	return now.Sub(state.LastReminder) > Threshold(state)
}

// Threshold returns the wait applicable to state: the first-request wait
// during first use, the remember wait afterwards.
func Threshold(state ReviewState) time.Duration {
	days := state.DaysUntilRemember
	if state.IsFirstUse {
		days = state.DaysUntilFirstRequest
	}
	return time.Duration(days) * Day
}

// NextPromptAt returns the earliest instant after which ShouldPrompt turns
// true. The bool is false when no future prompt is scheduled: the state is
// reviewed, or eligibility does not depend on time.
func NextPromptAt(state ReviewState) (time.Time, bool) {
	if state.DevelopmentMode || state.Reviewed || !state.HasReminder() {
		return time.Time{}, false
	}
	return state.LastReminder.Add(Threshold(state)), true
}
