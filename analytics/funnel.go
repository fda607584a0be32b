package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"reviewkit/core"
)

// Hook receives review events for KPI aggregation.
type Hook interface {
	OnEvent(ctx context.Context, e core.Event)
}

// Counts holds per-event-type totals.
type Counts struct {
	Prompted        int64 `json:"prompted"`
	Reviewed        int64 `json:"reviewed"`
	RemindedLater   int64 `json:"reminded_later"`
	Declined        int64 `json:"declined"`
	StoreOpenFailed int64 `json:"store_open_failed"`
}

func (c *Counts) add(t core.EventType) {
	switch t {
	case core.EventPromptShown:
		c.Prompted++
	case core.EventReviewed:
		c.Reviewed++
	case core.EventRemindLater:
		c.RemindedLater++
	case core.EventDeclined:
		c.Declined++
	case core.EventStoreOpenFailed:
		c.StoreOpenFailed++
	}
}

// Decisions is the number of prompts answered with a choice.
func (c Counts) Decisions() int64 { return c.Reviewed + c.RemindedLater + c.Declined }

// DayCounts are the counts of one UTC day.
type DayCounts struct {
	Day string `json:"day"`
	Counts
}

// Snapshot is a point-in-time view of the funnel.
type Snapshot struct {
	Totals                Counts      `json:"totals"`
	UniqueInstallations   int         `json:"unique_installations"`
	PromptedInstallations int         `json:"prompted_installations"`
	ConversionRate        float64     `json:"conversion_rate"`
	DeclineRate           float64     `json:"decline_rate"`
	Days                  []DayCounts `json:"days"`
	GeneratedAt           time.Time   `json:"generated_at"`
}

// Funnel tracks the prompt funnel: prompts shown and how users answered.
type Funnel struct {
	mu       sync.RWMutex
	totals   Counts
	days     map[string]*Counts
	seen     map[string]struct{}
	prompted map[string]struct{}
	now      func() time.Time
}

func NewFunnel() *Funnel {
	return &Funnel{
		days:     map[string]*Counts{},
		seen:     map[string]struct{}{},
		prompted: map[string]struct{}{},
		now:      time.Now,
	}
}

func (f *Funnel) OnEvent(_ context.Context, e core.Event) {
	day := e.Time.UTC().Format("2006-01-02")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totals.add(e.Type)
	d := f.days[day]
	if d == nil {
		d = &Counts{}
		f.days[day] = d
	}
	d.add(e.Type)
	if e.Installation != "" {
		f.seen[e.Installation] = struct{}{}
		if e.Type == core.EventPromptShown {
			f.prompted[e.Installation] = struct{}{}
		}
	}
}

// Day returns the counts for day (YYYY-MM-DD).
func (f *Funnel) Day(day string) Counts {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if d := f.days[day]; d != nil {
		return *d
	}
	return Counts{}
}

// Snapshot returns totals, rates and per-day counts ordered by day.
func (f *Funnel) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s := Snapshot{
		Totals:                f.totals,
		UniqueInstallations:   len(f.seen),
		PromptedInstallations: len(f.prompted),
		GeneratedAt:           f.now().UTC(),
	}
	if n := f.totals.Decisions(); n > 0 {
		s.ConversionRate = float64(f.totals.Reviewed) / float64(n)
		s.DeclineRate = float64(f.totals.Declined) / float64(n)
	}
	s.Days = make([]DayCounts, 0, len(f.days))
	for day, c := range f.days {
		s.Days = append(s.Days, DayCounts{Day: day, Counts: *c})
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Day < s.Days[j].Day })
	return s
}
