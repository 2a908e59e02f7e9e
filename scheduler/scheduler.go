// Package scheduler assigns publication dates to a project's backlog and
// triggers the pipeline for items that come due.
package scheduler

import (
	"sort"
	"time"

	"contentpilot/types"
)

// Assignment pairs a backlog item with the run timestamp it was placed on
type Assignment struct {
	Item         *types.ContentItem
	ScheduledFor time.Time
}

// SortBacklog orders items by priority desc, quality score desc, then
// creation time asc. The input slice is not modified.
func SortBacklog(items []*types.ContentItem) []*types.ContentItem {
	out := append([]*types.ContentItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// ComputeSchedule places the backlog on successive valid run dates.
//
// Items are taken in priority order and grouped into runs of ItemsPerRun;
// every item of a run shares one timestamp. The function is pure: items are
// not mutated and identical inputs always give identical outputs.
func ComputeSchedule(spec types.ScheduleSpec, backlog []*types.ContentItem, anchor time.Time) []Assignment {
	if len(backlog) == 0 {
		return nil
	}

	ordered := SortBacklog(backlog)
	perRun := spec.ItemsPerRun
	if perRun < 1 {
		perRun = 1
	}

	p := newPlacer(spec)
	cursor := p.anchor(anchor)

	out := make([]Assignment, 0, len(ordered))
	for start := 0; start < len(ordered); start += perRun {
		runAt := p.nextValid(cursor)
		end := start + perRun
		if end > len(ordered) {
			end = len(ordered)
		}
		for _, item := range ordered[start:end] {
			out = append(out, Assignment{Item: item, ScheduledFor: runAt})
		}
		cursor = runAt.AddDate(0, 0, 1)
	}
	return out
}

// NextRunAfter returns the first valid run strictly after the calendar day of
// last. It is what a single append to an existing schedule, or the next
// occurrence of a recurring item, lands on.
func NextRunAfter(spec types.ScheduleSpec, last, now time.Time) time.Time {
	p := newPlacer(spec)
	anchor := p.anchor(now)
	cursor := p.snap(last.In(p.loc)).AddDate(0, 0, 1)
	if cursor.Before(anchor) {
		cursor = anchor
	}
	return p.nextValid(cursor)
}

// FirstRun returns the first valid run at or after the anchor derived from now
func FirstRun(spec types.ScheduleSpec, now time.Time) time.Time {
	p := newPlacer(spec)
	return p.nextValid(p.anchor(now))
}

// placer knows which calendar days are valid for a spec
type placer struct {
	frequency types.Frequency
	days      map[time.Weekday]bool
	hour      int
	minute    int
	loc       *time.Location
}

var threeWeeklyDays = map[time.Weekday]bool{
	time.Monday:    true,
	time.Wednesday: true,
	time.Friday:    true,
}

func newPlacer(spec types.ScheduleSpec) placer {
	hour, minute, err := types.ParseTimeOfDay(spec.TimeOfDay)
	if err != nil {
		hour, minute, _ = types.ParseTimeOfDay(types.DefaultTimeOfDay)
	}

	p := placer{
		frequency: spec.Frequency,
		hour:      hour,
		minute:    minute,
		loc:       spec.Location(),
	}

	switch spec.Frequency {
	case types.FrequencyOnceDaily, types.FrequencyTwiceDaily, types.FrequencyMonthly:
		// every day is a candidate; monthly is handled in nextValid
	case types.FrequencyThreeWeekly:
		p.days = threeWeeklyDays
	case types.FrequencyCustomDays:
		// An empty set leaves days nil, which matches every day
		if len(spec.DaysOfWeek) > 0 {
			p.days = make(map[time.Weekday]bool, len(spec.DaysOfWeek))
			for _, d := range spec.DaysOfWeek {
				p.days[d] = true
			}
		}
	case types.FrequencyWeekly:
		p.days = map[time.Weekday]bool{spec.DayOfWeek: true}
	default:
		// Unrecognized frequencies run weekly on Monday
		p.frequency = types.FrequencyWeekly
		p.days = map[time.Weekday]bool{time.Monday: true}
	}
	return p
}

// snap moves t to the configured time of day on the same calendar day
func (p placer) snap(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), p.hour, p.minute, 0, 0, p.loc)
}

// anchor snaps now to the time of day, moving to tomorrow unless that moment
// is still ahead.
func (p placer) anchor(now time.Time) time.Time {
	local := now.In(p.loc)
	a := p.snap(local)
	if !a.After(local) {
		a = a.AddDate(0, 0, 1)
	}
	return a
}

// nextValid returns the first valid run date at or after cursor
func (p placer) nextValid(cursor time.Time) time.Time {
	if p.frequency == types.FrequencyMonthly {
		// Always the 1st of the month after the cursor, never the same day
		return time.Date(cursor.Year(), cursor.Month()+1, 1, p.hour, p.minute, 0, 0, p.loc)
	}
	if p.days == nil {
		return cursor
	}
	for i := 0; i < 7; i++ {
		candidate := cursor.AddDate(0, 0, i)
		if p.days[candidate.Weekday()] {
			return candidate
		}
	}
	return cursor
}
