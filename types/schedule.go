package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frequency names a publication cadence
type Frequency string

const (
	FrequencyOnceDaily   Frequency = "once_daily"
	FrequencyTwiceDaily  Frequency = "twice_daily"
	FrequencyThreeWeekly Frequency = "three_weekly"
	FrequencyCustomDays  Frequency = "custom_days"
	FrequencyWeekly      Frequency = "weekly"
	FrequencyMonthly     Frequency = "monthly"
)

// DefaultTimeOfDay is used when a spec carries no usable time of day
const DefaultTimeOfDay = "09:00"

var (
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrEmptyCustomDays  = errors.New("custom_days frequency requires at least one weekday")
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM")
	ErrInvalidRunSize   = errors.New("items per run must be at least 1")
)

// ParseFrequency accepts the canonical names plus the hyphenated and
// camel-case spellings used by older project settings.
func ParseFrequency(s string) Frequency {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "once_daily", "oncedaily", "daily":
		return FrequencyOnceDaily
	case "twice_daily", "twicedaily":
		return FrequencyTwiceDaily
	case "three_weekly", "threeweekly", "three_times_weekly":
		return FrequencyThreeWeekly
	case "custom_days", "customdays", "custom":
		return FrequencyCustomDays
	case "weekly":
		return FrequencyWeekly
	case "monthly":
		return FrequencyMonthly
	}
	return Frequency(norm)
}

// Known reports whether f is one of the supported cadences
func (f Frequency) Known() bool {
	switch f {
	case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThreeWeekly,
		FrequencyCustomDays, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ScheduleSpec describes when a project's backlog gets published
type ScheduleSpec struct {
	Frequency   Frequency      `json:"frequency" yaml:"frequency"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`
	DayOfWeek   time.Weekday   `json:"day_of_week,omitempty" yaml:"day_of_week,omitempty"`
	TimeOfDay   string         `json:"time_of_day" yaml:"time_of_day"`
	ItemsPerRun int            `json:"items_per_run" yaml:"items_per_run"`
	Timezone    string         `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Validate checks the spec. In strict mode every fallback the scheduler would
// otherwise apply silently is reported as an error instead.
func (s ScheduleSpec) Validate(strict bool) error {
	if !strict {
		return nil
	}
	if _, _, err := ParseTimeOfDay(s.TimeOfDay); err != nil {
		return err
	}
	if !s.Frequency.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, s.Frequency)
	}
	if s.Frequency == FrequencyCustomDays && len(s.DaysOfWeek) == 0 {
		return ErrEmptyCustomDays
	}
	if s.ItemsPerRun < 1 {
		return ErrInvalidRunSize
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}

// Location resolves the spec timezone, defaulting to UTC
func (s ScheduleSpec) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseTimeOfDay parses "HH:MM" into hour and minute
func ParseTimeOfDay(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return t.Hour(), t.Minute(), nil
}
