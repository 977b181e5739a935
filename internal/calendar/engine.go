// Package calendar builds calendar grids and day timelines from a flat list
// of events. Everything here is a pure computation over value types; callers
// rebuild grids from scratch whenever their event snapshot changes.
package calendar

import (
	"time"

	"calview/internal/model"
)

const (
	// MonthGridCells is the fixed size of a month grid (6 rows x 7 columns).
	MonthGridCells = 42
	// WeekGridCells is the size of a week grid.
	WeekGridCells = 7

	// DefaultEventDuration is used for timeline layout when an event has no end.
	DefaultEventDuration = time.Hour
	// DefaultMinSlotHeightPercent is the rendered floor for short events (15 minutes).
	DefaultMinSlotHeightPercent = 15.0 / 60 / 24 * 100
)

// Engine holds the presentation settings shared by grid and timeline builds.
// The zero value is usable: UTC days, Sunday-first weeks, one-hour default
// duration, the 15-minute height floor and no lane separation.
type Engine struct {
	// Location converts event instants into calendar days. nil means UTC.
	Location *time.Location

	// WeekStart is the first column of month and week grids.
	WeekStart time.Weekday

	// DefaultDuration applies to events without an end. Zero means one hour.
	DefaultDuration time.Duration

	// MinSlotHeightPercent is the minimum rendered height of a timeline slot.
	// Zero means DefaultMinSlotHeightPercent; negative disables the floor.
	MinSlotHeightPercent float64

	// Lanes enables side-by-side lanes for overlapping timeline slots.
	Lanes bool
}

// DayCell is one day of a month or week grid.
type DayCell struct {
	Date            Date                  `json:"date"`
	InCurrentPeriod bool                  `json:"in_current_period"`
	Events          []model.CalendarEvent `json:"events"`
}

func (e Engine) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e Engine) defaultDuration() time.Duration {
	if e.DefaultDuration <= 0 {
		return DefaultEventDuration
	}
	return e.DefaultDuration
}

func (e Engine) minSlotHeight() float64 {
	switch {
	case e.MinSlotHeightPercent < 0:
		return 0
	case e.MinSlotHeightPercent == 0:
		return DefaultMinSlotHeightPercent
	default:
		return e.MinSlotHeightPercent
	}
}

// EventsOnDay is EventsOnDay in the engine's location.
func (e Engine) EventsOnDay(events []model.CalendarEvent, day Date) []model.CalendarEvent {
	return EventsOnDay(events, day, e.location())
}

// Today returns the current calendar day in the engine's location.
func (e Engine) Today(now time.Time) Date {
	return Today(now, e.location())
}
