package model

import "time"

// Details is the opaque payload carried by a CalendarEvent. The layout
// engine never reads it; it is passed through to the rendering layer.
type Details struct {
	SourceID    string `json:"source_id,omitempty"` // calendar source ID (config ICS ID)
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// CalendarEvent is a single concrete event as supplied by the events
// collaborator. Values are treated as immutable snapshots.
type CalendarEvent struct {
	ID string `json:"id"`

	// Start is the absolute start instant. A zero Start marks a malformed
	// event that is never placed on any day.
	Start time.Time `json:"start"`

	// End is optional; the zero value means "no end given".
	End time.Time `json:"end,omitempty"`

	// AllDayOrVirtual affects display ordering only, never occupancy.
	AllDayOrVirtual bool `json:"all_day_or_virtual"`

	Payload Details `json:"payload"`
}

// HasEnd reports whether an explicit end instant was supplied.
func (e CalendarEvent) HasEnd() bool {
	return !e.End.IsZero()
}

// Valid reports whether the event has a usable start instant.
func (e CalendarEvent) Valid() bool {
	return !e.Start.IsZero()
}
