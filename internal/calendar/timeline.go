package calendar

import (
	"time"

	"calview/internal/model"
)

const hoursPerDay = 24.0

// TimelineSlot is the vertical placement of one event inside one day column.
// Percentages are relative to the 24-hour axis of that day.
type TimelineSlot struct {
	Event model.CalendarEvent `json:"event"`

	TopPercent    float64 `json:"top_percent"`
	HeightPercent float64 `json:"height_percent"`

	// MinHeightPercent is the presentation floor for the rendered box; it
	// never changes HeightPercent.
	MinHeightPercent float64 `json:"min_height_percent"`

	// Horizontal placement. Without lane assignment every slot spans the
	// full column: Lane 0 of 1, left 0, width 100.
	Lane         int     `json:"lane"`
	Lanes        int     `json:"lanes"`
	LeftPercent  float64 `json:"left_percent"`
	WidthPercent float64 `json:"width_percent"`

	startHour float64
	endHour   float64
}

// RenderedHeightPercent is the height of the drawn box after the floor.
func (s TimelineSlot) RenderedHeightPercent() float64 {
	if s.HeightPercent < s.MinHeightPercent {
		return s.MinHeightPercent
	}
	return s.HeightPercent
}

// DayTimeline is the laid-out timeline of a single day.
type DayTimeline struct {
	Date  Date           `json:"date"`
	Slots []TimelineSlot `json:"slots"`
}

// LayoutDay positions every event occupying day on that day's 24-hour axis.
// Events without an end last DefaultDuration. Portions outside the day are
// clipped to hour 0 and hour 24, and a negative duration is clamped to zero.
func (e Engine) LayoutDay(day Date, events []model.CalendarEvent) []TimelineSlot {
	loc := e.location()
	floor := e.minSlotHeight()

	occupying := EventsOnDay(events, day, loc)
	slots := make([]TimelineSlot, 0, len(occupying))
	for _, ev := range occupying {
		end := ev.End
		if !ev.HasEnd() {
			end = ev.Start.Add(e.defaultDuration())
		}

		startHour := fractionalHour(ev.Start, day, loc)
		endHour := fractionalHour(end, day, loc)
		duration := endHour - startHour
		if duration < 0 {
			duration = 0
		}

		slots = append(slots, TimelineSlot{
			Event:            ev,
			TopPercent:       startHour / hoursPerDay * 100,
			HeightPercent:    duration / hoursPerDay * 100,
			MinHeightPercent: floor,
			Lane:             0,
			Lanes:            1,
			LeftPercent:      0,
			WidthPercent:     100,
			startHour:        startHour,
			endHour:          startHour + duration,
		})
	}

	if e.Lanes {
		AssignLanes(slots)
	}
	return slots
}

// LayoutWeek lays out each of the seven days of the week containing anchor.
func (e Engine) LayoutWeek(anchor Date, events []model.CalendarEvent) []DayTimeline {
	start := StartOfWeekOn(anchor, e.WeekStart)
	out := make([]DayTimeline, WeekGridCells)
	for i := range out {
		day := AddDays(start, i)
		out[i] = DayTimeline{Date: day, Slots: e.LayoutDay(day, events)}
	}
	return out
}

// fractionalHour returns hour+minute/60 of t on day, clamped to [0, 24]:
// instants on an earlier day map to 0 and instants on a later day to 24.
func fractionalHour(t time.Time, day Date, loc *time.Location) float64 {
	switch d := DateOf(t, loc); {
	case d.Before(day):
		return 0
	case d.After(day):
		return hoursPerDay
	}
	local := t.In(loc)
	return float64(local.Hour()) + float64(local.Minute())/60
}
