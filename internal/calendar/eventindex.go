package calendar

import (
	"sort"
	"time"

	"calview/internal/model"
)

// EventsOnDay returns the events occupying day, in input order. An event
// occupies every day from the day of its start through the day of its end
// (or start, when no end is given), inclusive, as seen in loc. Events with a
// zero start never match; an end earlier than the start day matches nothing.
func EventsOnDay(events []model.CalendarEvent, day Date, loc *time.Location) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0)
	for _, ev := range events {
		if occupies(ev, day, loc) {
			out = append(out, ev)
		}
	}
	return out
}

func occupies(ev model.CalendarEvent, day Date, loc *time.Location) bool {
	startDay, endDay, ok := daySpan(ev, loc)
	if !ok {
		return false
	}
	return !day.Before(startDay) && !day.After(endDay)
}

// daySpan returns the inclusive [startDay, endDay] range of ev in loc.
func daySpan(ev model.CalendarEvent, loc *time.Location) (Date, Date, bool) {
	if !ev.Valid() {
		return Date{}, Date{}, false
	}
	startDay := DateOf(ev.Start, loc)
	endDay := startDay
	if ev.HasEnd() {
		endDay = DateOf(ev.End, loc)
	}
	return startDay, endDay, true
}

// SortForDisplay returns a copy of events ordered all-day/virtual first, then
// by start instant. Ties keep input order.
func SortForDisplay(events []model.CalendarEvent) []model.CalendarEvent {
	out := make([]model.CalendarEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AllDayOrVirtual != out[j].AllDayOrVirtual {
			return out[i].AllDayOrVirtual
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
