package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calview/internal/log"
	"calview/internal/model"
)

// ErrEmptyBody is returned by ParseICS for an empty payload.
var ErrEmptyBody = errors.New("empty ICS body")

// ParseICS parses a single ICS payload into calendar events.
//
//   - Timestamps with a TZID or a trailing Z keep their absolute instant;
//     floating timestamps are read as wall-clock time in loc.
//   - All-day events (VALUE=DATE or no 'T') become AllDayOrVirtual events
//     spanning midnight of their first day through the last instant of
//     their final day in loc. DTEND is exclusive per RFC 5545; a missing
//     DTEND means one day.
//   - Timed events without DTEND keep a zero End; the layout engine applies
//     its default duration.
//   - RRULE is not expanded; only the base instance is kept.
//
// A nil loc means UTC. VEVENTs that fail to parse are logged and skipped.
func ParseICS(src Source, body []byte, loc *time.Location) ([]model.CalendarEvent, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]model.CalendarEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(src, ve, loc)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (model.CalendarEvent, error) {
	var out model.CalendarEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.ID = src.ID + "/" + uidProp.Value
	if rid := ve.GetProperty(ical.ComponentPropertyRecurrenceId); rid != nil && rid.Value != "" {
		// Overridden instances share the UID of their series.
		out.ID += "#" + rid.Value
	}

	out.Payload = model.Details{
		SourceID:    src.ID,
		Title:       propValue(ve, ical.ComponentPropertySummary),
		Category:    src.Category,
		Location:    propValue(ve, ical.ComponentPropertyLocation),
		Description: propValue(ve, ical.ComponentPropertyDescription),
	}
	if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
		out.Payload.Category = strings.TrimSpace(strings.Split(cats, ",")[0])
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}

	if rrule := ve.GetProperty(ical.ComponentPropertyRrule); rrule != nil {
		appLog.Debug("ics recurrence not expanded", "id", src.ID, "uid", uidProp.Value, "rrule", rrule.Value)
	}

	if isAllDay(dtStart) {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
		first := wallDate(start, loc)
		next := first.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := ve.GetAllDayEndAt(); err == nil {
				if e := wallDate(end, loc); e.After(first) {
					next = e
				}
			}
		}
		out.Start = first
		out.End = next.Add(-time.Nanosecond)
		out.AllDayOrVirtual = true
		return out, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = reinterpretFloating(dtStart, start, loc)

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		end, err := ve.GetEndAt()
		if err != nil {
			// A broken DTEND degrades to the default duration.
			appLog.Warn("ics dtend ignored", "id", src.ID, "uid", uidProp.Value, "err", err)
		} else {
			out.End = reinterpretFloating(dtEnd, end, loc)
		}
	}

	return out, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// isAllDay reports VALUE=DATE or a date-only DTSTART value.
func isAllDay(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

// wallDate returns midnight in loc of the calendar date t carries in its own
// location.
func wallDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// reinterpretFloating moves a floating timestamp (no TZID, no Z) from the
// host's local zone to loc, keeping its wall-clock reading.
func reinterpretFloating(prop *ical.IANAProperty, t time.Time, loc *time.Location) time.Time {
	if _, ok := prop.ICalParameters["TZID"]; ok || strings.HasSuffix(prop.Value, "Z") {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
