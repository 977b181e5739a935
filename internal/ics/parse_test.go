package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"calview/internal/model"
)

func icsBody(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//calview//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func findEvent(t *testing.T, events []model.CalendarEvent, id string) model.CalendarEvent {
	t.Helper()
	for _, ev := range events {
		if ev.ID == id {
			return ev
		}
	}
	t.Fatalf("event %s not found", id)
	return model.CalendarEvent{}
}

func TestParseICSTimedEvents(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20240301T000000Z",
		"DTSTART:20240310T140000Z",
		"DTEND:20240310T143000Z",
		"SUMMARY:Standup",
		"LOCATION:Room 4",
		"CATEGORIES:meeting,team",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:open-ended",
		"DTSTAMP:20240301T000000Z",
		"DTSTART:20240311T090000Z",
		"SUMMARY:No end",
		"END:VEVENT",
	)

	events, err := ParseICS(Source{ID: "team", Category: "work"}, body, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	standup := findEvent(t, events, "team/standup")
	if !standup.Start.Equal(time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", standup.Start)
	}
	if !standup.End.Equal(time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", standup.End)
	}
	if standup.AllDayOrVirtual {
		t.Fatalf("did not expect timed event to be all-day")
	}
	if standup.Payload.Title != "Standup" || standup.Payload.Location != "Room 4" || standup.Payload.SourceID != "team" {
		t.Fatalf("unexpected payload %+v", standup.Payload)
	}
	if standup.Payload.Category != "meeting" {
		t.Fatalf("expected CATEGORIES to win over source category, got %q", standup.Payload.Category)
	}

	openEnded := findEvent(t, events, "team/open-ended")
	if openEnded.HasEnd() {
		t.Fatalf("expected zero end for event without DTEND, got %s", openEnded.End)
	}
	if openEnded.Payload.Category != "work" {
		t.Fatalf("expected source category fallback, got %q", openEnded.Payload.Category)
	}
}

func TestParseICSAllDaySpans(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:expo",
		"DTSTAMP:20240301T000000Z",
		"DTSTART;VALUE=DATE:20240305",
		"DTEND;VALUE=DATE:20240309",
		"SUMMARY:Exhibition",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:holiday",
		"DTSTAMP:20240301T000000Z",
		"DTSTART;VALUE=DATE:20240310",
		"SUMMARY:Holiday",
		"END:VEVENT",
	)
	seoul := time.FixedZone("KST", 9*60*60)

	events, err := ParseICS(Source{ID: "cal"}, body, seoul)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	expo := findEvent(t, events, "cal/expo")
	if !expo.AllDayOrVirtual {
		t.Fatalf("expected all-day flag")
	}
	if !expo.Start.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, seoul)) {
		t.Fatalf("expected start at KST midnight, got %s", expo.Start)
	}
	if y, m, d := expo.End.In(seoul).Date(); y != 2024 || m != time.March || d != 8 {
		t.Fatalf("expected exclusive DTEND to end on 2024-03-08, got %s", expo.End)
	}

	holiday := findEvent(t, events, "cal/holiday")
	if y, m, d := holiday.End.In(seoul).Date(); y != 2024 || m != time.March || d != 10 {
		t.Fatalf("expected single-day holiday, got end %s", holiday.End)
	}
}

func TestParseICSFloatingTimeUsesDisplayLocation(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:floating",
		"DTSTAMP:20240301T000000Z",
		"DTSTART:20240310T090000",
		"DTEND:20240310T100000",
		"END:VEVENT",
	)
	seoul := time.FixedZone("KST", 9*60*60)

	events, err := ParseICS(Source{ID: "cal"}, body, seoul)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := findEvent(t, events, "cal/floating")
	if !ev.Start.Equal(time.Date(2024, time.March, 10, 9, 0, 0, 0, seoul)) {
		t.Fatalf("expected 09:00 KST, got %s", ev.Start)
	}
}

func TestParseICSSkipsBrokenEventsAndKeepsOverrides(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"DTSTAMP:20240301T000000Z",
		"DTSTART:20240310T090000Z",
		"SUMMARY:No UID",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTAMP:20240301T000000Z",
		"DTSTART:20240304T090000Z",
		"DTEND:20240304T100000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTAMP:20240301T000000Z",
		"RECURRENCE-ID:20240311T090000Z",
		"DTSTART:20240311T110000Z",
		"DTEND:20240311T120000Z",
		"END:VEVENT",
	)

	events, err := ParseICS(Source{ID: "cal"}, body, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected base instance and override only, got %d", len(events))
	}
	findEvent(t, events, "cal/weekly")
	override := findEvent(t, events, "cal/weekly#20240311T090000Z")
	if override.Start.Hour() != 11 {
		t.Fatalf("expected override start 11:00, got %s", override.Start)
	}
}

func TestParseICSErrors(t *testing.T) {
	if _, err := ParseICS(Source{ID: "x"}, nil, nil); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, err := ParseICS(Source{ID: "x"}, []byte("not a calendar"), nil); err == nil {
		t.Fatalf("expected parse error for garbage body")
	}
}
