package calendar

import (
	"math"
	"testing"
	"time"

	"calview/internal/model"
)

const epsilon = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func slotByID(t *testing.T, slots []TimelineSlot, id string) TimelineSlot {
	t.Helper()
	for _, s := range slots {
		if s.Event.ID == id {
			return s
		}
	}
	t.Fatalf("slot %s not found", id)
	return TimelineSlot{}
}

func TestLayoutDayDefaultDuration(t *testing.T) {
	events := []model.CalendarEvent{{ID: "call", Start: at(2024, time.March, 10, 14, 0)}}

	slots := Engine{}.LayoutDay(NewDate(2024, time.March, 10), events)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	s := slots[0]
	if !approx(s.TopPercent, 14.0/24*100) {
		t.Fatalf("expected top 58.33, got %f", s.TopPercent)
	}
	if !approx(s.HeightPercent, 100.0/24) {
		t.Fatalf("expected height 4.1667, got %f", s.HeightPercent)
	}
	if math.Round(s.TopPercent*100)/100 != 58.33 || math.Round(s.HeightPercent*100)/100 != 4.17 {
		t.Fatalf("unexpected rounded values top=%f height=%f", s.TopPercent, s.HeightPercent)
	}
	if s.Lanes != 1 || s.WidthPercent != 100 || s.LeftPercent != 0 {
		t.Fatalf("expected full-width single lane, got %+v", s)
	}
}

func TestLayoutDayConfiguredDefaultDuration(t *testing.T) {
	events := []model.CalendarEvent{{ID: "call", Start: at(2024, time.March, 10, 6, 0)}}
	slots := Engine{DefaultDuration: 30 * time.Minute}.LayoutDay(NewDate(2024, time.March, 10), events)
	if !approx(slots[0].HeightPercent, 0.5/24*100) {
		t.Fatalf("expected half-hour height, got %f", slots[0].HeightPercent)
	}
}

func TestLayoutDayFractionalMinutes(t *testing.T) {
	events := []model.CalendarEvent{{
		ID:    "standup",
		Start: at(2024, time.March, 10, 9, 15),
		End:   at(2024, time.March, 10, 9, 45),
	}}
	s := Engine{}.LayoutDay(NewDate(2024, time.March, 10), events)[0]
	if !approx(s.TopPercent, 9.25/24*100) || !approx(s.HeightPercent, 0.5/24*100) {
		t.Fatalf("unexpected placement %+v", s)
	}
}

func TestLayoutDayClampsMultiDayEvents(t *testing.T) {
	events := []model.CalendarEvent{{
		ID:    "overnight",
		Start: at(2024, time.March, 9, 22, 0),
		End:   at(2024, time.March, 11, 2, 0),
	}}
	engine := Engine{}

	first := engine.LayoutDay(NewDate(2024, time.March, 9), events)[0]
	if !approx(first.TopPercent, 22.0/24*100) || !approx(first.HeightPercent, 2.0/24*100) {
		t.Fatalf("first day: unexpected placement %+v", first)
	}

	middle := engine.LayoutDay(NewDate(2024, time.March, 10), events)[0]
	if !approx(middle.TopPercent, 0) || !approx(middle.HeightPercent, 100) {
		t.Fatalf("middle day: expected full-day slot, got %+v", middle)
	}

	last := engine.LayoutDay(NewDate(2024, time.March, 11), events)[0]
	if !approx(last.TopPercent, 0) || !approx(last.HeightPercent, 2.0/24*100) {
		t.Fatalf("last day: unexpected placement %+v", last)
	}

	if got := engine.LayoutDay(NewDate(2024, time.March, 12), events); len(got) != 0 {
		t.Fatalf("expected no slot after the span, got %d", len(got))
	}
}

func TestLayoutDayDefaultDurationPastMidnight(t *testing.T) {
	events := []model.CalendarEvent{{ID: "late", Start: at(2024, time.March, 10, 23, 30)}}
	s := Engine{}.LayoutDay(NewDate(2024, time.March, 10), events)[0]
	if !approx(s.HeightPercent, 0.5/24*100) {
		t.Fatalf("expected clipped half-hour height, got %f", s.HeightPercent)
	}
	if s.TopPercent+s.HeightPercent > 100+epsilon {
		t.Fatalf("slot overflows the day: %+v", s)
	}
}

func TestLayoutDayBackwardsEventHasZeroHeight(t *testing.T) {
	events := []model.CalendarEvent{{
		ID:    "backwards",
		Start: at(2024, time.March, 10, 10, 0),
		End:   at(2024, time.March, 10, 9, 0),
	}}
	s := Engine{}.LayoutDay(NewDate(2024, time.March, 10), events)[0]
	if s.HeightPercent != 0 {
		t.Fatalf("expected zero height, got %f", s.HeightPercent)
	}
	if !approx(s.RenderedHeightPercent(), DefaultMinSlotHeightPercent) {
		t.Fatalf("expected rendered floor %f, got %f", DefaultMinSlotHeightPercent, s.RenderedHeightPercent())
	}
}

func TestLayoutDayMinimumHeightFloor(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "blip", Start: at(2024, time.March, 10, 8, 0), End: at(2024, time.March, 10, 8, 5)},
		{ID: "long", Start: at(2024, time.March, 10, 10, 0), End: at(2024, time.March, 10, 12, 0)},
	}

	slots := Engine{MinSlotHeightPercent: 2}.LayoutDay(NewDate(2024, time.March, 10), events)
	blip := slotByID(t, slots, "blip")
	if !approx(blip.HeightPercent, 5.0/60/24*100) {
		t.Fatalf("floor must not change HeightPercent, got %f", blip.HeightPercent)
	}
	if blip.RenderedHeightPercent() != 2 {
		t.Fatalf("expected rendered height 2, got %f", blip.RenderedHeightPercent())
	}
	long := slotByID(t, slots, "long")
	if !approx(long.RenderedHeightPercent(), long.HeightPercent) {
		t.Fatalf("expected tall slot unaffected by floor")
	}

	noFloor := Engine{MinSlotHeightPercent: -1}.LayoutDay(NewDate(2024, time.March, 10), events)
	if slotByID(t, noFloor, "blip").RenderedHeightPercent() != slotByID(t, noFloor, "blip").HeightPercent {
		t.Fatalf("expected negative floor to disable the minimum")
	}
}

func TestLayoutDayBoundsForContainedEvents(t *testing.T) {
	engine := Engine{}
	day := NewDate(2024, time.March, 10)
	for hour := 0; hour < 24; hour++ {
		for _, minutes := range []int{0, 1, 29, 59} {
			start := at(2024, time.March, 10, hour, minutes)
			end := start.Add(time.Duration(59-minutes) * time.Minute)
			slots := engine.LayoutDay(day, []model.CalendarEvent{{ID: "x", Start: start, End: end}})
			s := slots[0]
			if s.TopPercent < 0 || s.TopPercent > 100 {
				t.Fatalf("top out of range for %s: %f", start, s.TopPercent)
			}
			if bottom := s.TopPercent + s.HeightPercent; bottom < 0 || bottom > 100+epsilon {
				t.Fatalf("bottom out of range for %s: %f", start, bottom)
			}
		}
	}
}

func TestLayoutDayUsesEngineLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	events := []model.CalendarEvent{{ID: "x", Start: at(2024, time.March, 10, 23, 30), End: at(2024, time.March, 11, 0, 30)}}

	slots := Engine{Location: seoul}.LayoutDay(NewDate(2024, time.March, 11), events)
	if len(slots) != 1 {
		t.Fatalf("expected event on KST 2024-03-11, got %d slots", len(slots))
	}
	if !approx(slots[0].TopPercent, 8.5/24*100) || !approx(slots[0].HeightPercent, 1.0/24*100) {
		t.Fatalf("unexpected KST placement %+v", slots[0])
	}
}

func TestLayoutDayStacksOverlapsByDefault(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", Start: at(2024, time.March, 10, 9, 0), End: at(2024, time.March, 10, 10, 0)},
		{ID: "b", Start: at(2024, time.March, 10, 9, 0), End: at(2024, time.March, 10, 10, 0)},
	}
	slots := Engine{}.LayoutDay(NewDate(2024, time.March, 10), events)
	for _, s := range slots {
		if s.Lane != 0 || s.LeftPercent != 0 || s.WidthPercent != 100 {
			t.Fatalf("expected stacked full-width slots without lanes, got %+v", s)
		}
	}
}

func TestLayoutDayEmpty(t *testing.T) {
	slots := Engine{Lanes: true}.LayoutDay(NewDate(2024, time.March, 10), nil)
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil slots, got %#v", slots)
	}
}

func TestLayoutWeek(t *testing.T) {
	events := []model.CalendarEvent{{ID: "x", Start: at(2024, time.March, 12, 9, 0)}}
	week := Engine{WeekStart: time.Monday}.LayoutWeek(NewDate(2024, time.March, 13), events)
	if len(week) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week))
	}
	if week[0].Date != NewDate(2024, time.March, 11) {
		t.Fatalf("expected Monday start, got %s", week[0].Date)
	}
	if len(week[1].Slots) != 1 || week[1].Slots[0].Event.ID != "x" {
		t.Fatalf("expected event on Tuesday, got %+v", week[1])
	}
}

func TestAssignLanes(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", Start: at(2024, time.March, 10, 9, 0), End: at(2024, time.March, 10, 11, 0)},
		{ID: "b", Start: at(2024, time.March, 10, 10, 0), End: at(2024, time.March, 10, 12, 0)},
		{ID: "c", Start: at(2024, time.March, 10, 11, 0), End: at(2024, time.March, 10, 11, 30)},
		{ID: "d", Start: at(2024, time.March, 10, 13, 0), End: at(2024, time.March, 10, 14, 0)},
	}
	slots := Engine{Lanes: true}.LayoutDay(NewDate(2024, time.March, 10), events)

	tests := []struct {
		id    string
		lane  int
		lanes int
		left  float64
		width float64
	}{
		{id: "a", lane: 0, lanes: 2, left: 0, width: 50},
		{id: "b", lane: 1, lanes: 2, left: 50, width: 50},
		{id: "c", lane: 0, lanes: 2, left: 0, width: 50},
		{id: "d", lane: 0, lanes: 1, left: 0, width: 100},
	}
	for _, tt := range tests {
		s := slotByID(t, slots, tt.id)
		if s.Lane != tt.lane || s.Lanes != tt.lanes || !approx(s.LeftPercent, tt.left) || !approx(s.WidthPercent, tt.width) {
			t.Fatalf("%s: expected lane %d/%d left %.0f width %.0f, got %+v", tt.id, tt.lane, tt.lanes, tt.left, tt.width, s)
		}
	}

	// Lanes never change vertical placement.
	for _, s := range slots {
		plain := slotByID(t, Engine{}.LayoutDay(NewDate(2024, time.March, 10), events), s.Event.ID)
		if s.TopPercent != plain.TopPercent || s.HeightPercent != plain.HeightPercent {
			t.Fatalf("lanes changed vertical placement of %s", s.Event.ID)
		}
	}
}

func TestAssignLanesSeparatesShortEventsWithinFloor(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", Start: at(2024, time.March, 10, 9, 0), End: at(2024, time.March, 10, 9, 0)},
		{ID: "b", Start: at(2024, time.March, 10, 9, 5), End: at(2024, time.March, 10, 9, 10)},
	}
	slots := Engine{Lanes: true}.LayoutDay(NewDate(2024, time.March, 10), events)
	if slotByID(t, slots, "a").Lane == slotByID(t, slots, "b").Lane {
		t.Fatalf("expected boxes overlapping through the height floor to get separate lanes")
	}
}
