package web

import (
	"time"

	"calview/internal/calendar"
	"calview/internal/model"
)

// monthResponse is the JSON shape of a month grid.
type monthResponse struct {
	Year      int          `json:"year"`
	Month     time.Month   `json:"month"`
	WeekStart string       `json:"week_start"`
	Cells     []dayCellDTO `json:"cells"`
}

// weekResponse carries both the week grid and the per-day timelines.
type weekResponse struct {
	Anchor    calendar.Date    `json:"anchor_date"`
	WeekStart string           `json:"week_start"`
	Cells     []dayCellDTO     `json:"cells"`
	Timelines []dayTimelineDTO `json:"timelines"`
}

type dayResponse struct {
	Timeline dayTimelineDTO `json:"timeline"`
}

type navigatorResponse struct {
	State calendar.NavigatorState `json:"state"`
	Month *monthResponse          `json:"month,omitempty"`
	Week  *weekResponse           `json:"week,omitempty"`
	Day   *dayResponse            `json:"day,omitempty"`
}

// eventDTO adds the start time as read in the display location, which may
// differ from the zone the event was published in.
type eventDTO struct {
	model.CalendarEvent
	LocalStart string `json:"local_start"`
}

type dayCellDTO struct {
	Date            calendar.Date `json:"date"`
	InCurrentPeriod bool          `json:"in_current_period"`
	IsToday         bool          `json:"is_today"`
	IsSelected      bool          `json:"is_selected"`
	Events          []eventDTO    `json:"events"`
}

type dayTimelineDTO struct {
	Date       calendar.Date `json:"date"`
	IsToday    bool          `json:"is_today"`
	IsSelected bool          `json:"is_selected"`
	AllDay     []eventDTO    `json:"all_day"`
	Slots      []slotDTO     `json:"slots"`
}

// slotDTO flattens calendar.TimelineSlot for the rendering layer.
type slotDTO struct {
	Event                 eventDTO `json:"event"`
	TopPercent            float64  `json:"top_percent"`
	HeightPercent         float64  `json:"height_percent"`
	RenderedHeightPercent float64  `json:"rendered_height_percent"`
	LeftPercent           float64  `json:"left_percent"`
	WidthPercent          float64  `json:"width_percent"`
	Lane                  int      `json:"lane"`
	Lanes                 int      `json:"lanes"`
}

// viewContext carries the per-request bits needed to annotate cells.
type viewContext struct {
	today    calendar.Date
	selected *calendar.Date
	loc      *time.Location
}

func (vc viewContext) isSelected(d calendar.Date) bool {
	return vc.selected != nil && vc.selected.Equal(d)
}

func (s *Server) buildMonth(year int, month time.Month, events []model.CalendarEvent, vc viewContext) *monthResponse {
	cells := s.engine.BuildMonthGrid(year, month, events)
	first := calendar.NewDate(year, month, 1)
	return &monthResponse{
		Year:      first.Year,
		Month:     first.Month,
		WeekStart: s.cfg.WeekStart,
		Cells:     toCellDTOs(cells, vc),
	}
}

func (s *Server) buildWeek(anchor calendar.Date, events []model.CalendarEvent, vc viewContext) *weekResponse {
	cells := s.engine.BuildWeekGrid(anchor, events)
	allDay, timed := splitAllDay(events)
	timelines := s.engine.LayoutWeek(anchor, timed)

	out := &weekResponse{
		Anchor:    anchor,
		WeekStart: s.cfg.WeekStart,
		Cells:     toCellDTOs(cells, vc),
		Timelines: make([]dayTimelineDTO, 0, len(timelines)),
	}
	for _, tl := range timelines {
		out.Timelines = append(out.Timelines, toTimelineDTO(tl, s.engine.EventsOnDay(allDay, tl.Date), vc))
	}
	return out
}

func (s *Server) buildDay(day calendar.Date, events []model.CalendarEvent, vc viewContext) *dayResponse {
	allDay, timed := splitAllDay(events)
	tl := calendar.DayTimeline{Date: day, Slots: s.engine.LayoutDay(day, timed)}
	return &dayResponse{Timeline: toTimelineDTO(tl, s.engine.EventsOnDay(allDay, day), vc)}
}

func (s *Server) buildNavigator(state calendar.NavigatorState, events []model.CalendarEvent, vc viewContext) navigatorResponse {
	resp := navigatorResponse{State: state}
	switch state.View {
	case calendar.ViewWeek:
		resp.Week = s.buildWeek(state.Anchor, events, vc)
	case calendar.ViewDay:
		resp.Day = s.buildDay(state.Anchor, events, vc)
	default:
		resp.Month = s.buildMonth(state.Anchor.Year, state.Anchor.Month, events, vc)
	}
	return resp
}

func toEventDTO(ev model.CalendarEvent, loc *time.Location) eventDTO {
	if loc == nil {
		loc = time.UTC
	}
	return eventDTO{CalendarEvent: ev, LocalStart: ev.Start.In(loc).Format("15:04")}
}

func toEventDTOs(events []model.CalendarEvent, loc *time.Location) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventDTO(ev, loc))
	}
	return out
}

func toCellDTOs(cells []calendar.DayCell, vc viewContext) []dayCellDTO {
	out := make([]dayCellDTO, 0, len(cells))
	for _, c := range cells {
		out = append(out, dayCellDTO{
			Date:            c.Date,
			InCurrentPeriod: c.InCurrentPeriod,
			IsToday:         c.Date.Equal(vc.today),
			IsSelected:      vc.isSelected(c.Date),
			Events:          toEventDTOs(calendar.SortForDisplay(c.Events), vc.loc),
		})
	}
	return out
}

// splitAllDay separates all-day/virtual events, which render in a strip
// above the hour axis, from timed events laid out on it.
func splitAllDay(events []model.CalendarEvent) (allDay, timed []model.CalendarEvent) {
	for _, ev := range events {
		if ev.AllDayOrVirtual {
			allDay = append(allDay, ev)
		} else {
			timed = append(timed, ev)
		}
	}
	return allDay, timed
}

func toTimelineDTO(tl calendar.DayTimeline, allDay []model.CalendarEvent, vc viewContext) dayTimelineDTO {
	out := dayTimelineDTO{
		Date:       tl.Date,
		IsToday:    tl.Date.Equal(vc.today),
		IsSelected: vc.isSelected(tl.Date),
		AllDay:     toEventDTOs(allDay, vc.loc),
		Slots:      make([]slotDTO, 0, len(tl.Slots)),
	}
	for _, slot := range tl.Slots {
		out.Slots = append(out.Slots, slotDTO{
			Event:                 toEventDTO(slot.Event, vc.loc),
			TopPercent:            slot.TopPercent,
			HeightPercent:         slot.HeightPercent,
			RenderedHeightPercent: slot.RenderedHeightPercent(),
			LeftPercent:           slot.LeftPercent,
			WidthPercent:          slot.WidthPercent,
			Lane:                  slot.Lane,
			Lanes:                 slot.Lanes,
		})
	}
	return out
}
