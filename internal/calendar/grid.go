package calendar

import (
	"time"

	"calview/internal/model"
)

// BuildMonthGrid returns the 42 cells covering the given month: leading days
// from the previous month, every day of the month, then trailing days of the
// next month. Five-row months are still padded to six rows. month may be out
// of range and is normalized by carry.
func (e Engine) BuildMonthGrid(year int, month time.Month, events []model.CalendarEvent) []DayCell {
	first := NewDate(year, month, 1)
	daysInMonth := DaysInMonth(first.Year, first.Month)
	leading := (int(FirstWeekdayOfMonth(first.Year, first.Month)) - int(e.WeekStart) + 7) % 7

	cells := make([]DayCell, 0, MonthGridCells)

	// Previous month, counted backward from its last day.
	for i := leading; i > 0; i-- {
		cells = append(cells, DayCell{Date: AddDays(first, -i)})
	}
	for day := 1; day <= daysInMonth; day++ {
		cells = append(cells, DayCell{
			Date:            Date{Year: first.Year, Month: first.Month, Day: day},
			InCurrentPeriod: true,
		})
	}
	last := Date{Year: first.Year, Month: first.Month, Day: daysInMonth}
	for i := 1; len(cells) < MonthGridCells; i++ {
		cells = append(cells, DayCell{Date: AddDays(last, i)})
	}

	e.annotate(cells, events)
	return cells
}

// BuildWeekGrid returns the seven days of the week containing anchor.
func (e Engine) BuildWeekGrid(anchor Date, events []model.CalendarEvent) []DayCell {
	start := StartOfWeekOn(anchor, e.WeekStart)
	cells := make([]DayCell, WeekGridCells)
	for i := range cells {
		cells[i] = DayCell{Date: AddDays(start, i), InCurrentPeriod: true}
	}
	e.annotate(cells, events)
	return cells
}

func (e Engine) annotate(cells []DayCell, events []model.CalendarEvent) {
	loc := e.location()
	for i := range cells {
		cells[i].Events = EventsOnDay(events, cells[i].Date, loc)
	}
}
