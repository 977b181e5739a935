package calendar

import (
	"fmt"
	"time"
)

// View is the calendar presentation currently shown.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewMonth, ViewWeek, ViewDay:
		return v, nil
	default:
		return "", fmt.Errorf("calendar: unknown view %q", s)
	}
}

// NavigatorState is the session-scoped navigation state.
type NavigatorState struct {
	View     View  `json:"view"`
	Anchor   Date  `json:"anchor_date"`
	Selected *Date `json:"selected_date"`
}

// Clock returns the current instant.
type Clock func() time.Time

// Navigator moves the anchor date between months, weeks and days. Every
// operation is defined for every view, so there is no error state.
// A Navigator is owned by a single caller and is not safe for concurrent use.
type Navigator struct {
	state NavigatorState
	now   Clock
	loc   *time.Location
}

// NewNavigator starts in month view anchored on today. A nil clock means
// time.Now and a nil loc means UTC.
func NewNavigator(now Clock, loc *time.Location) *Navigator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Navigator{
		state: NavigatorState{View: ViewMonth, Anchor: Today(now(), loc)},
		now:   now,
		loc:   loc,
	}
}

// State returns a copy of the current state.
func (n *Navigator) State() NavigatorState {
	s := n.state
	if s.Selected != nil {
		sel := *s.Selected
		s.Selected = &sel
	}
	return s
}

// Next advances the anchor by one unit of the current view.
func (n *Navigator) Next() NavigatorState {
	n.state.Anchor = step(n.state.View, n.state.Anchor, 1)
	return n.State()
}

// Previous moves the anchor back by one unit of the current view.
func (n *Navigator) Previous() NavigatorState {
	n.state.Anchor = step(n.state.View, n.state.Anchor, -1)
	return n.State()
}

// Today resets the anchor to the current day; the view is unchanged.
func (n *Navigator) Today() NavigatorState {
	n.state.Anchor = Today(n.now(), n.loc)
	return n.State()
}

// SelectDate records the selected day. From month view it also drills down
// into the day view anchored on that day.
func (n *Navigator) SelectDate(d Date) NavigatorState {
	n.state.Selected = &d
	if n.state.View == ViewMonth {
		n.state.View = ViewDay
		n.state.Anchor = d
	}
	return n.State()
}

// SetView switches the view, keeping the anchor.
func (n *Navigator) SetView(v View) NavigatorState {
	n.state.View = v
	return n.State()
}

func step(v View, d Date, dir int) Date {
	switch v {
	case ViewWeek:
		return AddDays(d, 7*dir)
	case ViewDay:
		return AddDays(d, dir)
	default:
		return AddMonths(d, dir)
	}
}
