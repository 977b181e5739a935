package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"calview/internal/calendar"
	appLog "calview/internal/log"
)

//go:embed templates/calendar.html.tmpl
var templateFS embed.FS

var calendarTemplate = template.Must(
	template.New("calendar.html.tmpl").
		Funcs(template.FuncMap{
			// pct renders a layout percentage as a CSS length.
			"pct": func(v float64) template.CSS {
				return template.CSS(fmt.Sprintf("%.4f%%", v))
			},
		}).
		ParseFS(templateFS, "templates/calendar.html.tmpl"),
)

// pageData is what the calendar template renders. Exactly one of Month or
// Timelines is populated.
type pageData struct {
	Title     string
	View      calendar.View
	Today     calendar.Date
	Month     *monthResponse
	Timelines []dayTimelineDTO
}

// handleCalendarPage renders the session's current view as HTML. This is
// the page captured into preview.png.
//
// GET /calendar?view=week&date=2024-03-13 overrides the session state for
// this request only.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.mu.Lock()
	state := sess.nav.State()
	sess.mu.Unlock()

	q := r.URL.Query()
	if v := q.Get("view"); v != "" {
		view, err := calendar.ParseView(v)
		if err != nil {
			http.Error(w, "invalid view", http.StatusBadRequest)
			return
		}
		state.View = view
	}
	if d := q.Get("date"); d != "" {
		date, err := calendar.ParseDate(d)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		state.Anchor = date
	}

	resp := s.navigatorView(state)
	data := pageData{
		View:  state.View,
		Today: s.engine.Today(s.clock()),
	}
	switch {
	case resp.Month != nil:
		data.Title = fmt.Sprintf("%s %d", resp.Month.Month, resp.Month.Year)
		data.Month = resp.Month
	case resp.Week != nil:
		data.Title = "Week of " + resp.Week.Cells[0].Date.String()
		data.Timelines = resp.Week.Timelines
	case resp.Day != nil:
		data.Title = resp.Day.Timeline.Date.String()
		data.Timelines = []dayTimelineDTO{resp.Day.Timeline}
	}

	var buf bytes.Buffer
	if err := calendarTemplate.Execute(&buf, data); err != nil {
		appLog.Error("failed to render calendar page", err, "view", state.View)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
