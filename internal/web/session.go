package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"calview/internal/calendar"
	appLog "calview/internal/log"
)

const (
	sessionCookie  = "calview_session"
	sessionIdleTTL = 12 * time.Hour
)

// session owns one browser's navigator. The mutex serializes navigation so
// the navigator keeps a single logical owner.
type session struct {
	mu       sync.Mutex
	nav      *calendar.Navigator
	lastSeen time.Time
}

// sessionStore keeps navigators in memory only; they are rebuilt on restart.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	clock    calendar.Clock
	loc      *time.Location
}

func newSessionStore(clock calendar.Clock, loc *time.Location) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		clock:    clock,
		loc:      loc,
	}
}

// get returns the caller's session, creating one (and setting the cookie)
// when the request carries no known session id.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	now := st.clock()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictLocked(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := st.sessions[c.Value]; ok {
			s.lastSeen = now
			return s
		}
	}

	id := uuid.NewString()
	s := &session{nav: calendar.NewNavigator(st.clock, st.loc), lastSeen: now}
	st.sessions[id] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	appLog.Debug("session created", "id", id, "sessions", len(st.sessions))
	return s
}

func (st *sessionStore) evictLocked(now time.Time) {
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > sessionIdleTTL {
			delete(st.sessions, id)
		}
	}
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
