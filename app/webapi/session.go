package webapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/umputun/spamdash/lib/history"
)

const sessionCookie = "spamdash_session"

// session returns history of the request's session, making a new session if the cookie
// is missing or the session expired. Each access prolongs the session.
// Must be called before the response body is written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *history.Store {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if hist, ok := s.sessions.Get(c.Value); ok {
			s.sessions.Set(c.Value, hist, s.SessionTTL)
			return hist
		}
	}

	id := uuid.NewString()
	hist := history.NewStore(s.HistorySize)
	s.sessions.Set(id, hist, s.SessionTTL)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return hist
}
