package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/omrishi123/tractortrack/internal/services"
)

// UserHeader carries the account id on every /api request.
const UserHeader = "X-User-ID"

type ctxKey string

const sessionKey ctxKey = "session"

func withSession(ctx context.Context, s *services.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// sessionFrom returns the session attached by requireUser.
func sessionFrom(r *http.Request) *services.Session {
	s, _ := r.Context().Value(sessionKey).(*services.Session)
	return s
}

// userID reads the account id header.
func userID(r *http.Request) string {
	return sanitizeInput(r.Header.Get(UserHeader))
}

// pathID returns a trimmed chi URL parameter.
func pathID(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
