package server

import (
	"net/http"

	"github.com/teamcatalog/catalog-auth/security"
)

// SessionCookieName is the fixed name of the session cookie.
const SessionCookieName = "catalog-session"

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearSessionCookie overwrites the session cookie with an immediately
// expiring empty value.
func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, user *security.CurrentUser)

// resolveUser turns the session cookie into an explicit CurrentUser for
// the wrapped handler. An absent or invalid session is a nil user, never
// an error.
func (s *Server) resolveUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user *security.CurrentUser
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			if resolved, err := s.tokens.ResolveUser(r.Context(), cookie.Value); err == nil {
				user = resolved
			}
		}
		next(w, r, user)
	}
}
