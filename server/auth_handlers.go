package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
	"github.com/teamcatalog/catalog-auth/security"
)

// LoginHandler starts the login flow: validates the redirect targets,
// encodes them into the encrypted state token and redirects to the
// identity provider's authorization endpoint.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirect_uri")
		errorURI := r.URL.Query().Get("error_uri")

		// Validation precedes all side effects: a bad target means no
		// redirect gets built at all.
		if !s.config.IsValidRedirectURI(redirectURI) || !s.config.IsValidRedirectURI(errorURI) {
			s.writeError(w, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[LoginHandler] illegal redirect target"))
			return
		}
		if redirectURI == "" {
			redirectURI = siteRoot(r)
		}

		state, err := security.NewOAuthState(s.config, redirectURI, errorURI)
		if err != nil {
			s.writeError(w, err)
			return
		}
		token, err := state.Encode(s.encryptor)
		if err != nil {
			s.writeError(w, err)
			return
		}

		http.Redirect(w, r, s.tokens.AuthCodeURL(token, s.callbackURL(r)), http.StatusFound)
	}
}

// CallbackHandler finishes the flow. Exactly one of two paths runs: a
// code is exchanged for a session cookie and the user lands on the
// original destination, or the provider error is relayed to the error
// destination.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("registrationId") != s.config.GetRegistrationID() {
			s.writeError(w, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[CallbackHandler] invalid registrationId"))
			return
		}

		// Without a decodable state there is nowhere to redirect, so
		// decode failure is fatal for the request.
		state, err := security.DecodeOAuthState(r.URL.Query().Get("state"), s.encryptor)
		if err != nil {
			s.writeError(w, err)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errorCode := r.URL.Query().Get("error")
			errorDescription := r.URL.Query().Get("error_description")
			log.Warn().Str("error", errorCode).Msg("login rejected by identity provider")
			http.Redirect(w, r, state.ErrorRedirect(errorCode, errorDescription), http.StatusFound)
			return
		}

		session, err := s.tokens.CreateSession(r.Context(), code, fullRequestURLWithoutQuery(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.setSessionCookie(w, r, session, int(s.config.GetSessionDuration().Seconds()))
		http.Redirect(w, r, state.RedirectURI, http.StatusFound)
	}
}

// LogoutHandler destroys the session and clears the cookie. With a
// redirect_uri it responds 302, otherwise 200.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirect_uri")
		if !s.config.IsValidRedirectURI(redirectURI) {
			s.writeError(w, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[LogoutHandler] illegal redirect_uri %q", redirectURI))
			return
		}

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			if err := s.tokens.DestroySession(r.Context(), cookie.Value); err != nil {
				log.Warn().Err(err).Msg("failed to destroy session")
			}
		}
		s.clearSessionCookie(w, r)

		if redirectURI == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		state, err := security.NewOAuthState(s.config, redirectURI, "")
		if err != nil {
			s.writeError(w, err)
			return
		}
		http.Redirect(w, r, state.RedirectURI, http.StatusFound)
	}
}

// UserInfoHandler always answers 200: either the authenticated user's
// projection, or a no-user payload that still reports whether
// authentication is enabled for the deployment.
func (s *Server) UserInfoHandler() http.HandlerFunc {
	return s.resolveUser(func(w http.ResponseWriter, r *http.Request, user *security.CurrentUser) {
		if user == nil {
			s.writeJSON(w, http.StatusOK, noUserResponse(s.config.IsEnabled()))
			return
		}
		s.writeJSON(w, http.StatusOK, newUserInfoResponse(user))
	})
}

// siteRoot derives the default post-login destination from the request:
// the full URL with the trailing /login segment and anything after it
// stripped.
func siteRoot(r *http.Request) string {
	full := fullRequestURLWithoutQuery(r)
	if i := strings.Index(full, RouteLogin); i >= 0 {
		full = full[:i]
	}
	return full
}

func fullRequestURLWithoutQuery(r *http.Request) string {
	return getScheme(r) + "://" + r.Host + r.URL.Path
}

// callbackURL is the redirect_uri registered with the identity provider,
// derived from the host that initiated the flow.
func (s *Server) callbackURL(r *http.Request) string {
	return getScheme(r) + "://" + r.Host + callbackPathPrefix + s.config.GetRegistrationID()
}
