package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamcatalog/catalog-auth/internal/config"
	"github.com/teamcatalog/catalog-auth/security"
	"github.com/teamcatalog/catalog-auth/server"
)

// fakeTokenProvider records what the handlers hand it and plays back
// canned results.
type fakeTokenProvider struct {
	sessionToken string
	createErr    error
	user         *security.CurrentUser
	resolveErr   error

	lastCode        string
	lastRedirectURI string
	destroyed       []string
}

func (f *fakeTokenProvider) AuthCodeURL(state, redirectURI string) string {
	return "https://login.example/authorize?" + url.Values{
		"state":        {state},
		"redirect_uri": {redirectURI},
	}.Encode()
}

func (f *fakeTokenProvider) CreateSession(ctx context.Context, code, redirectURI string) (string, error) {
	f.lastCode = code
	f.lastRedirectURI = redirectURI
	return f.sessionToken, f.createErr
}

func (f *fakeTokenProvider) DestroySession(ctx context.Context, token string) error {
	f.destroyed = append(f.destroyed, token)
	return nil
}

func (f *fakeTokenProvider) ResolveUser(ctx context.Context, token string) (*security.CurrentUser, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.user, nil
}

func newTestServer(t *testing.T, tokens *fakeTokenProvider) (*server.Server, *security.Encryptor) {
	t.Helper()
	t.Setenv("SECURITY_REDIRECT_URIS", "https://app.example,https://other.example")
	encryptor, err := security.NewGeneratedEncryptor()
	require.NoError(t, err)
	return server.New(config.New(), encryptor, tokens), encryptor
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == server.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func encodeState(t *testing.T, encryptor *security.Encryptor, redirectURI, errorURI string) string {
	t.Helper()
	state := &security.OAuthState{RedirectURI: redirectURI, ErrorURI: errorURI}
	token, err := state.Encode(encryptor)
	require.NoError(t, err)
	return token
}

func TestLoginHandler(t *testing.T) {
	t.Run("redirects to the identity provider with encoded state", func(t *testing.T) {
		srv, encryptor := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login?redirect_uri=https%3A%2F%2Fapp.example%2Fteams&error_uri=https%3A%2F%2Fapp.example%2Ferror", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "login.example", location.Host)
		require.Equal(t, "https://app.example/login/oauth2/code/azure", location.Query().Get("redirect_uri"))

		state, err := security.DecodeOAuthState(location.Query().Get("state"), encryptor)
		require.NoError(t, err)
		require.Equal(t, "https://app.example/teams", state.RedirectURI)
		require.Equal(t, "https://app.example/error", state.ErrorURI)
	})

	t.Run("derives redirect uri from the request", func(t *testing.T) {
		srv, encryptor := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://app.example/login", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		state, err := security.DecodeOAuthState(location.Query().Get("state"), encryptor)
		require.NoError(t, err)
		require.Equal(t, "https://app.example", state.RedirectURI)
	})

	t.Run("rejects unlisted redirect uri", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login?redirect_uri=https%3A%2F%2Fevil.example", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, rec.Header().Get("Location"), "no redirect may be built for an illegal target")
	})

	t.Run("rejects unlisted error uri", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login?error_uri=https%3A%2F%2Fevil.example", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCallbackHandler(t *testing.T) {
	t.Run("exchanges the code, sets the cookie and redirects", func(t *testing.T) {
		tokens := &fakeTokenProvider{sessionToken: "opaque-session"}
		srv, encryptor := newTestServer(t, tokens)
		state := encodeState(t, encryptor, "https://app.example/teams", "")

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login/oauth2/code/azure?code=auth-code&state="+url.QueryEscape(state), nil))

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "https://app.example/teams", rec.Header().Get("Location"))
		require.Equal(t, "auth-code", tokens.lastCode)
		require.Equal(t, "https://app.example/login/oauth2/code/azure", tokens.lastRedirectURI)

		cookie := sessionCookie(t, rec)
		require.NotNil(t, cookie)
		require.Equal(t, "opaque-session", cookie.Value)
		require.True(t, cookie.HttpOnly)
		require.Equal(t, 14*24*60*60, cookie.MaxAge)
	})

	t.Run("relays provider errors to the error destination", func(t *testing.T) {
		srv, encryptor := newTestServer(t, &fakeTokenProvider{})
		state := encodeState(t, encryptor, "https://app.example/teams", "https://app.example/error")

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login/oauth2/code/azure?error=access_denied&error_description=declined&state="+url.QueryEscape(state), nil))

		require.Equal(t, http.StatusFound, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/error", location.Path)
		require.Equal(t, "access_denied", location.Query().Get("error"))
		require.Equal(t, "declined", location.Query().Get("error_description"))
		require.Nil(t, sessionCookie(t, rec), "error path must not set a cookie")
	})

	t.Run("rejects an unknown registration id", func(t *testing.T) {
		srv, encryptor := newTestServer(t, &fakeTokenProvider{})
		state := encodeState(t, encryptor, "https://app.example", "")

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login/oauth2/code/github?code=auth-code&state="+url.QueryEscape(state), nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("undecodable state is fatal", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login/oauth2/code/azure?code=auth-code&state=garbage", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Nil(t, sessionCookie(t, rec))
	})

	t.Run("missing state is fatal", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/login/oauth2/code/azure?code=auth-code", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Run("clears the cookie and redirects", func(t *testing.T) {
		tokens := &fakeTokenProvider{}
		srv, _ := newTestServer(t, tokens)

		req := httptest.NewRequest(http.MethodGet,
			"https://app.example/logout?redirect_uri=https%3A%2F%2Fapp.example", nil)
		req.AddCookie(&http.Cookie{Name: server.SessionCookieName, Value: "opaque-session"})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "https://app.example", rec.Header().Get("Location"))
		require.Equal(t, []string{"opaque-session"}, tokens.destroyed)

		cookie := sessionCookie(t, rec)
		require.NotNil(t, cookie)
		require.Empty(t, cookie.Value)
		require.Equal(t, -1, cookie.MaxAge, "cookie must expire immediately")
	})

	t.Run("answers 200 without a redirect uri", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://app.example/logout", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Location"))
		require.NotNil(t, sessionCookie(t, rec))
	})

	t.Run("rejects unlisted redirect uri", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"https://app.example/logout?redirect_uri=https%3A%2F%2Fevil.example", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Nil(t, sessionCookie(t, rec), "validation must precede cookie destruction")
	})
}

func TestUserInfoHandler(t *testing.T) {
	t.Run("anonymous request gets the no-user payload", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakeTokenProvider{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://app.example/userinfo", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"loggedIn":false,"securityEnabled":true}`, rec.Body.String())
	})

	t.Run("invalid session still answers 200", func(t *testing.T) {
		tokens := &fakeTokenProvider{resolveErr: context.DeadlineExceeded}
		srv, _ := newTestServer(t, tokens)

		req := httptest.NewRequest(http.MethodGet, "https://app.example/userinfo", nil)
		req.AddCookie(&http.Cookie{Name: server.SessionCookieName, Value: "stale"})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"loggedIn":false,"securityEnabled":true}`, rec.Body.String())
	})

	t.Run("authenticated request gets the user projection", func(t *testing.T) {
		tokens := &fakeTokenProvider{user: &security.CurrentUser{
			Ident: "A123456",
			Name:  "Test Person",
			Email: "test@example.com",
			Roles: []string{security.RoleRead, security.RoleWrite},
		}}
		srv, _ := newTestServer(t, tokens)

		req := httptest.NewRequest(http.MethodGet, "https://app.example/userinfo", nil)
		req.AddCookie(&http.Cookie{Name: server.SessionCookieName, Value: "opaque-session"})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{
			"loggedIn": true,
			"securityEnabled": true,
			"ident": "A123456",
			"name": "Test Person",
			"email": "test@example.com",
			"roles": ["READ", "WRITE"]
		}`, rec.Body.String())
	})
}
