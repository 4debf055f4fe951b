package security

import (
	"encoding/json"
	"net/url"

	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
)

const stateUsage = "oauth-state"

// RedirectValidator checks a redirect target against the configured
// allow-list of origin prefixes.
type RedirectValidator interface {
	IsValidRedirectURI(uri string) bool
}

// OAuthState carries login-flow continuation info through the identity
// provider redirect round-trip. It travels as the encrypted state
// parameter, so no server-side storage is involved.
type OAuthState struct {
	RedirectURI string `json:"redirectUri"`
	ErrorURI    string `json:"errorUri,omitempty"`
}

// NewOAuthState validates both URIs against the allow-list before
// anything else happens. An invalid URI fails with ErrInvalidRequest and
// no state is built.
func NewOAuthState(validator RedirectValidator, redirectURI, errorURI string) (*OAuthState, error) {
	if redirectURI == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[NewOAuthState] missing redirect_uri")
	}
	if !validator.IsValidRedirectURI(redirectURI) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[NewOAuthState] illegal redirect_uri %q", redirectURI)
	}
	if !validator.IsValidRedirectURI(errorURI) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "[NewOAuthState] illegal error_uri %q", errorURI)
	}
	return &OAuthState{RedirectURI: redirectURI, ErrorURI: errorURI}, nil
}

// Encode serializes the state and encrypts it into an opaque token.
func (s *OAuthState) Encode(encryptor *Encryptor) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", apperrors.Wrapf(err, "[OAuthState.Encode] marshal")
	}
	return encryptor.EncryptToString(payload, stateUsage)
}

// DecodeOAuthState decrypts and deserializes a state token. Any failure
// is ErrDecode; callers must treat it as fatal for the request.
func DecodeOAuthState(token string, encryptor *Encryptor) (*OAuthState, error) {
	payload, err := encryptor.DecryptString(token, stateUsage)
	if err != nil {
		return nil, err
	}
	var state OAuthState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDecode, "[DecodeOAuthState] unmarshal")
	}
	if state.RedirectURI == "" {
		return nil, apperrors.Wrapf(apperrors.ErrDecode, "[DecodeOAuthState] empty redirect_uri")
	}
	return &state, nil
}

// ErrorRedirect appends the provider error as query parameters to the
// error destination, falling back to the redirect destination when no
// error_uri was given.
func (s *OAuthState) ErrorRedirect(errorCode, errorDescription string) string {
	target := s.ErrorURI
	if target == "" {
		target = s.RedirectURI
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	query := parsed.Query()
	if errorCode != "" {
		query.Set("error", errorCode)
	}
	if errorDescription != "" {
		query.Set("error_description", errorDescription)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
