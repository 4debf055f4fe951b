package security

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/teamcatalog/catalog-auth/internal/config"
	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
	"github.com/teamcatalog/catalog-auth/internal/utils"
)

const sessionUsage = "session"

// TokenProvider exchanges authorization codes for sessions and resolves
// session tokens back to users.
type TokenProvider interface {
	// AuthCodeURL builds the identity-provider authorization request URL
	// carrying the encoded state and the callback redirect URI.
	AuthCodeURL(state, redirectURI string) string
	// CreateSession exchanges an authorization code for a session token.
	// redirectURI must be the full callback URL without query string.
	CreateSession(ctx context.Context, code, redirectURI string) (string, error)
	// DestroySession invalidates a session token.
	DestroySession(ctx context.Context, token string) error
	// ResolveUser returns the user for a session token, or an error if
	// the token is invalid or expired.
	ResolveUser(ctx context.Context, token string) (*CurrentUser, error)
}

type sessionClaims struct {
	Ident string   `json:"ident"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AzureTokenProvider implements TokenProvider against an Azure AD tenant.
// Sessions are stateless: a signed JWT encrypted into an opaque token, so
// DestroySession has nothing to tear down server-side.
type AzureTokenProvider struct {
	cfg        config.Config
	oauth      *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	encryptor  *Encryptor
	signingKey []byte
	nowTime    func() time.Time
}

var _ TokenProvider = (*AzureTokenProvider)(nil)

// NewAzureTokenProvider discovers the issuer's endpoints and prepares the
// code-exchange configuration.
func NewAzureTokenProvider(ctx context.Context, cfg config.Config, encryptor *Encryptor) (*AzureTokenProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.GetIssuerURL())
	if err != nil {
		return nil, fmt.Errorf("[NewAzureTokenProvider] provider discovery: %w", err)
	}
	return &AzureTokenProvider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			Endpoint:     provider.Endpoint(),
			Scopes:       append([]string{oidc.ScopeOpenID}, cfg.GetGraphScopes()...),
		},
		verifier:   provider.Verifier(&oidc.Config{ClientID: cfg.GetClientID()}),
		encryptor:  encryptor,
		signingKey: sessionSigningKey(cfg.GetEncryptionKeyset()),
		nowTime:    time.Now,
	}, nil
}

func (p *AzureTokenProvider) AuthCodeURL(state, redirectURI string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
}

func (p *AzureTokenProvider) CreateSession(ctx context.Context, code, redirectURI string) (string, error) {
	token, err := p.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrRemoteCall, "[CreateSession] code exchange: %v", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrRemoteCall, "[CreateSession] no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrRemoteCall, "[CreateSession] id_token verification: %v", err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("[CreateSession] failed to extract claims: %w", err)
	}

	now := p.nowTime()
	session := sessionClaims{
		Ident: stringClaim(claims, p.cfg.GetIdentClaim()),
		Name:  stringClaim(claims, "name"),
		Email: stringClaim(claims, "preferred_username"),
		Roles: rolesForGroups(stringSliceClaim(claims, "groups"), p.cfg.GetWriteGroups(), p.cfg.GetAdminGroups()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   idToken.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.GetSessionDuration())),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session).SignedString(p.signingKey)
	if err != nil {
		return "", fmt.Errorf("[CreateSession] failed to sign session: %w", err)
	}
	return p.encryptor.EncryptToString([]byte(signed), sessionUsage)
}

// DestroySession is a no-op: sessions are stateless, logout is cookie
// destruction at the HTTP layer.
func (p *AzureTokenProvider) DestroySession(ctx context.Context, token string) error {
	return nil
}

func (p *AzureTokenProvider) ResolveUser(ctx context.Context, token string) (*CurrentUser, error) {
	signed, err := p.encryptor.DecryptString(token, sessionUsage)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "[ResolveUser] undecryptable session")
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(string(signed), &claims, func(t *jwt.Token) (interface{}, error) {
		return p.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.nowTime))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "[ResolveUser] %v", err)
	}

	return &CurrentUser{
		Ident: claims.Ident,
		Name:  claims.Name,
		Email: claims.Email,
		Roles: claims.Roles,
	}, nil
}

// sessionSigningKey derives a stable HMAC key from the configured keyset.
// Without a configured keyset the key is random and sessions do not
// survive a restart, matching the ephemeral encryptor.
func sessionSigningKey(serializedKeyset string) []byte {
	if serializedKeyset == "" {
		key := make([]byte, 32)
		rand.Read(key)
		return key
	}
	sum := sha256.Sum256([]byte(sessionUsage + ":" + serializedKeyset))
	return sum[:]
}

func stringClaim(claims map[string]interface{}, name string) string {
	if value, ok := claims[name].(string); ok {
		return value
	}
	return ""
}

func stringSliceClaim(claims map[string]interface{}, name string) []string {
	values, ok := claims[name].([]interface{})
	if !ok {
		return nil
	}
	return utils.ToStringSlice(values)
}
