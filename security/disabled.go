package security

import (
	"context"

	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
)

// DisabledTokenProvider backs deployments with security turned off. Login
// attempts fail, userinfo always resolves to no user.
type DisabledTokenProvider struct{}

var _ TokenProvider = DisabledTokenProvider{}

func (DisabledTokenProvider) AuthCodeURL(state, redirectURI string) string {
	return redirectURI
}

func (DisabledTokenProvider) CreateSession(ctx context.Context, code, redirectURI string) (string, error) {
	return "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "[CreateSession] security is disabled")
}

func (DisabledTokenProvider) DestroySession(ctx context.Context, token string) error {
	return nil
}

func (DisabledTokenProvider) ResolveUser(ctx context.Context, token string) (*CurrentUser, error) {
	return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "[ResolveUser] security is disabled")
}
