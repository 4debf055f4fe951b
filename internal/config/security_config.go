package config

import (
	"strings"
	"time"
)

type SecurityConfig interface {
	IsEnabled() bool
	GetRedirectURIs() []string
	IsValidRedirectURI(uri string) bool
	GetEncryptionKeyset() string
	GetIdentClaim() string
	GetWriteGroups() []string
	GetAdminGroups() []string
	GetSessionDuration() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) IsEnabled() bool {
	return GetEnv("SECURITY_ENABLED", "true") == "true"
}

// GetRedirectURIs returns the allow-listed origin prefixes for
// redirect_uri and error_uri parameters.
func (Security) GetRedirectURIs() []string {
	return splitList(GetEnv("SECURITY_REDIRECT_URIS", ""))
}

// IsValidRedirectURI accepts an empty uri, or a uri starting with one of
// the allow-listed origin prefixes. Matching is case-insensitive.
func (s Security) IsValidRedirectURI(uri string) bool {
	if uri == "" {
		return true
	}
	candidate := strings.ToLower(uri)
	for _, origin := range s.GetRedirectURIs() {
		if strings.HasPrefix(candidate, strings.ToLower(origin)) {
			return true
		}
	}
	return false
}

// GetEncryptionKeyset returns the tink keyset (JSON) used for the state
// token and session signing. Empty means generate an ephemeral keyset.
func (Security) GetEncryptionKeyset() string {
	return GetEnv("SECURITY_ENC_KEYSET", "")
}

func (Security) GetIdentClaim() string {
	return GetEnv("SECURITY_IDENT_CLAIM", "NAVident")
}

func (Security) GetWriteGroups() []string {
	return splitList(GetEnv("SECURITY_WRITE_GROUPS", ""))
}

func (Security) GetAdminGroups() []string {
	return splitList(GetEnv("SECURITY_ADMIN_GROUPS", ""))
}

func (Security) GetSessionDuration() time.Duration {
	return 14 * 24 * time.Hour
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
