package security

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/tink"

	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
)

// Encryptor produces and consumes opaque tokens. Anything encrypted with
// it is tamper-evident to any party lacking the keyset.
type Encryptor struct {
	primitive tink.AEAD
}

// NewEncryptor builds an Encryptor from a cleartext tink keyset in JSON
// form, as produced by GenerateKeyset.
func NewEncryptor(serializedKeyset string) (*Encryptor, error) {
	handle, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(strings.NewReader(serializedKeyset)))
	if err != nil {
		return nil, fmt.Errorf("[NewEncryptor] failed to read keyset: %w", err)
	}
	return newEncryptor(handle)
}

// NewGeneratedEncryptor mints a fresh AES-256-GCM keyset. Tokens become
// undecodable on restart, only suitable for dev and tests.
func NewGeneratedEncryptor() (*Encryptor, error) {
	handle, err := keyset.NewHandle(aead.AES256GCMKeyTemplate())
	if err != nil {
		return nil, fmt.Errorf("[NewGeneratedEncryptor] failed to create keyset: %w", err)
	}
	return newEncryptor(handle)
}

func newEncryptor(handle *keyset.Handle) (*Encryptor, error) {
	primitive, err := aead.New(handle)
	if err != nil {
		return nil, fmt.Errorf("[newEncryptor] failed to create AEAD primitive: %w", err)
	}
	return &Encryptor{primitive: primitive}, nil
}

// EncryptToString encrypts plaintext bound to the given usage and encodes
// the ciphertext as base64url.
func (e *Encryptor) EncryptToString(plaintext []byte, usage string) (string, error) {
	ciphertext, err := e.primitive.Encrypt(plaintext, []byte(usage))
	if err != nil {
		return "", fmt.Errorf("[EncryptToString] encrypt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptToString. Malformed encoding, truncated
// ciphertext, a wrong key or a wrong usage all fail with ErrDecode.
func (e *Encryptor) DecryptString(token, usage string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDecode, "[DecryptString] invalid encoding")
	}
	plaintext, err := e.primitive.Decrypt(ciphertext, []byte(usage))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDecode, "[DecryptString] decrypt failed")
	}
	return plaintext, nil
}

// GenerateKeyset returns a new cleartext AES-256-GCM keyset in JSON form,
// for provisioning SECURITY_ENC_KEYSET.
func GenerateKeyset() (string, error) {
	handle, err := keyset.NewHandle(aead.AES256GCMKeyTemplate())
	if err != nil {
		return "", fmt.Errorf("[GenerateKeyset] failed to create keyset: %w", err)
	}
	var sb strings.Builder
	if err := insecurecleartextkeyset.Write(handle, keyset.NewJSONWriter(&sb)); err != nil {
		return "", fmt.Errorf("[GenerateKeyset] failed to serialize keyset: %w", err)
	}
	return sb.String(), nil
}
