package authenticator

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

// randomBytes is the entropy used for both state and nonce
const randomBytes = 32

// AuthRequest is the per-login CSRF state and replay nonce
type AuthRequest struct {
	State string
	Nonce string
}

// NewAuthRequest draws a fresh state and nonce from crypto/rand
func NewAuthRequest() (AuthRequest, error) {
	state, err := randomToken()
	if err != nil {
		return AuthRequest{}, fmt.Errorf("unable to generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return AuthRequest{}, fmt.Errorf("unable to generate nonce: %w", err)
	}
	if state == nonce {
		return AuthRequest{}, errors.New("state and nonce must differ")
	}
	return AuthRequest{State: state, Nonce: nonce}, nil
}

// ValidateState compares the state returned by the provider with the one
// stored at login. A missing stored state never validates.
func ValidateState(stored, received string) error {
	if stored == "" || received == "" {
		return ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(received)) != 1 {
		return ErrStateMismatch
	}
	return nil
}

func randomToken() (string, error) {
	b := make([]byte, randomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
