package authenticator

import (
	"errors"
	"fmt"
)

var (
	ErrDiscovery      = errors.New("provider discovery failed")
	ErrNotInitialized = errors.New("OpenID client not initialized")
	ErrStateMismatch  = errors.New("state verification failed")
	ErrTokenExchange  = errors.New("token exchange failed")
	ErrUserInfo       = errors.New("user info failed")
	ErrTokenExpired   = errors.New("token is expired")
)

// ProviderError describes a failed call to the identity provider. Kind is one
// of the sentinel errors above and matches with errors.Is.
type ProviderError struct {
	Op         string
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == e.Kind }
