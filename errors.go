package authflow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the server rejects the presented
	// access credential and the failure could not be recovered by a refresh.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrReauthRequired is returned when the session is no longer
	// recoverable: the refresh credential is absent, rejected, or the
	// refresh response was unusable. Stored credentials are always cleared
	// before this error is surfaced.
	ErrReauthRequired = errors.New("re-authentication required")
	// ErrInvalidCredentials is returned by Login when the server rejects
	// the email/password combination.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Register when an account with the
	// same email already exists.
	ErrAccountExists = errors.New("account already exists")
	// ErrRefreshInvalid is returned when the refresh endpoint rejects the
	// refresh credential. It is always wrapped in ErrReauthRequired.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrMalformedResponse is returned when the server answered but the
	// body could not be decoded. Distinct from transport errors so callers
	// can tell "server unreachable" from "server responded badly".
	ErrMalformedResponse = errors.New("malformed server response")
	// ErrAuthorizationHeaderReserved is returned when a caller pre-attaches
	// an Authorization header. The pipeline owns that header exclusively.
	ErrAuthorizationHeaderReserved = errors.New("authorization header is reserved for the client")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
)

// APIError describes a non-2xx response from a business or auth endpoint.
//
// A 401 status unwraps to [ErrUnauthorized] so callers can use errors.Is
// without inspecting the status code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Unwrap maps authorization failures onto the package sentinel.
func (e *APIError) Unwrap() error {
	if e.Status == 401 {
		return ErrUnauthorized
	}
	return nil
}
