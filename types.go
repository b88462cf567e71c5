package authflow

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Request is a single outbound call descriptor. It is ephemeral: the
// pipeline never retains it beyond the call (and its single retry).
//
// Body is JSON-encoded when non-nil. Header carries extra headers; the
// Authorization header must be left unset, the pipeline owns it.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Response is the outcome of a successful call: any 2xx status. The raw
// body is retained so callers decide how (and whether) to decode it.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v. An undecodable body yields
// an error wrapping [ErrMalformedResponse].
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// AuthResult is the payload returned by login, registration, and refresh.
// Field names follow the server wire format.
type AuthResult struct {
	Message      string `json:"message"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"token_expires_in"`
}

// RegisterParams carries the minimal data set required to create an
// account. TermsAccepted must be true; the server rejects it otherwise.
type RegisterParams struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name,omitempty"`
	MarketingConsent bool   `json:"marketing_consent"`
	TermsAccepted    bool   `json:"terms_accepted"`
}
