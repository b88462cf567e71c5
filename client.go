package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/evergrow360/authflow/token"
)

// Client is the caller-facing surface of the SDK. Construct it through
// [Builder.Build]; the zero value is not usable.
//
// A Client owns the credential pair and the single-flight refresh state
// exclusively. All methods are safe for concurrent use.
type Client struct {
	config     Config
	baseURL    *url.URL
	httpClient *http.Client
	keeper     *keeper
	scheduler  *refreshScheduler
	flight     singleflight.Group
	metrics    *Metrics
	logger     *slog.Logger
	closed     atomic.Bool
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// Login authenticates with email and password and installs the returned
// credential pair. A rejected combination returns an error wrapping
// [ErrInvalidCredentials].
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.loginInternal(ctx, email, password, false)
}

// LoginRemembered is Login with the server-side remember-me flag, which
// extends the access credential lifetime.
func (c *Client) LoginRemembered(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.loginInternal(ctx, email, password, true)
}

func (c *Client) loginInternal(ctx context.Context, email, password string, remember bool) (*AuthResult, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	resp, err := c.dispatch(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.Endpoints.Login,
		Body:   loginRequest{Email: email, Password: password, RememberMe: remember},
	}, "")
	if err != nil {
		c.metrics.Inc(MetricCallTransportError)
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized {
		c.metrics.Inc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErrorFrom(resp).Message)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		c.metrics.Inc(MetricLoginFailure)
		return nil, apiErrorFrom(resp)
	}

	return c.installAuthResult(ctx, resp)
}

// Register creates an account and installs the credential pair the server
// issues alongside it. A duplicate email returns an error wrapping
// [ErrAccountExists].
func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	resp, err := c.dispatch(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.Endpoints.Register,
		Body:   params,
	}, "")
	if err != nil {
		c.metrics.Inc(MetricCallTransportError)
		return nil, err
	}

	if resp.Status == http.StatusConflict {
		c.metrics.Inc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, apiErrorFrom(resp).Message)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		c.metrics.Inc(MetricLoginFailure)
		return nil, apiErrorFrom(resp)
	}

	return c.installAuthResult(ctx, resp)
}

func (c *Client) installAuthResult(ctx context.Context, resp *Response) (*AuthResult, error) {
	var result AuthResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", ErrMalformedResponse)
	}

	c.keeper.set(ctx, result.AccessToken, result.RefreshToken)
	c.scheduleFor(result.AccessToken)
	c.metrics.Inc(MetricLoginSuccess)

	return &result, nil
}

// Logout clears the stored credential pair. The server is notified
// best-effort first; a failed notification still logs the caller out
// locally and returns nil.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	if access := c.keeper.access(); access != "" {
		if _, err := c.dispatch(ctx, Request{
			Method: http.MethodPost,
			Path:   c.config.Endpoints.Logout,
		}, access); err != nil {
			c.logger.Warn("logout notification failed", slog.String("err", err.Error()))
		}
	}

	c.scheduler.cancel()
	c.keeper.clear(ctx)
	c.metrics.Inc(MetricLogout)
	return nil
}

// VerifyToken asks the server whether the current access credential is
// valid and returns the authenticated subject identifier. It goes through
// the full pipeline, so a near-expired credential is refreshed along the
// way.
func (c *Client) VerifyToken(ctx context.Context) (string, error) {
	resp, err := c.Call(ctx, Request{
		Method: http.MethodGet,
		Path:   c.config.Endpoints.Verify,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Valid  bool   `json:"valid"`
		UserID string `json:"user_id"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	if !out.Valid {
		return "", ErrUnauthorized
	}
	return out.UserID, nil
}

// IsAuthenticated reports whether an access credential is present. It
// answers presence, not validity; only the server decides validity.
func (c *Client) IsAuthenticated() bool {
	return c.keeper.authenticated()
}

// SubjectID returns the subject identifier embedded in the current access
// credential, decoded locally without contacting the server. It is a
// display hint, never an authorization decision. Malformed or absent
// credentials yield the empty string.
func (c *Client) SubjectID() string {
	claims, err := decodeAccess(c.keeper.access())
	if err != nil {
		return ""
	}
	return claims.Subject
}

// MetricsSnapshot copies the client's internal counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Close stops the proactive-refresh scheduler and rejects further calls.
// Stored credentials are kept so a later client can resume the session.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.scheduler.stop()
}

func decodeAccess(access string) (*token.Claims, error) {
	if access == "" {
		return nil, token.ErrMalformed
	}
	return token.Decode(access)
}
