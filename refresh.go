package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// refreshCredentials coalesces concurrent refresh needs onto a single
// flight: the first caller issues the refresh, every caller arriving while
// it is in flight waits for the same outcome. The flight itself runs on a
// detached, timeout-bounded context so a caller abandoning interest cannot
// leave the credential store half-updated.
func (c *Client) refreshCredentials(ctx context.Context) (string, error) {
	ch := c.flight.DoChan("refresh", func() (any, error) {
		return c.doRefresh()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.Inc(MetricRefreshCoalesced)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// doRefresh exchanges the refresh credential for a new access credential.
//
// Any non-clean outcome — rejection, unexpected status, or an unusable
// response body — ends the session: the stored pair is cleared before the
// error is surfaced, so a later call can never replay a known-invalid
// refresh credential. A pure transport failure is the one exception; the
// refresh credential may still be good, so it is kept and the error
// propagates as-is.
//
// Because the flight is detached, the keeper may be mutated while it is
// in flight (Logout, a new Login). The generation captured here guards
// every keeper write below: a flight landing after such a mutation must
// not resurrect or destroy the newer state.
func (c *Client) doRefresh() (string, error) {
	refresh, gen := c.keeper.refreshSnapshot()
	if refresh == "" {
		c.metrics.Inc(MetricRefreshFailure)
		return "", fmt.Errorf("%w: no refresh credential", ErrReauthRequired)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.HTTP.RefreshTimeout)
	defer cancel()

	// The refresh endpoint authenticates with the refresh credential in
	// the bearer slot.
	resp, err := c.dispatch(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.Endpoints.Refresh,
	}, refresh)
	if err != nil {
		c.metrics.Inc(MetricCallTransportError)
		return "", err
	}

	if resp.Status == http.StatusUnauthorized {
		c.failRefresh(ctx, gen, "refresh credential rejected")
		return "", fmt.Errorf("%w: %w", ErrReauthRequired, ErrRefreshInvalid)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		c.failRefresh(ctx, gen, "refresh returned error status")
		return "", fmt.Errorf("%w: %w", ErrReauthRequired, apiErrorFrom(resp))
	}

	var result AuthResult
	if err := resp.Decode(&result); err != nil || result.AccessToken == "" {
		c.failRefresh(ctx, gen, "refresh response unusable")
		return "", fmt.Errorf("%w: %w", ErrReauthRequired, ErrMalformedResponse)
	}

	// The server may rotate the refresh credential; keep the old one when
	// it does not.
	if result.RefreshToken == "" {
		result.RefreshToken = refresh
	}

	if c.keeper.setIf(ctx, gen, result.AccessToken, result.RefreshToken) {
		c.scheduleFor(result.AccessToken)
	} else {
		c.logger.Debug("refresh result discarded, credentials changed mid-flight")
	}
	c.metrics.Inc(MetricRefreshSuccess)

	return result.AccessToken, nil
}

func (c *Client) failRefresh(ctx context.Context, gen uint64, reason string) {
	c.logger.Warn("refresh failed, clearing credentials", slog.String("reason", reason))
	if c.keeper.clearIf(ctx, gen) {
		c.scheduler.cancel()
	}
	c.metrics.Inc(MetricRefreshFailure)
}

// scheduleFor arms the proactive-refresh timer for the given access
// credential. Undecodable credentials disable proactive scheduling only;
// the 401-triggered path remains as fallback.
func (c *Client) scheduleFor(access string) {
	if c.config.Refresh.DisableProactive {
		return
	}

	claims, err := decodeAccess(access)
	if err != nil || claims.ExpiresAt.IsZero() {
		c.logger.Debug("proactive refresh unavailable for credential")
		c.scheduler.cancel()
		return
	}
	c.scheduler.scheduleAt(claims.ExpiresAt)
}

// proactiveRefresh is the scheduler's trigger. It runs detached from any
// caller.
func (c *Client) proactiveRefresh() {
	if c.closed.Load() {
		return
	}
	c.metrics.Inc(MetricRefreshProactive)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.HTTP.RefreshTimeout)
	defer cancel()

	if _, err := c.refreshCredentials(ctx); err != nil {
		c.logger.Warn("proactive refresh failed", slog.String("err", err.Error()))
	}
}
