package credstore

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backing storage cannot be reached.
// Callers treat persistence as best-effort and must not let this error
// abort an in-memory credential update.
var ErrUnavailable = errors.New("credential storage unavailable")

// Pair is the credential pair as persisted. A zero Pair means no stored
// credentials.
type Pair struct {
	Access  string
	Refresh string
}

// Empty reports whether the pair carries no access credential.
func (p Pair) Empty() bool {
	return p.Access == ""
}

// Store is durable storage for a single credential pair.
//
// Save must replace the pair wholesale, never one half of it. Clear is
// idempotent. Load returns a zero Pair, not an error, when nothing is
// stored.
type Store interface {
	Load(ctx context.Context) (Pair, error)
	Save(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}
