package authflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/evergrow360/authflow/credstore"
)

// keeper is the single source of truth for the current credential pair.
// The in-memory pair is authoritative; every mutation is mirrored to the
// durable store best-effort, so storage failures degrade persistence but
// never the session.
type keeper struct {
	mu     sync.RWMutex
	pair   credstore.Pair
	gen    uint64
	store  credstore.Store
	logger *slog.Logger

	// persistFailed is invoked once per failed mirror write. May be nil.
	persistFailed func()
}

func newKeeper(store credstore.Store, logger *slog.Logger) *keeper {
	return &keeper{store: store, logger: logger}
}

// restore loads any persisted pair into memory. Storage errors leave the
// keeper empty; the caller simply starts unauthenticated.
func (k *keeper) restore(ctx context.Context) {
	pair, err := k.store.Load(ctx)
	if err != nil {
		k.logger.Warn("credential restore failed", slog.String("err", err.Error()))
		return
	}
	k.mu.Lock()
	k.pair = pair
	k.gen++
	k.mu.Unlock()
}

// set replaces the pair wholesale. Readers never observe a half-updated
// pair.
func (k *keeper) set(ctx context.Context, access, refresh string) {
	pair := credstore.Pair{Access: access, Refresh: refresh}

	k.mu.Lock()
	k.pair = pair
	k.gen++
	k.mu.Unlock()

	k.persistSave(ctx, pair)
}

// setIf installs the pair only when no other mutation happened since gen
// was observed. Reports whether the install took place.
func (k *keeper) setIf(ctx context.Context, gen uint64, access, refresh string) bool {
	pair := credstore.Pair{Access: access, Refresh: refresh}

	k.mu.Lock()
	if k.gen != gen {
		k.mu.Unlock()
		return false
	}
	k.pair = pair
	k.gen++
	k.mu.Unlock()

	k.persistSave(ctx, pair)
	return true
}

// clear removes both credentials. Idempotent.
func (k *keeper) clear(ctx context.Context) {
	k.mu.Lock()
	k.pair = credstore.Pair{}
	k.gen++
	k.mu.Unlock()

	k.persistClear(ctx)
}

// clearIf removes both credentials only when no other mutation happened
// since gen was observed. Reports whether the clear took place.
func (k *keeper) clearIf(ctx context.Context, gen uint64) bool {
	k.mu.Lock()
	if k.gen != gen {
		k.mu.Unlock()
		return false
	}
	k.pair = credstore.Pair{}
	k.gen++
	k.mu.Unlock()

	k.persistClear(ctx)
	return true
}

func (k *keeper) persistSave(ctx context.Context, pair credstore.Pair) {
	if err := k.store.Save(ctx, pair); err != nil {
		k.logger.Warn("credential persist failed", slog.String("err", err.Error()))
		if k.persistFailed != nil {
			k.persistFailed()
		}
	}
}

func (k *keeper) persistClear(ctx context.Context) {
	if err := k.store.Clear(ctx); err != nil {
		k.logger.Warn("credential clear failed to persist", slog.String("err", err.Error()))
		if k.persistFailed != nil {
			k.persistFailed()
		}
	}
}

func (k *keeper) access() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pair.Access
}

func (k *keeper) refreshToken() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pair.Refresh
}

// refreshSnapshot returns the refresh credential together with the
// generation to guard a later setIf/clearIf against.
func (k *keeper) refreshSnapshot() (string, uint64) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pair.Refresh, k.gen
}

// authenticated answers presence, not validity. Expiry is the server's
// call (and the scheduler's concern).
func (k *keeper) authenticated() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return !k.pair.Empty()
}
