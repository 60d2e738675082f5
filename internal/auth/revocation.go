package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Revocations remembers logged out token ids until the tokens would have
// expired anyway. A background loop drops entries past their expiry.
type Revocations struct {
	mu      sync.RWMutex
	revoked map[string]time.Time

	pruneInterval time.Duration
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewRevocations starts the prune loop, which runs until Stop is called.
func NewRevocations(ctx context.Context, pruneInterval time.Duration) *Revocations {
	if pruneInterval <= 0 {
		pruneInterval = time.Minute
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r := &Revocations{
		revoked:       make(map[string]time.Time),
		pruneInterval: pruneInterval,
		cancel:        cancel,
	}

	r.wg.Add(1)
	go r.pruneLoop(loopCtx)

	return r
}

// Revoke marks a token id as unusable until expiresAt.
func (r *Revocations) Revoke(id string, expiresAt time.Time) {
	if id == "" {
		return
	}
	r.mu.Lock()
	r.revoked[id] = expiresAt
	r.mu.Unlock()
}

// IsRevoked reports whether the token id was revoked.
func (r *Revocations) IsRevoked(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.revoked[id]
	return ok
}

// Len is the number of tracked revocations.
func (r *Revocations) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.revoked)
}

// Stop ends the prune loop.
func (r *Revocations) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Revocations) pruneLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.prune(now)
		}
	}
}

func (r *Revocations) prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.revoked)
	for id, expiresAt := range r.revoked {
		if now.After(expiresAt) {
			delete(r.revoked, id)
		}
	}

	if pruned := before - len(r.revoked); pruned > 0 {
		log.Debug().Int("pruned", pruned).Msg("Pruned expired revocations")
	}
}
