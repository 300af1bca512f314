package readiness

import (
	"sync"
	"time"

	"solana-token-forge/internal/domain"
)

// rateWindow is the sliding window creation attempts are counted over.
const rateWindow = 10 * time.Minute

// MaxAttemptsPerWindow returns the creation attempt quota for a
// network. Mainnet runs cost real funds, so its quota is tighter.
func MaxAttemptsPerWindow(network domain.Network) int {
	if network == domain.NetworkMainnet {
		return 5
	}
	return 20
}

// RateLimiter counts creation attempts per creator address over a
// sliding window.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given per-address quota.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   rateWindow,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// prune drops timestamps that fell out of the window. Caller holds mu.
func (r *RateLimiter) prune(address string, now time.Time) []time.Time {
	kept := r.attempts[address][:0]
	for _, ts := range r.attempts[address] {
		if now.Sub(ts) < r.window {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(r.attempts, address)
		return nil
	}
	r.attempts[address] = kept
	return kept
}

// Allow reports whether the address may start another attempt. When
// denied, retryAfter is the time until the oldest counted attempt
// leaves the window.
func (r *RateLimiter) Allow(address string) (allowed bool, retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.prune(address, now)
	if len(kept) < r.limit {
		return true, 0
	}
	return false, r.window - now.Sub(kept[0])
}

// Record counts one attempt against the address.
func (r *RateLimiter) Record(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[address] = append(r.attempts[address], r.now())
}
