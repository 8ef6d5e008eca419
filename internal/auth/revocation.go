package auth

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// RevocationRegistry is a concurrent set of revoked token strings.
// Each entry remembers when its token expires so Sweep can drop it afterwards.
type RevocationRegistry struct {
	entries *xsync.MapOf[string, time.Time]
}

// NewRevocationRegistry returns an empty registry.
func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{entries: xsync.NewMapOf[string, time.Time]()}
}

// Revoke records token as revoked until expiresAt. Revoking the same token again
// keeps the later of the two expiries.
func (r *RevocationRegistry) Revoke(token string, expiresAt time.Time) {
	r.entries.Compute(token, func(current time.Time, loaded bool) (time.Time, bool) {
		if loaded && current.After(expiresAt) {
			return current, false
		}
		return expiresAt, false
	})
}

// IsRevoked reports whether token has been revoked.
func (r *RevocationRegistry) IsRevoked(token string) bool {
	_, ok := r.entries.Load(token)
	return ok
}

// Sweep removes entries whose token expired before now and returns how many were removed.
func (r *RevocationRegistry) Sweep(now time.Time) int {
	removed := 0
	r.entries.Range(func(token string, expiresAt time.Time) bool {
		if !now.After(expiresAt) {
			return true
		}
		// Re-check under the bucket lock; a concurrent Revoke may have extended it.
		r.entries.Compute(token, func(current time.Time, loaded bool) (time.Time, bool) {
			if !loaded || !now.After(current) {
				return current, !loaded
			}
			removed++
			return current, true
		})
		return true
	})
	return removed
}

// Len returns the number of tracked entries.
func (r *RevocationRegistry) Len() int {
	return r.entries.Size()
}

// Clear drops every entry.
func (r *RevocationRegistry) Clear() {
	r.entries.Clear()
}
