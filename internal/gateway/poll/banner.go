package poll

import (
	"sync"
	"time"
)

// DefaultBannerTTL is how long a transient fetch-failure banner stays
// visible.
const DefaultBannerTTL = 4 * time.Second

// Banner is a transient, auto-expiring status message. Feed fetch failures
// raise one; readers see it only until the TTL elapses, after which it
// reports empty without any explicit clear.
type Banner struct {
	TTL time.Duration

	mu      sync.Mutex
	message string
	until   time.Time
}

// NewBanner creates a banner with the default TTL.
func NewBanner() *Banner {
	return &Banner{TTL: DefaultBannerTTL}
}

// Set raises the banner, restarting the expiry window.
func (b *Banner) Set(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = message
	b.until = time.Now().Add(b.TTL)
}

// Message returns the active banner text, or "" when expired or never set.
func (b *Banner) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Now().After(b.until) {
		return ""
	}
	return b.message
}
