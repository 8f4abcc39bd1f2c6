package hub

import "time"

// Option configures a Hub at construction time.
type Option func(*Hub)

// WithEvictionInterval configures how often the janitor scans for idle cells.
func WithEvictionInterval(d time.Duration) Option {
	return func(h *Hub) { h.config.evictionInterval = d }
}

// WithIdleTimeout defines how long a cell without active sessions survives
// before being reclaimed.
func WithIdleTimeout(d time.Duration) Option {
	return func(h *Hub) { h.config.idleTimeout = d }
}

// WithMailboxSize sets each cell's per-user mailbox buffer capacity.
func WithMailboxSize(size int) Option {
	return func(h *Hub) { h.config.mailboxSize = size }
}
