package access

import (
	"sync"
	"time"

	"github.com/darve-social/darve-server/types"
)

// offlineLinger is the delay before an offline event fires after a user's
// connection count reaches zero, per spec §4.6 "after a 10-second linger".
// It absorbs a quick reconnect (tab refresh, brief network blip) without
// flapping online/offline to subscribers.
const offlineLinger = 10 * time.Second

// PresenceFunc is called with (userID, online) whenever a user's observed
// state flips: online from Open on the 0->1 transition, offline from the
// linger timer once it fires with the count still zero, letting the caller fan out a
// UserStatus notification (spec §4.5 EventUserStatus) without this package
// depending on the notification module.
type PresenceFunc func(userID types.ID, online bool)

// Presence is the process-wide "user_id -> connection_count" map from
// spec §4.6/§9, created once at bootstrap and injected; tests construct
// their own per-case via NewPresence.
type Presence struct {
	mu       sync.Mutex
	counts   map[types.ID]int
	timers   map[types.ID]*time.Timer
	onChange PresenceFunc
}

// NewPresence constructs a Presence tracker that invokes onChange whenever
// a user's observed online state actually flips.
func NewPresence(onChange PresenceFunc) *Presence {
	return &Presence{
		counts: make(map[types.ID]int),
		timers: make(map[types.ID]*time.Timer),
		onChange: func(userID types.ID, online bool) {
			if onChange != nil {
				onChange(userID, online)
			}
		},
	}
}

// Guard is the per-connection handle a caller holds for the lifetime of
// one connection; Close must be called exactly once, on disconnect.
type Guard struct {
	p      *Presence
	userID types.ID
	closed bool
}

// Open registers one new connection for userID, cancelling any pending
// offline timer, and returns a guard the caller must Close on disconnect.
// The first connection to bring the count from 0 to 1 fires onChange(true)
// immediately (no linger on the way up), unless it cancelled a pending
// offline timer: a reconnect within the linger window fires nothing.
func (p *Presence) Open(userID types.ID) *Guard {
	p.mu.Lock()
	defer p.mu.Unlock()

	lingering := false
	if t, ok := p.timers[userID]; ok {
		t.Stop()
		delete(p.timers, userID)
		lingering = true
	}

	p.counts[userID]++
	first := p.counts[userID] == 1
	if first && !lingering {
		p.onChange(userID, true)
	}
	return &Guard{p: p, userID: userID}
}

// Close decrements the connection count. When the count reaches zero, a
// linger timer starts; if the count is still zero when it fires, onChange
// (false) runs. Close is idempotent.
func (g *Guard) Close() {
	if g.closed {
		return
	}
	g.closed = true

	p := g.p
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[g.userID]--
	if p.counts[g.userID] < 0 {
		p.counts[g.userID] = 0
	}
	if p.counts[g.userID] != 0 {
		return
	}

	userID := g.userID
	p.timers[userID] = time.AfterFunc(offlineLinger, func() {
		p.mu.Lock()
		stillZero := p.counts[userID] == 0
		delete(p.timers, userID)
		p.mu.Unlock()
		if stillZero {
			p.onChange(userID, false)
		}
	})
}

// Count returns the current observed connection count for userID, never
// negative per spec §8 "Presence monotonicity".
func (p *Presence) Count(userID types.ID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID]
}
