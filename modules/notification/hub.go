package notification

import "github.com/darve-social/darve-server/types"

// subscriberBuffer is the bound on each subscriber's outgoing queue, per
// spec §4.5 "lossy for slow consumers" / §5 "bounded capacity with
// slow-consumer drop".
const subscriberBuffer = 32

// Hub is the in-process broadcast channel from spec §4.5/§9. It is created
// once at bootstrap and injected (spec §9 "Global state"); tests construct
// their own instance per case via NewHub.
type Hub struct {
	subscribe   chan *subscriber
	unsubscribe chan *subscriber
	publish     chan types.BroadcastEvent
}

type subscriber struct {
	userID types.ID
	events chan types.BroadcastEvent
}

// NewHub starts the hub's dispatch loop and returns it.
func NewHub() *Hub {
	h := &Hub{
		subscribe:   make(chan *subscriber),
		unsubscribe: make(chan *subscriber),
		publish:     make(chan types.BroadcastEvent, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	subs := make(map[*subscriber]struct{})
	for {
		select {
		case s := <-h.subscribe:
			subs[s] = struct{}{}
		case s := <-h.unsubscribe:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.events)
			}
		case ev := <-h.publish:
			for s := range subs {
				if !inReceivers(s.userID, ev.Receivers) {
					continue
				}
				select {
				case s.events <- ev:
				default:
					// Slow consumer: drop for this subscriber only, per
					// spec §4.5. Persisted records remain authoritative.
				}
			}
		}
	}
}

func inReceivers(userID types.ID, receivers []types.ID) bool {
	for _, r := range receivers {
		if r == userID {
			return true
		}
	}
	return false
}

// Publish queues ev for dispatch to every subscriber whose user ID is
// among its receivers. Publish itself never blocks on a slow subscriber;
// only the per-subscriber fan-out inside run() can drop.
func (h *Hub) Publish(ev types.BroadcastEvent) {
	h.publish <- ev
}

// Subscription is a live handle a connected client reads events from.
type Subscription struct {
	hub *Hub
	sub *subscriber
}

// Events returns the channel of events addressed to this subscriber.
func (s *Subscription) Events() <-chan types.BroadcastEvent {
	return s.sub.events
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe <- s.sub
}

// Subscribe registers userID for live events and returns a handle to read
// them from, per spec §4.5 "subscribers obtain a receiver from the
// broadcast channel".
func (h *Hub) Subscribe(userID types.ID) *Subscription {
	s := &subscriber{userID: userID, events: make(chan types.BroadcastEvent, subscriberBuffer)}
	h.subscribe <- s
	return &Subscription{hub: h, sub: s}
}
