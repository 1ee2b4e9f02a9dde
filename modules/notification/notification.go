// Package notification implements the C5 contract: materialize a single
// UserNotification plus N per-recipient edges in one logical step, then
// publish a live event to subscribed clients, per spec §4.5.
package notification

import (
	"context"
	"time"

	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// Service is the C5 component.
type Service struct {
	db  *store.DB
	log *persist.Logger
	hub *Hub
}

// New constructs a Service over the shared store and a fresh broadcast hub.
func New(db *store.DB, log *persist.Logger) *Service {
	return &Service{db: db, log: log, hub: NewHub()}
}

// Hub returns the broadcast hub subscribers attach to (see hub.go), so the
// websocket transport in ws.go can register connections against the same
// instance notify() publishes on.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Notify runs spec §4.5's notify(): insert the notification record, relate
// it to each recipient with is_read=false, and publish the broadcast event.
// The store write and the publish are deliberately not in the same
// transaction scope as the publish — the broadcast is a best-effort live
// nudge, not the source of truth (spec §4.5 "persisted records remain the
// source of truth").
func (s *Service) Notify(ctx context.Context, creator types.ID, event types.EventType, title string, metadata map[string]any, recipients []types.ID) (*types.UserNotification, error) {
	n := &types.UserNotification{
		ID:        types.NewID(),
		CreatedBy: creator,
		EventType: event,
		Title:     title,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.Update(ctx, func(tx *store.Tx) error {
		if err := tx.SaveNotification(n); err != nil {
			return err
		}
		for _, recipient := range recipients {
			r := &types.NotificationRecipient{
				NotificationID: n.ID,
				UserID:         recipient,
				IsRead:         false,
				CreatedAt:      n.CreatedAt,
			}
			if err := tx.SaveRecipient(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(types.BroadcastEvent{
		UserID:    creator,
		Event:     event,
		Receivers: recipients,
		Content:   metadata,
	})
	return n, nil
}

// Read flips one recipient edge to read, per spec §4.5 read(notification, user).
func (s *Service) Read(ctx context.Context, notificationID, userID types.ID) error {
	return s.db.Update(ctx, func(tx *store.Tx) error {
		return tx.MarkRead(notificationID, userID)
	})
}

// ReadAll bulk-flips every unread edge for a user, per spec §4.5 read_all(user).
func (s *Service) ReadAll(ctx context.Context, userID types.ID) (int, error) {
	var n int
	err := s.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		n, err = tx.MarkAllRead(userID)
		return err
	})
	return n, err
}

// ListParams page a user's notification edges, per spec §4.5's query
// listing ("by user, by is_read filter, paginated, ordered by descending
// creation").
type ListParams struct {
	UnreadOnly bool
	Before     time.Time
	Limit      int
}

// List returns a user's recipient edges, most recent first.
func (s *Service) List(ctx context.Context, userID types.ID, p ListParams) ([]types.NotificationRecipient, error) {
	var before int64
	if !p.Before.IsZero() {
		before = p.Before.UnixNano()
	}
	var out []types.NotificationRecipient
	err := s.db.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Recipients(userID, p.UnreadOnly, before, p.Limit)
		return err
	})
	return out, err
}
