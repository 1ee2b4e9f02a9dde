package store

import (
	"github.com/asdine/storm"
	"github.com/asdine/storm/q"

	"github.com/darve-social/darve-server/types"
)

const (
	bucketNotifications          = "Notifications"
	bucketNotificationRecipients = "NotificationRecipients"
)

// SaveNotification inserts the single materialized notification record.
func (tx *Tx) SaveNotification(n *types.UserNotification) error {
	return tx.bucket(bucketNotifications).Save(n)
}

// GetNotification fetches a notification by ID.
func (tx *Tx) GetNotification(id types.ID) (*types.UserNotification, error) {
	var n types.UserNotification
	if err := tx.bucket(bucketNotifications).One("ID", id, &n); err != nil {
		return nil, wrapNotFound(err)
	}
	return &n, nil
}

// SaveRecipient inserts one per-recipient edge. Callers write one per
// receiver alongside the notification itself, inside the same Update, per
// spec §4.5 notify().
func (tx *Tx) SaveRecipient(r *types.NotificationRecipient) error {
	if r.ID == (types.ID{}) {
		r.ID = types.NewID()
	}
	return tx.bucket(bucketNotificationRecipients).Save(r)
}

// Recipients paginates a user's notification edges, most recent first.
// unreadOnly restricts to IsRead == false. before is the created_at cursor
// of the last edge from the previous page (zero value for the first page).
func (tx *Tx) Recipients(userID types.ID, unreadOnly bool, before int64, limit int) ([]types.NotificationRecipient, error) {
	matcher := q.Eq("UserID", userID)
	if unreadOnly {
		matcher = q.And(matcher, q.Eq("IsRead", false))
	}
	var all []types.NotificationRecipient
	if err := tx.bucket(bucketNotificationRecipients).Select(matcher).OrderBy("CreatedAt").Reverse().Find(&all); err != nil && err != storm.ErrNotFound {
		return nil, err
	}
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]types.NotificationRecipient, 0, limit)
	for _, r := range all {
		if before > 0 && r.CreatedAt.UnixNano() >= before {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkRead flips one recipient edge to read.
func (tx *Tx) MarkRead(notificationID, userID types.ID) error {
	var r types.NotificationRecipient
	matcher := q.And(q.Eq("NotificationID", notificationID), q.Eq("UserID", userID))
	var matches []types.NotificationRecipient
	if err := tx.bucket(bucketNotificationRecipients).Select(matcher).Find(&matches); err != nil {
		return wrapNotFound(err)
	}
	if len(matches) == 0 {
		return ErrNotFound
	}
	r = matches[0]
	r.IsRead = true
	return tx.bucket(bucketNotificationRecipients).Update(&r)
}

// MarkAllRead flips every unread recipient edge for a user, used by the
// read_all endpoint (spec §4.5).
func (tx *Tx) MarkAllRead(userID types.ID) (int, error) {
	matcher := q.And(q.Eq("UserID", userID), q.Eq("IsRead", false))
	var unread []types.NotificationRecipient
	if err := tx.bucket(bucketNotificationRecipients).Select(matcher).Find(&unread); err != nil {
		if err == storm.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	for i := range unread {
		unread[i].IsRead = true
		if err := tx.bucket(bucketNotificationRecipients).Update(&unread[i]); err != nil {
			return i, err
		}
	}
	return len(unread), nil
}
