package types

import "time"

// EventType is the closed set of notification kinds from spec §4.5.
type EventType string

const (
	EventUserFollowAdded           EventType = "UserFollowAdded"
	EventUserTaskRequestCreated    EventType = "UserTaskRequestCreated"
	EventUserTaskRequestReceived   EventType = "UserTaskRequestReceived"
	EventUserTaskRequestDelivered  EventType = "UserTaskRequestDelivered"
	EventUserChatMessage           EventType = "UserChatMessage"
	EventUserBalanceUpdate         EventType = "UserBalanceUpdate"
	EventUserCommunityPost         EventType = "UserCommunityPost"
	EventUserLikePost              EventType = "UserLikePost"
	EventUserStatus                EventType = "UserStatus"
	EventDiscussionPostAdded       EventType = "DiscussionPostAdded"
	EventDiscussionPostReplyAdded  EventType = "DiscussionPostReplyAdded"
	EventDiscussionPostReplyNrIncr EventType = "DiscussionPostReplyNrIncreased"
)

// UserNotification is the single materialized notification record from
// spec §3/§4.5. It is immutable once written; per-recipient read state is
// tracked on a separate NotificationRecipient edge.
type UserNotification struct {
	ID        ID             `json:"id" storm:"id"`
	CreatedBy ID             `json:"created_by" storm:"index"`
	EventType EventType      `json:"event_type"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" storm:"index"`
}

// NotificationRecipient is the per-recipient edge from spec §3. At most one
// edge exists per (notification, recipient) pair (spec §8).
type NotificationRecipient struct {
	ID             ID        `json:"id" storm:"id"`
	NotificationID ID        `json:"notification_id" storm:"index"`
	UserID         ID        `json:"user_id" storm:"index"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// BroadcastEvent is published on the in-process broadcast channel by
// notify(), per spec §4.5.
type BroadcastEvent struct {
	UserID    ID        `json:"user_id"`
	Event     EventType `json:"event"`
	Receivers []ID      `json:"receivers"`
	Content   any       `json:"content,omitempty"`
}
