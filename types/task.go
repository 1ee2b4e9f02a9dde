package types

import "time"

// TaskRequestType distinguishes a task addressed to a specific user
// (Private) from one anyone may self-offer on (Public), per spec §3.
type TaskRequestType string

const (
	TaskPublic  TaskRequestType = "Public"
	TaskPrivate TaskRequestType = "Private"
)

// TaskStatus is the one-way state machine from spec §4.4.
type TaskStatus string

const (
	TaskInit       TaskStatus = "Init"
	TaskInProgress TaskStatus = "InProgress"
	TaskCompleted  TaskStatus = "Completed"
)

// RewardType describes how the task's reward pool is denominated; carried
// opaquely, spec §3 names the field but does not close its value set.
type RewardType string

// TaskRequest is the reward-bearing task entity from spec §3/§4.4.
type TaskRequest struct {
	ID               ID              `json:"id" storm:"id"`
	BelongsTo        ID              `json:"belongs_to" storm:"index"`
	CreatedBy        ID              `json:"created_by" storm:"index"`
	RequestText      string          `json:"request_text"`
	DeliverableType  string          `json:"deliverable_type"`
	Type             TaskRequestType `json:"type"`
	RewardType       RewardType      `json:"reward_type"`
	Currency         Currency        `json:"currency"`
	AcceptancePeriod time.Duration   `json:"acceptance_period"`
	DeliveryPeriod   time.Duration   `json:"delivery_period"`
	WalletID         WalletID        `json:"wallet_id"`
	Status           TaskStatus      `json:"status" storm:"index"`
	DueAt            time.Time       `json:"due_at" storm:"index"`
	NextAttemptAt    time.Time       `json:"next_attempt_at,omitempty"`
	AttemptCount     int             `json:"attempt_count,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Vote is one donor's point allocation to a deliverable, per spec §4.4
// Voting. Points are non-negative; at payout time a donor's points on
// on-time deliverables are scaled to sum to the donor's donation amount,
// and a donor with no such points splits the amount evenly across the
// on-time deliverables.
type Vote struct {
	DeliverableIdent ID  `json:"deliverable_ident"`
	Points           int `json:"points"`
}

// TaskDonor is the task->user donation relation from spec §3. It is unique
// per (task, user); a later donation only ever raises Amount.
type TaskDonor struct {
	ID          ID        `json:"id" storm:"id"`
	TaskID      ID        `json:"task_id" storm:"index"`
	UserID      ID        `json:"user_id" storm:"index"`
	Amount      Amount    `json:"amount"`
	Transaction ID        `json:"transaction"`
	Currency    Currency  `json:"currency"`
	Votes       []Vote    `json:"votes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParticipantStatus is the per-participant state machine from spec §4.4.
type ParticipantStatus string

const (
	ParticipantRequested ParticipantStatus = "Requested"
	ParticipantAccepted  ParticipantStatus = "Accepted"
	ParticipantRejected  ParticipantStatus = "Rejected"
	ParticipantDelivered ParticipantStatus = "Delivered"
	ParticipantPaid      ParticipantStatus = "Paid"
)

// TimelineEntry records one status transition, so TaskParticipant.timelines
// is a full audit trail rather than just the current status (spec §3 names
// the field; the write discipline is supplemented in SPEC_FULL.md from
// original_source's task_request_participation_entity.rs).
type TimelineEntry struct {
	Status ParticipantStatus `json:"status"`
	Date   time.Time         `json:"date"`
}

// TaskParticipant is the task->user participation relation from spec §3.
type TaskParticipant struct {
	ID            ID                `json:"id" storm:"id"`
	TaskID        ID                `json:"task_id" storm:"index"`
	UserID        ID                `json:"user_id" storm:"index"`
	Status        ParticipantStatus `json:"status"`
	Timelines     []TimelineEntry   `json:"timelines"`
	RewardTx      *ID               `json:"reward_tx,omitempty"`
	DeliveryPost  *ID               `json:"delivery_post,omitempty"`
	DeliveredAt   *time.Time        `json:"delivered_at,omitempty"`
	DeliveredLate bool              `json:"delivered_late,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// WithStatus appends a timeline entry and returns the participant for
// chaining at call sites (accept/reject/deliver/pay transitions).
func (p *TaskParticipant) WithStatus(status ParticipantStatus, at time.Time) *TaskParticipant {
	p.Status = status
	p.Timelines = append(p.Timelines, TimelineEntry{Status: status, Date: at})
	return p
}

// DeliveryResult is the participant->post relation from spec §3, created
// exactly once per participant when they publish their deliverable.
type DeliveryResult struct {
	ID            ID        `json:"id" storm:"id"`
	TaskID        ID        `json:"task_id" storm:"index"`
	ParticipantID ID        `json:"participant_id" storm:"index"`
	Post          ID        `json:"post"`
	RewardTx      *ID       `json:"reward_tx,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
