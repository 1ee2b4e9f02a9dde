package store

import (
	"time"

	"github.com/asdine/storm"
	"github.com/asdine/storm/q"

	"github.com/darve-social/darve-server/types"
)

const (
	bucketTasks            = "Tasks"
	bucketTaskDonors       = "TaskDonors"
	bucketTaskParticipants = "TaskParticipants"
	bucketDeliveryResults  = "DeliveryResults"
)

// SaveTask upserts a task request.
func (tx *Tx) SaveTask(t *types.TaskRequest) error {
	return tx.bucket(bucketTasks).Save(t)
}

// GetTask fetches a task by ID.
func (tx *Tx) GetTask(id types.ID) (*types.TaskRequest, error) {
	var t types.TaskRequest
	if err := tx.bucket(bucketTasks).One("ID", id, &t); err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

// DueTasks returns a bounded batch of tasks in {Init, InProgress} whose
// due_at has passed and whose next retry backoff has elapsed, per spec §4.4
// payout protocol step 1 and §5's sweeper batching/backoff.
func (tx *Tx) DueTasks(now time.Time, limit int) ([]types.TaskRequest, error) {
	var candidates []types.TaskRequest
	matcher := q.Or(q.Eq("Status", types.TaskInit), q.Eq("Status", types.TaskInProgress))
	err := tx.bucket(bucketTasks).Select(matcher).OrderBy("DueAt").Find(&candidates)
	if err != nil && err != storm.ErrNotFound {
		return nil, err
	}
	out := make([]types.TaskRequest, 0, limit)
	for _, t := range candidates {
		if t.DueAt.After(now) {
			continue
		}
		if !t.NextAttemptAt.IsZero() && t.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SaveDonor upserts a TaskDonor edge, keyed by (TaskID, UserID). If an edge
// already exists for that pair, d is saved over it in place.
func (tx *Tx) SaveDonor(d *types.TaskDonor) error {
	if existing, err := tx.GetDonor(d.TaskID, d.UserID); err == nil {
		d.ID = existing.ID
	} else if err != ErrNotFound {
		return err
	} else if d.ID == (types.ID{}) {
		d.ID = types.NewID()
	}
	return tx.bucket(bucketTaskDonors).Save(d)
}

// GetDonor fetches a donor edge, or ErrNotFound if the user has not donated
// to this task yet.
func (tx *Tx) GetDonor(taskID, userID types.ID) (*types.TaskDonor, error) {
	var donors []types.TaskDonor
	matcher := q.And(q.Eq("TaskID", taskID), q.Eq("UserID", userID))
	if err := tx.bucket(bucketTaskDonors).Select(matcher).Find(&donors); err != nil {
		return nil, wrapNotFound(err)
	}
	if len(donors) == 0 {
		return nil, ErrNotFound
	}
	return &donors[0], nil
}

// Donors lists every donor for a task.
func (tx *Tx) Donors(taskID types.ID) ([]types.TaskDonor, error) {
	var donors []types.TaskDonor
	if err := tx.bucket(bucketTaskDonors).Find("TaskID", taskID, &donors); err != nil && err != storm.ErrNotFound {
		return nil, err
	}
	return donors, nil
}

// SaveParticipant upserts a TaskParticipant edge, keyed by (TaskID, UserID).
// If an edge already exists for that pair, p is saved over it in place so
// its accumulated Timelines are not orphaned under a second primary key.
func (tx *Tx) SaveParticipant(p *types.TaskParticipant) error {
	if existing, err := tx.GetParticipant(p.TaskID, p.UserID); err == nil {
		p.ID = existing.ID
	} else if err != ErrNotFound {
		return err
	} else if p.ID == (types.ID{}) {
		p.ID = types.NewID()
	}
	return tx.bucket(bucketTaskParticipants).Save(p)
}

// GetParticipant fetches a participant edge.
func (tx *Tx) GetParticipant(taskID, userID types.ID) (*types.TaskParticipant, error) {
	var participants []types.TaskParticipant
	matcher := q.And(q.Eq("TaskID", taskID), q.Eq("UserID", userID))
	if err := tx.bucket(bucketTaskParticipants).Select(matcher).Find(&participants); err != nil {
		return nil, wrapNotFound(err)
	}
	if len(participants) == 0 {
		return nil, ErrNotFound
	}
	return &participants[0], nil
}

// Participants lists every participant for a task.
func (tx *Tx) Participants(taskID types.ID) ([]types.TaskParticipant, error) {
	var participants []types.TaskParticipant
	if err := tx.bucket(bucketTaskParticipants).Find("TaskID", taskID, &participants); err != nil && err != storm.ErrNotFound {
		return nil, err
	}
	return participants, nil
}

// SaveDeliveryResult records a participant's delivered post, once per
// participant (spec §3 DeliveryResult).
func (tx *Tx) SaveDeliveryResult(d *types.DeliveryResult) error {
	if d.ID == (types.ID{}) {
		d.ID = types.NewID()
	}
	return tx.bucket(bucketDeliveryResults).Save(d)
}

// DeliveryResultFor fetches the delivery result for a participant, if any.
func (tx *Tx) DeliveryResultFor(taskID, participantID types.ID) (*types.DeliveryResult, error) {
	var results []types.DeliveryResult
	matcher := q.And(q.Eq("TaskID", taskID), q.Eq("ParticipantID", participantID))
	if err := tx.bucket(bucketDeliveryResults).Select(matcher).Find(&results); err != nil {
		return nil, wrapNotFound(err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}
