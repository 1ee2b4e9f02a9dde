// Package taskreward implements the C4 contract: a reward-bearing task's
// lifecycle from creation through donation, acceptance, delivery, and a
// single atomic payout that empties its escrow wallet.
package taskreward

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/darve-social/darve-server/modules/ledger"
	"github.com/darve-social/darve-server/persist"
	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// Engine is the C4 component.
type Engine struct {
	db     *store.DB
	ledger *ledger.Ledger
	log    *persist.Logger
}

// New constructs an Engine over the shared store and ledger.
func New(db *store.DB, l *ledger.Ledger, log *persist.Logger) *Engine {
	return &Engine{db: db, ledger: l, log: log}
}

// GetTask fetches a task by ID, for read-side callers (the API surface,
// tests) that need current status without going through a write path.
func (e *Engine) GetTask(ctx context.Context, taskID types.ID) (*types.TaskRequest, error) {
	var t *types.TaskRequest
	err := e.db.View(ctx, func(tx *store.Tx) error {
		var err error
		t, err = tx.GetTask(taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTaskParams is the caller-supplied subset of TaskRequest's fields,
// per spec §3.
type CreateTaskParams struct {
	BelongsTo        types.ID
	CreatedBy        types.ID
	RequestText      string
	DeliverableType  string
	Type             types.TaskRequestType
	RewardType       types.RewardType
	Currency         types.Currency
	AcceptancePeriod time.Duration
	DeliveryPeriod   time.Duration
}

// CreateTask opens a task at Init with no funds, per spec §4.4. Its escrow
// wallet is derived from the task ID and its due_at is the sum of the
// acceptance and delivery windows from creation, spec §3 naming both
// durations but leaving their composition to the implementation.
func (e *Engine) CreateTask(ctx context.Context, p CreateTaskParams) (*types.TaskRequest, error) {
	now := time.Now().UTC()
	id := types.NewID()
	t := &types.TaskRequest{
		ID:               id,
		BelongsTo:        p.BelongsTo,
		CreatedBy:        p.CreatedBy,
		RequestText:      p.RequestText,
		DeliverableType:  p.DeliverableType,
		Type:             p.Type,
		RewardType:       p.RewardType,
		Currency:         p.Currency,
		AcceptancePeriod: p.AcceptancePeriod,
		DeliveryPeriod:   p.DeliveryPeriod,
		WalletID:         types.TaskEscrowWalletID(id),
		Status:           types.TaskInit,
		DueAt:            now.Add(p.AcceptancePeriod + p.DeliveryPeriod),
		CreatedAt:        now,
	}
	err := e.db.Update(ctx, func(tx *store.Tx) error {
		return tx.SaveTask(t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Donate runs the donation protocol from spec §4.4: atomically transfer the
// delta between amount and any prior donation from the donor's spendable
// wallet into the task's escrow wallet, upsert the TaskDonor edge, and
// advance Init->InProgress if a participant is already Accepted.
func (e *Engine) Donate(ctx context.Context, taskID, userID types.ID, amount types.Amount, currency types.Currency) (*types.TaskDonor, error) {
	if amount <= 0 {
		return nil, types.NewClientError(fmt.Errorf("donation amount must be positive, got %d", amount), types.ErrValidationFailed)
	}
	var donor *types.TaskDonor
	err := e.db.Update(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		if task.Status == types.TaskCompleted {
			return types.NewClientError(fmt.Errorf("task %s already completed", taskID), types.ErrConflict)
		}
		if currency != task.Currency {
			return types.NewClientError(fmt.Errorf("donation currency %q does not match task currency %q", currency, task.Currency), types.ErrCurrencyMismatch)
		}

		existing, err := tx.GetDonor(taskID, userID)
		if err != nil && err != store.ErrNotFound {
			return err
		}
		var delta types.Amount
		var prevAmount types.Amount
		if existing != nil {
			prevAmount = existing.Amount
		}
		if amount <= prevAmount {
			return types.NewClientError(fmt.Errorf("donation %d does not increase existing total %d", amount, prevAmount), types.ErrDonationNotIncreasing)
		}
		delta = amount - prevAmount

		taskIDRef := taskID
		debitID, _, _, _, err := e.ledger.TransferTx(tx, types.UserWalletID(userID), task.WalletID, delta, currency, ledger.Refs{Type: types.TxTypeDonation, TaskID: &taskIDRef}, false)
		if err != nil {
			return err
		}

		d := &types.TaskDonor{
			TaskID:      taskID,
			UserID:      userID,
			Amount:      amount,
			Transaction: debitID,
			Currency:    currency,
			CreatedAt:   time.Now().UTC(),
		}
		if existing != nil {
			d.ID = existing.ID
			d.Votes = existing.Votes
			d.CreatedAt = existing.CreatedAt
		}
		if err := tx.SaveDonor(d); err != nil {
			return err
		}
		donor = d

		if task.Status == types.TaskInit {
			participants, err := tx.Participants(taskID)
			if err != nil {
				return err
			}
			for _, p := range participants {
				if p.Status == types.ParticipantAccepted {
					task.Status = types.TaskInProgress
					if err := tx.SaveTask(task); err != nil {
						return err
					}
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return donor, nil
}

// Vote records a donor's point allocation across deliverables, per spec
// §4.4 Voting. Points must be non-negative. Their sum is not checked
// against the donation, here or later: allocatePayouts scales whatever
// points land on on-time deliverables to the donor's amount.
func (e *Engine) Vote(ctx context.Context, taskID, userID types.ID, votes []types.Vote) error {
	for _, v := range votes {
		if v.Points < 0 {
			return types.NewClientError(fmt.Errorf("vote points must be non-negative, got %d", v.Points), types.ErrValidationFailed)
		}
	}
	return e.db.Update(ctx, func(tx *store.Tx) error {
		d, err := tx.GetDonor(taskID, userID)
		if err != nil {
			return err
		}
		d.Votes = votes
		return tx.SaveDonor(d)
	})
}

// RequestParticipant opens a participant row at Requested, per spec §4.4
// Acceptance protocol (a task addressed privately, or a self-offer on a
// public task).
func (e *Engine) RequestParticipant(ctx context.Context, taskID, userID types.ID) (*types.TaskParticipant, error) {
	var participant *types.TaskParticipant
	err := e.db.Update(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetTask(taskID); err != nil {
			return err
		}
		if existing, err := tx.GetParticipant(taskID, userID); err == nil {
			participant = existing
			return nil
		} else if err != store.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		p := (&types.TaskParticipant{
			TaskID:    taskID,
			UserID:    userID,
			CreatedAt: now,
		}).WithStatus(types.ParticipantRequested, now)
		if err := tx.SaveParticipant(p); err != nil {
			return err
		}
		participant = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// Accept moves a Requested participant to Accepted. Only the addressed
// user may accept their own row; callers enforce that at the API layer by
// passing the authenticated caller as userID.
func (e *Engine) Accept(ctx context.Context, taskID, userID types.ID) error {
	return e.transitionParticipant(ctx, taskID, userID, types.ParticipantRequested, types.ParticipantAccepted)
}

// Reject moves a Requested participant to Rejected.
func (e *Engine) Reject(ctx context.Context, taskID, userID types.ID) error {
	return e.transitionParticipant(ctx, taskID, userID, types.ParticipantRequested, types.ParticipantRejected)
}

func (e *Engine) transitionParticipant(ctx context.Context, taskID, userID types.ID, from, to types.ParticipantStatus) error {
	return e.db.Update(ctx, func(tx *store.Tx) error {
		p, err := tx.GetParticipant(taskID, userID)
		if err != nil {
			return err
		}
		if p.Status != from {
			return types.NewClientError(fmt.Errorf("participant %s is %s, not %s", p.ID, p.Status, from), types.ErrConflict)
		}
		p.WithStatus(to, time.Now().UTC())
		if err := tx.SaveParticipant(p); err != nil {
			return err
		}

		if to == types.ParticipantAccepted {
			task, err := tx.GetTask(taskID)
			if err != nil {
				return err
			}
			if task.Status == types.TaskInit {
				donors, err := tx.Donors(taskID)
				if err != nil {
					return err
				}
				if len(donors) > 0 {
					task.Status = types.TaskInProgress
					return tx.SaveTask(task)
				}
			}
		}
		return nil
	})
}

// Deliver records an Accepted participant's deliverable post, per spec
// §4.4 Delivery protocol. Deliveries after the task's due_at are recorded
// but flagged late, excluding them from automatic payout.
func (e *Engine) Deliver(ctx context.Context, taskID, userID, post types.ID) (*types.DeliveryResult, error) {
	var result *types.DeliveryResult
	err := e.db.Update(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		p, err := tx.GetParticipant(taskID, userID)
		if err != nil {
			return err
		}
		if p.Status != types.ParticipantAccepted {
			return types.NewClientError(fmt.Errorf("participant %s is %s, not Accepted", p.ID, p.Status), types.ErrConflict)
		}

		now := time.Now().UTC()
		late := now.After(task.DueAt)
		d := &types.DeliveryResult{
			TaskID:        taskID,
			ParticipantID: p.ID,
			Post:          post,
			CreatedAt:     now,
		}
		if err := tx.SaveDeliveryResult(d); err != nil {
			return err
		}

		p.WithStatus(types.ParticipantDelivered, now)
		p.DeliveredAt = &now
		p.DeliveredLate = late
		p.DeliveryPost = &post
		if err := tx.SaveParticipant(p); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Finalize runs the payout protocol from spec §4.4 step 2-5 for a single
// task, as one atomic transaction. It is idempotent: a task already
// Completed returns success without touching the ledger again.
func (e *Engine) Finalize(ctx context.Context, taskID types.ID) error {
	return e.db.Update(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		if task.Status == types.TaskCompleted {
			return nil
		}

		donors, err := tx.Donors(taskID)
		if err != nil {
			return err
		}
		participants, err := tx.Participants(taskID)
		if err != nil {
			return err
		}

		onTime := make([]types.TaskParticipant, 0, len(participants))
		for _, p := range participants {
			if p.Status == types.ParticipantDelivered && !p.DeliveredLate {
				onTime = append(onTime, p)
			}
		}

		taskIDRef := task.ID
		if len(onTime) == 0 {
			for _, d := range donors {
				if d.Amount <= 0 {
					continue
				}
				if _, _, _, _, err := e.ledger.TransferTx(tx, task.WalletID, types.UserWalletID(d.UserID), d.Amount, task.Currency, ledger.Refs{Type: types.TxTypeTaskRefund, TaskID: &taskIDRef}, false); err != nil {
					return err
				}
			}
			task.Status = types.TaskCompleted
			return tx.SaveTask(task)
		}

		payouts := allocatePayouts(donors, onTime)
		var totalPaid types.Amount
		for i := range onTime {
			p := &onTime[i]
			amount := payouts[p.ID]
			if amount <= 0 {
				continue
			}
			rewardTxID, _, _, _, err := e.ledger.TransferTx(tx, task.WalletID, types.UserWalletID(p.UserID), amount, task.Currency, ledger.Refs{Type: types.TxTypeTaskPayout, TaskID: &taskIDRef}, false)
			if err != nil {
				return err
			}
			totalPaid += amount
			p.RewardTx = &rewardTxID
			p.WithStatus(types.ParticipantPaid, time.Now().UTC())
			if err := tx.SaveParticipant(p); err != nil {
				return err
			}
		}

		escrowTotal := totalDonated(donors)
		remainder := escrowTotal - totalPaid
		if remainder > 0 {
			if _, _, _, _, err := e.ledger.TransferTx(tx, task.WalletID, types.DarveWalletID, remainder, task.Currency, ledger.Refs{Type: types.TxTypeFee, TaskID: &taskIDRef}, false); err != nil {
				return err
			}
		}

		task.Status = types.TaskCompleted
		return tx.SaveTask(task)
	})
}

func totalDonated(donors []types.TaskDonor) types.Amount {
	var total types.Amount
	for _, d := range donors {
		total += d.Amount
	}
	return total
}

// allocatePayouts implements spec §4.4 step 3: each donor's amount
// distributes to on-time deliverables according to their point vector,
// normalized to sum to their donation (the last allocated participant, by
// ID order, takes the rounding remainder); donors with no positive points
// on an on-time deliverable split their full amount evenly across the
// on-time set.
func allocatePayouts(donors []types.TaskDonor, onTime []types.TaskParticipant) map[types.ID]types.Amount {
	payouts := make(map[types.ID]types.Amount, len(onTime))
	participantByPost := make(map[types.ID]types.ID, len(onTime))
	for _, p := range onTime {
		payouts[p.ID] = 0
		if p.DeliveryPost != nil {
			participantByPost[*p.DeliveryPost] = p.ID
		}
	}
	if len(onTime) == 0 {
		return payouts
	}

	for _, d := range donors {
		votedTotal := 0
		allocations := map[types.ID]int{}
		for _, v := range d.Votes {
			pid, ok := participantByPost[v.DeliverableIdent]
			if !ok || v.Points <= 0 {
				continue
			}
			allocations[pid] += v.Points
			votedTotal += v.Points
		}
		if votedTotal == 0 {
			share := d.Amount / types.Amount(len(onTime))
			remainder := d.Amount - share*types.Amount(len(onTime))
			for i, p := range onTime {
				amount := share
				if types.Amount(i) < remainder {
					amount++
				}
				payouts[p.ID] += amount
			}
			continue
		}
		var distributed types.Amount
		ids := make([]types.ID, 0, len(allocations))
		for pid := range allocations {
			ids = append(ids, pid)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		for i, pid := range ids {
			points := allocations[pid]
			var amount types.Amount
			if i == len(ids)-1 {
				amount = d.Amount - distributed
			} else {
				amount = types.Amount(int64(d.Amount) * int64(points) / int64(votedTotal))
			}
			distributed += amount
			payouts[pid] += amount
		}
	}
	return payouts
}
