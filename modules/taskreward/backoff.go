package taskreward

import (
	"context"
	"time"

	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// recordBackoff bumps a task's retry counter and schedules its next sweep
// attempt with exponential backoff (1m, 2m, 4m, ... capped at maxBackoff),
// per spec §5 "Failed tasks are retried on the next tick with exponential
// backoff recorded on the task row".
func (e *Engine) recordBackoff(ctx context.Context, taskID types.ID, priorAttempts int) error {
	return e.db.Update(ctx, func(tx *store.Tx) error {
		t, err := tx.GetTask(taskID)
		if err != nil {
			return err
		}
		t.AttemptCount = priorAttempts + 1
		delay := time.Minute << uint(priorAttempts)
		if delay <= 0 || delay > maxBackoff {
			delay = maxBackoff
		}
		t.NextAttemptAt = time.Now().UTC().Add(delay)
		return tx.SaveTask(t)
	})
}
