package taskreward

import (
	"context"
	"time"

	"github.com/NebulousLabs/threadgroup"

	"github.com/darve-social/darve-server/store"
	"github.com/darve-social/darve-server/types"
)

// DefaultTick is how often the sweeper wakes to look for due tasks, per
// spec §5 "one sweeper wakes every N seconds".
const DefaultTick = 30 * time.Second

// DefaultBatchSize bounds how many due tasks one tick processes, per spec
// §5 "selects due tasks in small batches".
const DefaultBatchSize = 20

// maxBackoff caps the exponential backoff applied to a task whose Finalize
// attempt failed, per spec §5 "retried on the next tick with exponential
// backoff recorded on the task row".
const maxBackoff = 30 * time.Minute

// Sweeper is the background loop from spec §4.4/§5: it periodically
// selects tasks past their due_at and finalizes each one, retrying
// failures on a later tick rather than terminating the process. Grounded
// on the teacher's threadgroup-guarded background goroutine shape
// (modules/wallet's w.tg.Add()/defer w.tg.Done() around every suspension
// point, modules/wallet/update.go's subscribeWallet rescan-progress
// goroutine ticking on time.Tick).
type Sweeper struct {
	engine    *Engine
	tick      time.Duration
	batchSize int
	tg        threadgroup.ThreadGroup
}

// NewSweeper constructs a Sweeper over engine with the given tick interval
// and batch size; zero values fall back to DefaultTick/DefaultBatchSize.
func NewSweeper(engine *Engine, tick time.Duration, batchSize int) *Sweeper {
	if tick <= 0 {
		tick = DefaultTick
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sweeper{engine: engine, tick: tick, batchSize: batchSize}
}

// Start launches the sweep loop in a background goroutine. Stop must be
// called to shut it down cleanly.
func (s *Sweeper) Start() error {
	if err := s.tg.Add(); err != nil {
		return err
	}
	go func() {
		defer s.tg.Done()
		s.run()
	}()
	return nil
}

// Stop signals the loop to exit and waits for the in-flight tick (if any)
// to finish, per spec §5 "cancellation-safe: either committed atomically
// or not at all".
func (s *Sweeper) Stop() error {
	return s.tg.Stop()
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	stopChan := s.tg.StopChan()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopChan
		cancel()
	}()
	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs one sweep pass: select due tasks, finalize each serially
// (spec §5 "processes them serially"), logging and continuing past any
// single task's failure (spec §7 "the sweeper logs and carries on; it
// never terminates the process").
func (s *Sweeper) sweepOnce(ctx context.Context) {
	now := time.Now().UTC()
	var dueIDs []taskAttempt
	err := s.engine.db.View(ctx, func(tx *store.Tx) error {
		due, err := tx.DueTasks(now, s.batchSize)
		if err != nil {
			return err
		}
		dueIDs = make([]taskAttempt, len(due))
		for i, t := range due {
			dueIDs[i] = taskAttempt{id: t.ID, attempts: t.AttemptCount}
		}
		return nil
	})
	if err != nil {
		s.engine.log.Printf("sweeper: DueTasks failed: %v", err)
		return
	}

	for _, d := range dueIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.engine.Finalize(ctx, d.id); err != nil {
			s.engine.log.Printf("sweeper: Finalize(%s) failed: %v", d.id, err)
			if backoffErr := s.engine.recordBackoff(ctx, d.id, d.attempts); backoffErr != nil {
				s.engine.log.Printf("sweeper: recordBackoff(%s) failed: %v", d.id, backoffErr)
			}
		}
	}
}

type taskAttempt struct {
	id       types.ID
	attempts int
}
