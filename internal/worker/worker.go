// internal/worker/worker.go
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unclebandit/hyperdrip/internal/metrics"
	"github.com/unclebandit/hyperdrip/internal/model"
	"github.com/unclebandit/hyperdrip/internal/queue"
	"github.com/unclebandit/hyperdrip/internal/repository"
)

// Worker drains today's day-queue, advancing each lead's monotonic
// message counter exactly once per message number despite crashes,
// retries, and concurrent workers. Its only process-global mutable
// state is the running flag and the poll goroutine's cancel handle,
// both guarded by mu; Start/Stop are safe against concurrent
// invocation and idempotent.
type Worker struct {
	LeadRepo repository.LeadRepositoryInterface
	Queue    queue.Queue
	Sender   Sender
	Metrics  *metrics.Metrics

	PollInterval      time.Duration
	MessageDelay      time.Duration
	VisibilityTimeout time.Duration
	TestMode          bool

	// Now is overridable in tests; defaults to time.Now when nil.
	Now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

// Start begins the poll loop in a background goroutine. Calling Start
// while already running is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.pollLoop(loopCtx)
}

// Stop signals the poll loop to exit and waits for it to return.
// Calling Stop while not running is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// IsRunning reports whether the poll loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		name := queue.Name(w.now(), w.TestMode)
		entries, err := w.Queue.Read(name, w.VisibilityTimeout, 1)
		if err != nil {
			log.Println("⚠️ worker: read failed, retrying next poll:", err)
			if w.Metrics != nil {
				w.Metrics.QueueReadErrors.Inc()
			}
			if !sleepOrDone(ctx, w.PollInterval) {
				return
			}
			continue
		}

		if len(entries) == 0 {
			if !sleepOrDone(ctx, w.PollInterval) {
				return
			}
			continue
		}

		for _, entry := range entries {
			w.processEntry(name, entry)
			if !sleepOrDone(ctx, w.MessageDelay) {
				return
			}
		}
	}
}

// processEntry implements the per-entry case analysis from the spec:
// missing lead, expected advance, already-processed, out-of-order.
// Archive only happens after the transaction (or the no-op decision)
// commits — archive-after-commit is the ordering that makes a crash
// produce at-most a duplicate send, never a lost or double state
// advance.
func (w *Worker) processEntry(queueName string, entry queue.Entry) {
	var payload model.QueueEntryPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		log.Println("⚠️ worker: malformed payload, archiving:", err)
		w.archive(queueName, entry.MsgID)
		return
	}

	lead, err := w.LeadRepo.Get(payload.LeadID)
	if err != nil {
		log.Println("⚠️ worker: store error loading lead, leaving entry for retry:", err)
		return // do not archive; lease expiry drives redelivery
	}
	if lead == nil {
		log.Println("ℹ️ worker: lead", payload.LeadID, "not found, archiving orphaned entry")
		w.archive(queueName, entry.MsgID)
		if w.Metrics != nil {
			w.Metrics.OrphanedArchived.Inc()
		}
		return
	}

	m := payload.MessageNumber
	c := lead.MessageCount

	switch {
	case c == m-1:
		if err := w.advanceExpected(lead, m); err != nil {
			log.Println("⚠️ worker: failed to advance lead", lead.ID, "message", m, ":", err)
			return // do not archive; retry
		}
		w.archive(queueName, entry.MsgID)
		if w.Metrics != nil {
			w.Metrics.SendsTotal.Inc()
		}

	case c >= m:
		log.Println("ℹ️ worker: lead", lead.ID, "message", m, "already processed, archiving without effect")
		w.archive(queueName, entry.MsgID)
		if w.Metrics != nil {
			w.Metrics.DuplicatesSuppressed.Inc()
		}

	default: // c < m-1
		log.Println("ℹ️ worker: lead", lead.ID, "message", m, "out of order (count =", c, "), archiving without effect")
		w.archive(queueName, entry.MsgID)
		if w.Metrics != nil {
			w.Metrics.OutOfOrderArchived.Inc()
		}
	}
}

// advanceExpected performs the send effect and the counter advance
// inside the lead store's row-locking transaction. The send happens
// before the transaction's patch function returns so that a send
// failure never commits a counter it didn't actually deliver against;
// a send success followed by a commit failure is the one case the
// spec accepts as at-least-once transport on top of exactly-once
// state advance.
func (w *Worker) advanceExpected(lead *model.Lead, m int) error {
	now := w.now()

	_, err := w.LeadRepo.Advance(lead.ID, func(l *model.Lead) error {
		if l.MessageCount != m-1 {
			// Lost the race to a concurrent advance between Get and
			// Advance; the other transaction already covered this
			// message number. Treat as a no-op, not an error.
			return nil
		}

		if err := w.Sender.Send(context.Background(), l.Email, m); err != nil {
			return fmt.Errorf("send effect failed: %w", err)
		}

		l.MessageCount = m
		l.LastSentAt = &now

		if l.MessageCount == l.MaxMessages {
			l.NextScheduledFor = nil
			l.Status = model.StatusCompleted
			if w.Metrics != nil {
				w.Metrics.LeadsCompleted.Inc()
			}
		} else {
			tomorrow := now.Add(24 * time.Hour)
			l.NextScheduledFor = &tomorrow
			l.Status = model.StatusActive
		}
		return nil
	})
	return err
}

func (w *Worker) archive(queueName, msgID string) {
	if err := w.Queue.Archive(queueName, msgID); err != nil {
		log.Println("⚠️ worker: archive failed, entry will be redelivered:", err)
	}
}

// sleepOrDone sleeps for d or returns false early if ctx is done.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
