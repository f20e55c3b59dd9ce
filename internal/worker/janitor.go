// internal/worker/janitor.go
package worker

import (
	"context"
	"log"
	"time"

	"github.com/unclebandit/hyperdrip/internal/queue"
)

// Janitor drops day-queues older than a retention horizon. It runs
// once at worker startup (mandatory per spec) and is additionally
// wired to a daily cron job in cmd/worker so a long-lived worker
// process still reclaims queues without needing a restart.
type Janitor struct {
	Queue     queue.Queue
	Retention int // days of past queues kept alive
	Timeout   time.Duration

	// Now is overridable in tests; defaults to time.Now when nil.
	Now func() time.Time
}

func (j *Janitor) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now().UTC()
}

// Sweep drops both the plain and test-prefixed day-queues for the
// retention+7 consecutive days counting back from today-retention,
// under a global timeout; days before that window are not visited.
// Failing or timed-out drops are ignored — the janitor is best-effort
// and idempotent.
func (j *Janitor) Sweep(ctx context.Context) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retention := j.Retention
	if retention < 0 {
		retention = 0
	}

	today := civilDay(j.now())
	// oldest is the newest day that must be dropped: retention days of
	// history survive (today, today-1, ..., today-retention+1), so the
	// drop set starts at today-retention.
	oldest := today.AddDate(0, 0, -retention)

	// Visit retention+7 days going back from oldest, so queues that
	// accumulated during an extended outage still get reclaimed.
	lookback := retention + 7

	for i := 0; i < lookback; i++ {
		day := oldest.AddDate(0, 0, -i)

		select {
		case <-ctx.Done():
			log.Println("⚠️ janitor: timed out, abandoning remaining drops")
			return
		default:
		}

		for _, name := range []string{queue.Name(day, false), queue.Name(day, true)} {
			if err := j.Queue.Drop(name); err != nil {
				log.Println("⚠️ janitor: failed to drop", name, "(ignored):", err)
			}
		}
	}
}

func civilDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
