// internal/scheduler/scheduler.go
package scheduler

import (
	"encoding/json"
	"log"
	"time"

	"github.com/unclebandit/hyperdrip/internal/capacity"
	appErrors "github.com/unclebandit/hyperdrip/internal/errors"
	"github.com/unclebandit/hyperdrip/internal/metrics"
	"github.com/unclebandit/hyperdrip/internal/model"
	"github.com/unclebandit/hyperdrip/internal/queue"
	"github.com/unclebandit/hyperdrip/internal/repository"
)

// Scheduler fans an admitted lead's N future messages out across
// date-partitioned day-queues, under a global per-day capacity
// budget.
type Scheduler struct {
	LeadRepo repository.LeadRepositoryInterface
	Queue    queue.Queue
	Capacity *capacity.Oracle
	Metrics  *metrics.Metrics

	DailyMax        int
	OverflowHorizon int
	TestMode        bool

	// Now is overridable in tests; defaults to time.Now when nil.
	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Admit computes the date assignment for messages 1..N, materializes
// them as durable queue entries, and records the lead as ACTIVE with
// next_scheduled_for = today. The scheduler is not transactional with
// the lead write: a partial failure after some messages are enqueued
// leaves a lead with fewer queue entries than max_messages, logged and
// tolerated as eventually-repairable.
func (s *Scheduler) Admit(lead *model.Lead) error {
	today := civilDay(s.now())

	for m := 1; m <= lead.MaxMessages; m++ {
		preferred := today.AddDate(0, 0, m-1)

		day, err := s.pickDay(preferred, lead.ID, m)
		if err != nil {
			log.Println("⚠️ scheduler: capacity lookup failed, continuing:", err)
			continue
		}

		name := queue.Name(day, s.TestMode)
		if err := s.Queue.Create(name); err != nil {
			log.Println("⚠️ scheduler: failed to ensure queue", name, ":", err)
			continue
		}

		payload, err := json.Marshal(model.QueueEntryPayload{
			LeadID:        lead.ID,
			Email:         lead.Email,
			MessageNumber: m,
			ScheduledDate: day.Format("2006-01-02"),
		})
		if err != nil {
			log.Println("⚠️ scheduler: failed to marshal payload:", err)
			continue
		}

		if _, err := s.Queue.Send(name, payload); err != nil {
			log.Println("⚠️ scheduler: failed to enqueue message", m, "for lead", lead.ID, ":", err)
			continue
		}
	}

	lead.Status = model.StatusActive
	lead.NextScheduledFor = &today

	_, err := s.LeadRepo.Advance(lead.ID, func(l *model.Lead) error {
		l.Status = model.StatusActive
		l.NextScheduledFor = &today
		return nil
	})
	return err
}

// pickDay scans forward from preferred for up to OverflowHorizon days,
// returning the first day with used(day) < DailyMax. If the horizon
// is exhausted, it clamps to the last day scanned — the lead still
// gets scheduled, at degraded fidelity.
func (s *Scheduler) pickDay(preferred time.Time, leadID string, messageNumber int) (time.Time, error) {
	horizon := s.OverflowHorizon
	if horizon < 1 {
		horizon = 1
	}

	var lastDay time.Time
	for i := 0; i < horizon; i++ {
		day := preferred.AddDate(0, 0, i)
		lastDay = day

		used, err := s.Capacity.Used(day)
		if err != nil {
			return time.Time{}, err
		}
		if used < s.DailyMax {
			return day, nil
		}
	}

	log.Println("⚠️", appErrors.NewCapacityOverflow(leadID, messageNumber, horizon).Error(),
		"— clamping to", lastDay.Format("2006-01-02"))
	if s.Metrics != nil {
		s.Metrics.ScheduleOverflowTotal.Inc()
	}
	return lastDay, nil
}

// civilDay truncates t to midnight UTC of its calendar day.
func civilDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
