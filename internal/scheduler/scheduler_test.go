// internal/scheduler/scheduler_test.go
package scheduler_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/unclebandit/hyperdrip/internal/capacity"
	"github.com/unclebandit/hyperdrip/internal/model"
	"github.com/unclebandit/hyperdrip/internal/queue"
	"github.com/unclebandit/hyperdrip/internal/scheduler"
)

// fakeLeadRepo is an in-memory stand-in for repository.LeadRepositoryInterface.
type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*model.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[string]*model.Lead)}
}

func (f *fakeLeadRepo) Create(draft model.Draft) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &model.Lead{
		ID:          draft.Email, // deterministic id for test assertions
		Email:       draft.Email,
		Phone:       draft.Phone,
		Name:        draft.Name,
		MaxMessages: draft.MaxMessages,
		Status:      model.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	f.leads[l.ID] = l
	return l, nil
}

func (f *fakeLeadRepo) Get(id string) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeadRepo) Advance(id string, patch func(lead *model.Lead) error) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, nil
	}
	if err := patch(l); err != nil {
		return nil, err
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeadRepo) CountSentBetween(start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, l := range f.leads {
		if l.LastSentAt != nil && !l.LastSentAt.Before(start) && l.LastSentAt.Before(end) {
			count++
		}
	}
	return count, nil
}

// seedSentToday inserts n leads whose last_sent_at falls on day, so
// the capacity oracle sees them as already-counted sends.
func seedSentToday(f *fakeLeadRepo, day time.Time, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		ts := day.Add(time.Hour)
		id := time.Now().Format("150405.000000000") + string(rune('a'+i))
		f.leads[id] = &model.Lead{
			ID:           id,
			MaxMessages:  1,
			MessageCount: 1,
			LastSentAt:   &ts,
			Status:       model.StatusCompleted,
		}
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestScheduler_HappyPath_FiveMessagesAcrossFiveDays(t *testing.T) {
	repo := newFakeLeadRepo()
	q := queue.NewMemoryQueue()
	today := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	s := &scheduler.Scheduler{
		LeadRepo:        repo,
		Queue:           q,
		Capacity:        &capacity.Oracle{LeadRepo: repo},
		DailyMax:        100,
		OverflowHorizon: 30,
		Now:             fixedNow(today),
	}

	lead, err := repo.Create(model.Draft{Email: "alice@example.com", MaxMessages: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Admit(lead); err != nil {
		t.Fatalf("admit: %v", err)
	}

	for m := 1; m <= 5; m++ {
		day := today.AddDate(0, 0, m-1)
		name := queue.Name(day, false)
		entries, err := q.Read(name, time.Second, 10)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry in %s, got %d", name, len(entries))
		}

		var payload model.QueueEntryPayload
		if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if payload.MessageNumber != m {
			t.Errorf("queue %s: expected messageNumber %d, got %d", name, m, payload.MessageNumber)
		}
		if payload.ScheduledDate != day.Format("2006-01-02") {
			t.Errorf("queue %s: expected scheduledDate %s, got %s", name, day.Format("2006-01-02"), payload.ScheduledDate)
		}
	}

	updated, _ := repo.Get(lead.ID)
	if updated.Status != model.StatusActive {
		t.Errorf("expected lead status ACTIVE after admit, got %s", updated.Status)
	}
	if updated.NextScheduledFor == nil || !updated.NextScheduledFor.Equal(today) {
		t.Errorf("expected next_scheduled_for = today, got %v", updated.NextScheduledFor)
	}
}

func TestScheduler_Overflow_ScansForwardWhenDayIsFull(t *testing.T) {
	repo := newFakeLeadRepo()
	q := queue.NewMemoryQueue()
	today := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	seedSentToday(repo, today, 2)

	s := &scheduler.Scheduler{
		LeadRepo:        repo,
		Queue:           q,
		Capacity:        &capacity.Oracle{LeadRepo: repo},
		DailyMax:        2,
		OverflowHorizon: 30,
		Now:             fixedNow(today),
	}

	lead, err := repo.Create(model.Draft{Email: "overflow@example.com", MaxMessages: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Admit(lead); err != nil {
		t.Fatalf("admit: %v", err)
	}

	todayName := queue.Name(today, false)
	entries, _ := q.Read(todayName, time.Second, 10)
	if len(entries) != 0 {
		t.Fatalf("expected no entries in full day %s, got %d", todayName, len(entries))
	}

	tomorrow := today.AddDate(0, 0, 1)
	tomorrowName := queue.Name(tomorrow, false)
	entries, err = q.Read(tomorrowName, time.Second, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected overflowed entry in %s, got %d", tomorrowName, len(entries))
	}

	var payload model.QueueEntryPayload
	json.Unmarshal(entries[0].Payload, &payload)
	if payload.ScheduledDate != tomorrow.Format("2006-01-02") {
		t.Errorf("expected scheduledDate %s, got %s", tomorrow.Format("2006-01-02"), payload.ScheduledDate)
	}
}

func TestScheduler_DailyMaxZero_OverflowsToHorizonEnd(t *testing.T) {
	repo := newFakeLeadRepo()
	q := queue.NewMemoryQueue()
	today := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	s := &scheduler.Scheduler{
		LeadRepo:        repo,
		Queue:           q,
		Capacity:        &capacity.Oracle{LeadRepo: repo},
		DailyMax:        0,
		OverflowHorizon: 30,
		Now:             fixedNow(today),
	}

	lead, err := repo.Create(model.Draft{Email: "zero-cap@example.com", MaxMessages: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Admit(lead); err != nil {
		t.Fatalf("admit: %v", err)
	}

	lastDay := today.AddDate(0, 0, 29)
	name := queue.Name(lastDay, false)
	entries, err := q.Read(name, time.Second, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected clamped entry on horizon day %s, got %d entries", name, len(entries))
	}
}

func TestScheduler_SingleMessage_LeadStaysActiveUntilWorkerAdvances(t *testing.T) {
	repo := newFakeLeadRepo()
	q := queue.NewMemoryQueue()
	today := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	s := &scheduler.Scheduler{
		LeadRepo:        repo,
		Queue:           q,
		Capacity:        &capacity.Oracle{LeadRepo: repo},
		DailyMax:        100,
		OverflowHorizon: 30,
		Now:             fixedNow(today),
	}

	lead, _ := repo.Create(model.Draft{Email: "single@example.com", MaxMessages: 1})
	if err := s.Admit(lead); err != nil {
		t.Fatalf("admit: %v", err)
	}

	updated, _ := repo.Get(lead.ID)
	if updated.Status != model.StatusActive {
		t.Errorf("expected ACTIVE immediately after admit, got %s", updated.Status)
	}
	if updated.MessageCount != 0 {
		t.Errorf("expected message_count 0 before any advance, got %d", updated.MessageCount)
	}
}
