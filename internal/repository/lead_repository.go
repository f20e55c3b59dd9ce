// internal/repository/lead_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/hyperdrip/internal/errors"
	"github.com/unclebandit/hyperdrip/internal/model"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// LeadRepositoryInterface is the capability set the scheduler and
// worker depend on. Any store satisfying it is substitutable, per the
// duck-typed store/queue contract.
type LeadRepositoryInterface interface {
	Create(draft model.Draft) (*model.Lead, error)
	Get(id string) (*model.Lead, error)
	Advance(id string, patch func(lead *model.Lead) error) (*model.Lead, error)
	CountSentBetween(start, end time.Time) (int, error)
}

// LeadRepository is the Postgres-backed implementation, in the
// teacher's positional-placeholder / QueryRow-Scan style.
type LeadRepository struct {
	DB *sql.DB
}

// Create inserts a new lead, ACTIVE, with message_count = 0. Unique
// violations on email or phone are translated into DuplicateKeyError.
func (r *LeadRepository) Create(draft model.Draft) (*model.Lead, error) {
	lead := &model.Lead{
		ID:           uuid.NewString(),
		Email:        draft.Email,
		Phone:        draft.Phone,
		Name:         draft.Name,
		Notes:        draft.Notes,
		MaxMessages:  draft.MaxMessages,
		MessageCount: 0,
		Status:       model.StatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
        INSERT INTO leads (id, email, phone, name, notes, max_messages, message_count, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
    `
	_, err := r.DB.Exec(query, lead.ID, lead.Email, lead.Phone, lead.Name, lead.Notes,
		lead.MaxMessages, lead.Status, lead.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case "leads_email_key":
				return nil, appErrors.NewDuplicateKey("email", draft.Email)
			case "leads_phone_key":
				return nil, appErrors.NewDuplicateKey("phone", draft.Phone)
			}
			return nil, appErrors.NewDuplicateKey("natural key", draft.Email)
		}
		return nil, appErrors.NewTransientStore("create", err)
	}

	return lead, nil
}

// Get fetches a lead by id, or (nil, nil) if absent — the worker's
// "missing lead" case relies on this rather than an error.
func (r *LeadRepository) Get(id string) (*model.Lead, error) {
	query := `
        SELECT id, email, phone, name, notes, max_messages, message_count,
               last_sent_at, next_scheduled_for, status, created_at
        FROM leads WHERE id=$1
    `
	var l model.Lead
	err := r.DB.QueryRow(query, id).Scan(
		&l.ID, &l.Email, &l.Phone, &l.Name, &l.Notes, &l.MaxMessages, &l.MessageCount,
		&l.LastSentAt, &l.NextScheduledFor, &l.Status, &l.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.NewTransientStore("get", err)
	}
	return &l, nil
}

// Advance runs patch inside a row-locking transaction: SELECT ... FOR
// UPDATE pins the row, patch mutates the in-memory lead, and the
// mutated fields are written back before COMMIT. Two concurrent
// Advance calls on the same lead id cannot both observe the
// pre-advance counter — the second blocks on the row lock until the
// first commits.
func (r *LeadRepository) Advance(id string, patch func(lead *model.Lead) error) (*model.Lead, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, appErrors.NewTransientStore("advance-begin", err)
	}
	defer tx.Rollback()

	var l model.Lead
	query := `
        SELECT id, email, phone, name, notes, max_messages, message_count,
               last_sent_at, next_scheduled_for, status, created_at
        FROM leads WHERE id=$1 FOR UPDATE
    `
	err = tx.QueryRow(query, id).Scan(
		&l.ID, &l.Email, &l.Phone, &l.Name, &l.Notes, &l.MaxMessages, &l.MessageCount,
		&l.LastSentAt, &l.NextScheduledFor, &l.Status, &l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, appErrors.NewTransientStore("advance-select", err)
	}

	if err := patch(&l); err != nil {
		return nil, err
	}

	update := `
        UPDATE leads
        SET message_count=$1, last_sent_at=$2, next_scheduled_for=$3, status=$4
        WHERE id=$5
    `
	if _, err := tx.Exec(update, l.MessageCount, l.LastSentAt, l.NextScheduledFor, l.Status, l.ID); err != nil {
		return nil, appErrors.NewTransientStore("advance-update", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.NewTransientStore("advance-commit", err)
	}

	return &l, nil
}

// CountSentBetween is the capacity oracle's primitive: how many leads
// completed a send with last_sent_at in [start, end).
func (r *LeadRepository) CountSentBetween(start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM leads WHERE last_sent_at >= $1 AND last_sent_at < $2`
	var count int
	if err := r.DB.QueryRow(query, start, end).Scan(&count); err != nil {
		return 0, appErrors.NewTransientStore("count-sent-between", err)
	}
	return count, nil
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
