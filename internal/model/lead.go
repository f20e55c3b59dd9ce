// internal/model/lead.go
package model

import "time"

// Lead statuses. ACTIVE is the only status leads are admitted in;
// COMPLETED is reached once message_count == max_messages; FAILED is
// reserved for operator action and is never set by the core.
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Lead is the durable record of one lead moving through a drip
// campaign. MessageCount is the only field the worker advances; every
// other field is set once at admission (Email/Phone/Name/Notes/
// MaxMessages) or derived from an advance (LastSentAt/
// NextScheduledFor/Status).
type Lead struct {
	ID                string     `db:"id" json:"id"`
	Email             string     `db:"email" json:"email"`
	Phone             string     `db:"phone" json:"phone"`
	Name              string     `db:"name" json:"name"`
	Notes             string     `db:"notes" json:"notes,omitempty"`
	MaxMessages       int        `db:"max_messages" json:"maxMessages"`
	MessageCount      int        `db:"message_count" json:"messageCount"`
	LastSentAt        *time.Time `db:"last_sent_at" json:"lastSentAt,omitempty"`
	NextScheduledFor  *time.Time `db:"next_scheduled_for" json:"nextScheduledFor,omitempty"`
	Status            string     `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
}

// Draft is the validated-but-unpersisted lead the admission API
// receives. Front-end well-formedness checks (email shape, phone
// length, non-empty name) happen upstream of this struct; Hyperdrip's
// core only requires that MaxMessages is positive.
type Draft struct {
	Email       string
	Phone       string
	Name        string
	Notes       string
	MaxMessages int
}
