// internal/worker/sender.go
package worker

import (
	"context"
	"log"
)

// Sender is the pluggable "send" effect the worker invokes for each
// expected advance. It is an opaque side effect that either succeeds
// or fails; the worker treats a non-nil error as "do not archive,
// let the lease expire and retry."
type Sender interface {
	Send(ctx context.Context, email string, messageNumber int) error
}

// LogSender is the canonical default: it logs the send instead of
// calling a real transport, matching the teacher's own MockSender
// stand-in for SMS/email delivery.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email string, messageNumber int) error {
	log.Printf("📨 sending message %d to %s\n", messageNumber, email)
	return nil
}

var _ Sender = LogSender{}
