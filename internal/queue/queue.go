// internal/queue/queue.go
package queue

import (
	"fmt"
	"time"
)

// Entry is one leased delivery returned by Read: a message that is
// now invisible to other readers until its lease expires or it is
// archived.
type Entry struct {
	MsgID      string
	ReadCount  int
	EnqueuedAt time.Time
	VisibleAt  time.Time
	Payload    []byte
}

// Queue is the day-queue capability set from the spec: create/drop
// are idempotent, send appends and returns a stable id, read leases
// up to qty entries for vt, archive permanently removes an entry and
// is idempotent on already-archived ids. Any implementation
// satisfying this contract is substitutable — production runs on
// RabbitMQ (AMQPQueue), tests run on an in-memory double (MemoryQueue).
type Queue interface {
	Create(name string) error
	Drop(name string) error
	Send(name string, payload []byte) (msgID string, err error)
	Read(name string, vt time.Duration, qty int) ([]Entry, error)
	Archive(name string, msgID string) error
}

// Name derives the bijective day-queue name for a calendar date, in
// the server's reference time zone, optionally under the test-mode
// prefix. No other characters are permitted in the date component.
func Name(date time.Time, testMode bool) string {
	suffix := date.Format("2006-01-02")
	if testMode {
		return fmt.Sprintf("test-drip-messages-%s", suffix)
	}
	return fmt.Sprintf("drip-messages-%s", suffix)
}
