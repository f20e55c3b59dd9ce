// internal/queue/amqp_queue.go
package queue

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	appErrors "github.com/unclebandit/hyperdrip/internal/errors"
)

// AMQPQueue backs the day-queue contract with RabbitMQ, generalizing
// the teacher's existing QueueDeclare/Publish/Consume/Ack/Nack usage
// (cmd/worker/main.go, internal/controller/campaign_controller.go) to
// many named queues instead of one.
//
// AMQP has no native per-message visibility timeout: a basic.get or a
// manual-ack consumer holds a delivery until Ack or Nack. Read
// synthesizes a visibility timeout by tracking each leased delivery in
// leases and scheduling a requeueing Nack with time.AfterFunc if the
// entry isn't archived within vt.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu     sync.Mutex
	leases map[string]*lease // msgID -> outstanding lease
}

type lease struct {
	queue    string
	delivery amqp.Delivery
	timer    *time.Timer
	archived bool
}

// NewAMQPQueue dials url and opens one channel, matching the teacher's
// connection bring-up.
func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, appErrors.NewTransientQueue("dial", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, appErrors.NewTransientQueue("channel", err)
	}
	return &AMQPQueue{
		conn:   conn,
		ch:     ch,
		leases: make(map[string]*lease),
	}, nil
}

// Close tears down the channel and connection.
func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

// Create declares a durable queue. AMQP declare is already idempotent
// for matching properties.
func (q *AMQPQueue) Create(name string) error {
	_, err := q.ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return appErrors.NewTransientQueue("create", err)
	}
	return nil
}

// Drop deletes a queue. A "not found" error from the broker is
// treated as a successful no-op, matching the idempotent-drop
// contract.
func (q *AMQPQueue) Drop(name string) error {
	_, err := q.ch.QueueDelete(name, false, false, false)
	if err != nil {
		if strings.Contains(err.Error(), "NOT_FOUND") || strings.Contains(err.Error(), "404") {
			return nil
		}
		return appErrors.NewTransientQueue("drop", err)
	}
	return nil
}

// Send publishes one message to the default exchange, routed to name
// by routing key, stamping a client-generated id as MessageId so Send
// and a later Archive can agree on the same identifier.
func (q *AMQPQueue) Send(name string, payload []byte) (string, error) {
	id := uuid.NewString()
	err := q.ch.Publish("", name, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   id,
		Body:        payload,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return "", appErrors.NewTransientQueue("send", err)
	}
	return id, nil
}

// Read leases up to qty messages via basic.get, each with a
// synthesized visibility timeout: if the lease is not archived within
// vt, the delivery is nacked with requeue=true so another reader (or
// this one, next poll) can retry it.
func (q *AMQPQueue) Read(name string, vt time.Duration, qty int) ([]Entry, error) {
	var entries []Entry
	for i := 0; i < qty; i++ {
		d, ok, err := q.ch.Get(name, false)
		if err != nil {
			return entries, appErrors.NewTransientQueue("read", err)
		}
		if !ok {
			break
		}

		msgID := d.MessageId
		if msgID == "" {
			msgID = uuid.NewString()
		}

		l := &lease{queue: name, delivery: d}
		q.mu.Lock()
		q.leases[msgID] = l
		q.mu.Unlock()

		l.timer = time.AfterFunc(vt, func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			cur, ok := q.leases[msgID]
			if !ok || cur.archived {
				return
			}
			if err := cur.delivery.Nack(false, true); err != nil {
				log.Println("⚠️ failed to requeue expired lease:", err)
			}
			delete(q.leases, msgID)
		})

		readCount := 1
		if d.Redelivered {
			readCount = 2
		}
		entries = append(entries, Entry{
			MsgID:      msgID,
			ReadCount:  readCount,
			EnqueuedAt: d.Timestamp,
			VisibleAt:  time.Now().UTC().Add(vt),
			Payload:    d.Body,
		})
	}
	return entries, nil
}

// Archive acknowledges the delivery behind msgID and cancels its
// visibility timer. Archiving an id with no outstanding lease
// (already archived, or the lease already expired and requeued) is a
// no-op success.
func (q *AMQPQueue) Archive(name string, msgID string) error {
	q.mu.Lock()
	l, ok := q.leases[msgID]
	if ok {
		delete(q.leases, msgID)
	}
	q.mu.Unlock()

	if !ok {
		return nil
	}
	l.timer.Stop()
	l.archived = true
	if err := l.delivery.Ack(false); err != nil {
		return appErrors.NewTransientQueue("archive", err)
	}
	return nil
}

var _ Queue = (*AMQPQueue)(nil)
