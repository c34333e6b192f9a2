// Package notify delivers best-effort notifications for lifecycle events.
// The engine publishes events to a Dispatcher; a worker goroutine delivers
// them asynchronously so a slow or failing mail server never blocks or rolls
// back the mutation that triggered it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rujoshi/zonetrack/internal/domain"
)

type EventKind string

const (
	EventWorkCreated         EventKind = "work_created"
	EventAfterPhotoSubmitted EventKind = "after_photo_submitted"
	EventWorkApproved        EventKind = "work_approved"
	EventWorkRejected        EventKind = "work_rejected"
)

// Event is a lifecycle fact the notifier turns into messages.
type Event struct {
	Kind       EventKind
	ZoneID     int
	WorkID     string
	WorkType   domain.WorkType
	Comment    string
	CapturedAt time.Time
	OccurredAt time.Time
}

// Notifier delivers one event. Implementations decide recipients and format.
type Notifier interface {
	Send(ctx context.Context, ev Event) error
}

// NoopNotifier discards every event. Used when notifications are disabled.
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, Event) error { return nil }

// Dispatcher queues events and delivers them on a background worker with a
// bounded per-send timeout. Delivery failures are logged and absorbed.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	queue    chan Event
	wg       sync.WaitGroup
	closed   sync.Once
}

func NewDispatcher(n Notifier, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		logger:   logger,
		timeout:  timeout,
		queue:    make(chan Event, 64),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish enqueues an event without blocking. If the queue is full the event
// is dropped and logged; notification loss is acceptable by contract.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("notification queue full, dropping event",
			"kind", ev.Kind, "zone_id", ev.ZoneID, "work_id", ev.WorkID)
	}
}

// Close stops accepting events and waits for the queued ones to drain.
func (d *Dispatcher) Close() {
	d.closed.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.notifier.Send(ctx, ev); err != nil {
			d.logger.Error("notification delivery failed",
				"kind", ev.Kind, "zone_id", ev.ZoneID, "work_id", ev.WorkID, "error", err)
		}
		cancel()
	}
}
