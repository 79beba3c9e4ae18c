package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("notification queue is full")

// Async queues notifications and delivers them from one background worker,
// so slow transports do not hold up booking requests
type Async struct {
	next   Notifier
	logger *zap.Logger
	queue  chan Notification

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewAsync(next Notifier, size int, logger *zap.Logger) *Async {
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan Notification, size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for n := range a.queue {
		if err := a.next.Notify(context.Background(), n); err != nil {
			a.logger.Warn("Failed to deliver notification",
				zap.String("kind", string(n.Kind)),
				zap.String("booking_id", n.Booking.ID),
				zap.Error(err))
		}
	}
}

// Notify enqueues n without blocking
func (a *Async) Notify(ctx context.Context, n Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return errors.New("notification queue is closed")
	}

	select {
	case a.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	<-a.done
	return nil
}
