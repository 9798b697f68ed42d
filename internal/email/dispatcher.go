package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"clientlance/internal/logging"
)

const DefaultSendTimeout = 30 * time.Second

// Dispatcher sends mail either in the background (best effort, logged on
// failure, never retried) or inline for callers that must report the result.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration

	// Outcomes, when set, counts sends by result ("sent", "failed", "dropped").
	Outcomes *prometheus.CounterVec

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger, timeout: DefaultSendTimeout}
}

// WithTimeout overrides the per-message deadline.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	d.timeout = timeout
	return d
}

// Dispatch queues msg on its own goroutine. The send keeps ctx's values
// (request id) but not its cancellation. After Close it drops the message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.observe("dropped")
		d.logger.WarnContext(ctx, "email dispatcher closed, dropping message", "subject", msg.Subject)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		if err := d.Send(ctx, msg); err != nil {
			logging.LogError(ctx, d.logger, "async email failed", err)
		}
	}()
}

// Send delivers msg before returning, bounded by the dispatcher timeout.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.observe("failed")
		return err
	}
	d.observe("sent")
	return nil
}

// Close stops accepting background sends and waits for those in flight.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) observe(outcome string) {
	if d.Outcomes != nil {
		d.Outcomes.WithLabelValues(outcome).Inc()
	}
}
