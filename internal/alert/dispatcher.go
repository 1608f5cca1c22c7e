package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/observability"
)

// DefaultSendInterval is the minimum spacing between two messages.
const DefaultSendInterval = 500 * time.Millisecond

// Notifier delivers one message to the alert channel
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, text string) error

func (f NotifierFunc) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Result 单批次发送结果
type Result struct {
	Sent   int
	Failed int
}

// Dispatcher sends one message per candidate, in order, throttled.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	format   func(models.Candidate) string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher creates a dispatcher spacing sends at least interval apart.
// The limiter is shared by every batch this dispatcher handles.
func NewDispatcher(notifier Notifier, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, 1),
		format:   Format,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch never aborts on a failed send; the failure is logged and the
// next candidate is processed. There is no retry here.
func (d *Dispatcher) Dispatch(ctx context.Context, entities []models.Candidate) Result {
	var res Result

	for _, e := range entities {
		kind := string(e.Kind())

		if err := d.limiter.Wait(ctx); err != nil {
			res.Failed++
			d.metrics.AlertFailed(kind)
			d.logger.Error("alert throttle aborted", "kind", kind, "key", e.Key(), "err", err)
			continue
		}

		if err := d.send(ctx, e); err != nil {
			res.Failed++
			d.metrics.AlertFailed(kind)
			d.logger.Error("failed to send alert", "kind", kind, "key", e.Key(), "err", err)
			continue
		}

		res.Sent++
		d.metrics.AlertSent(kind)
	}

	return res
}

// send formats and delivers one candidate. A panic in either step is
// returned as that candidate's error.
func (d *Dispatcher) send(ctx context.Context, e models.Candidate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("alert panicked: %v", r)
		}
	}()

	return d.notifier.Send(ctx, d.format(e))
}
