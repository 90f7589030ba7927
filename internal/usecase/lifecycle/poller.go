package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/metrics"
)

// Poll defaults.
const (
	DefaultInterval = 60 * time.Second
	DefaultCeiling  = time.Hour
)

// Poller repeatedly tests a predicate at a fixed interval until it holds or
// a ceiling elapses. It is a best-effort wait, not a consistency guarantee.
type Poller struct {
	interval time.Duration
	ceiling  time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller. Non-positive values take the defaults.
func NewPoller(interval, ceiling time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{interval: interval, ceiling: ceiling, logger: logger}
}

// Until polls test. Transient remote errors count as "not yet"; any other
// error aborts. Exceeding the ceiling returns ErrOperationTimedOut.
func (p *Poller) Until(ctx context.Context, description string, test func(context.Context) (bool, error)) error {
	p.logger.Debug("entering poll", zap.String("wait", description))
	start := time.Now()

	for {
		done, err := test(ctx)
		switch {
		case err != nil && !domain.IsTransient(err):
			return fmt.Errorf("poll %s: %w", description, err)
		case err == nil && done:
			metrics.PollIterationsTotal.WithLabelValues("done").Inc()
			p.logger.Debug("leaving poll", zap.String("wait", description), zap.Duration("elapsed", time.Since(start)))
			return nil
		}

		if time.Since(start) >= p.ceiling {
			metrics.PollIterationsTotal.WithLabelValues("timeout").Inc()
			return fmt.Errorf("%w: %s still pending after %s", domain.ErrOperationTimedOut, description, p.ceiling)
		}
		metrics.PollIterationsTotal.WithLabelValues("waiting").Inc()
		p.logger.Debug("sleeping in poll", zap.String("wait", description), zap.Error(err))

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("poll %s: %w", description, ctx.Err())
		case <-timer.C:
		}
	}
}
