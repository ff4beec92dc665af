package monitor

import (
	"context"
	"time"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/metrics"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
)

// PodScanner yields the current set of crash-looping containers.
type PodScanner interface {
	Scan(ctx context.Context) ([]model.Detection, error)
}

// AlertDispatcher consumes one tick's detections.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, detections []model.Detection)
}

// Monitor alternates between scanning and sleeping for the process
// lifetime. Availability beats per-tick correctness: any error abandons
// the tick wholesale and the loop carries on.
type Monitor struct {
	log      *logger.Logger
	scanner  PodScanner
	disp     AlertDispatcher
	interval time.Duration
}

func New(log *logger.Logger, scanner PodScanner, disp AlertDispatcher, interval time.Duration) *Monitor {
	return &Monitor{log: log, scanner: scanner, disp: disp, interval: interval}
}

// Run blocks until ctx is cancelled. First tick fires immediately.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	m.log.Info().Dur("interval", m.interval).Msg("monitor loop started")
	m.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitor loop stopped")
			return
		case <-t.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("tick abandoned after panic")
		}
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	dets, err := m.scanner.Scan(ctx)
	if err != nil {
		metrics.ScanErrors.Inc()
		m.log.Error().Err(err).Msg("scan failed, skipping tick")
		return
	}
	if len(dets) > 0 {
		m.log.Info().Int("detections", len(dets)).Msg("crashloop pods found")
	}
	m.disp.Dispatch(ctx, dets)

	metrics.ScansTotal.Inc()
	metrics.LastTick.Set(float64(time.Now().Unix()))
}
