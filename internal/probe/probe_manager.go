package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/tkjaer/eping/internal/output"
	"github.com/tkjaer/eping/internal/shared"
)

// Prober issues single probes and keeps the session tallies.
type Prober interface {
	Probe(ctx context.Context) (Result, error)
	Sent() uint
	Received() uint
	Failed() uint
}

// ProbeManager runs probes on a fixed schedule and renders each result and
// the final statistics through an OutputManager.
type ProbeManager struct {
	prober      Prober
	probeConfig ProbeConfig
	output      *output.OutputManager

	delays []float64

	now func() time.Time
}

// NewProbeManager creates a probe manager running prober according to cfg.
func NewProbeManager(prober Prober, cfg ProbeConfig, om *output.OutputManager) *ProbeManager {
	return &ProbeManager{
		prober:      prober,
		probeConfig: cfg,
		output:      om,
		now:         time.Now,
	}
}

// Run probes until the configured count is reached or ctx is cancelled, then
// renders the statistics. Probe i is due at start + i*interval, so a slow
// probe shortens the following pause rather than shifting the schedule.
//
// Cancellation is a normal way to stop and returns nil. Errors that make
// probing impossible, such as ErrPermissionDenied, are returned without
// statistics. Without a count and without continuous mode nothing is sent.
func (pm *ProbeManager) Run(ctx context.Context) error {
	if !pm.probeConfig.Continuous && pm.probeConfig.Count == 0 {
		return nil
	}

	start := pm.now()
	for tick := uint(0); pm.probeConfig.Continuous || tick < pm.probeConfig.Count; tick++ {
		due := start.Add(time.Duration(tick) * pm.probeConfig.Interval)
		if !pm.sleepUntil(ctx, due) {
			slog.Debug("Probing cancelled while waiting", "tick", tick)
			break
		}

		result, err := pm.prober.Probe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Debug("Probing cancelled during probe", "tick", tick)
				break
			}
			return err
		}
		pm.record(result)
	}

	pm.finish()
	return nil
}

// sleepUntil waits for due and reports false when ctx was cancelled first.
func (pm *ProbeManager) sleepUntil(ctx context.Context, due time.Time) bool {
	if ctx.Err() != nil {
		return false
	}
	wait := due.Sub(pm.now())
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (pm *ProbeManager) record(result Result) {
	if result.Outcome == shared.OutcomeSuccess {
		pm.delays = append(pm.delays, result.Delay())
	}
	pm.output.ProbeResult(result.Record())
}

func (pm *ProbeManager) finish() {
	stats, err := pm.Statistics()
	if err != nil {
		slog.Debug("Incomplete statistics", "error", err)
	}
	pm.output.Summary(stats)
}
