package output

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tkjaer/eping/internal/shared"
)

// PrometheusOutput exposes probe results as Prometheus metrics.
type PrometheusOutput struct {
	registry *prometheus.Registry

	rtt           *prometheus.GaugeVec
	rttHistogram  *prometheus.HistogramVec
	timeout       *prometheus.GaugeVec
	probesTotal   *prometheus.CounterVec
	lastProbeTime *prometheus.GaugeVec
	loss          *prometheus.GaugeVec
	jitter        *prometheus.GaugeVec

	mu      sync.Mutex
	tallies map[string]*tally
}

// tally holds the running session counts for one destination, so loss and
// jitter can be exported while probing is still in progress.
type tally struct {
	sent, received, failed uint
	delays                 []float64
}

// NewPrometheusOutput registers the eping metrics on a new registry.
func NewPrometheusOutput() (*PrometheusOutput, error) {
	p := &PrometheusOutput{
		registry: prometheus.NewRegistry(),
		tallies:  make(map[string]*tally),
		rtt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eping_rtt_ms",
				Help: "Round-trip time of the last answered probe in milliseconds",
			},
			[]string{"destination", "destination_ip"},
		),
		rttHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eping_rtt_distribution_ms",
				Help:    "Distribution of round-trip times in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 14),
			},
			[]string{"destination"},
		),
		timeout: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eping_timeout",
				Help: "Whether the last probe timed out (1 = timeout, 0 = response)",
			},
			[]string{"destination"},
		),
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eping_probes_total",
				Help: "Total number of probes by outcome",
			},
			[]string{"destination", "outcome"},
		),
		lastProbeTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eping_last_probe_timestamp",
				Help: "Timestamp of the last probe",
			},
			[]string{"destination"},
		),
		loss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eping_loss_ratio",
				Help: "Fraction of sent probes without a reply so far",
			},
			[]string{"destination"},
		),
		jitter: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eping_jitter_ms",
				Help: "Standard deviation of the round-trip times so far in milliseconds",
			},
			[]string{"destination"},
		),
	}

	var errs []error
	for _, c := range []prometheus.Collector{
		p.rtt, p.rttHistogram, p.timeout, p.probesTotal, p.lastProbeTime, p.loss, p.jitter,
	} {
		errs = append(errs, p.registry.Register(c))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusOutput) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusOutput) ProbeResult(record shared.ProbeRecord) {
	dest := record.Destination

	p.probesTotal.WithLabelValues(dest, string(record.Outcome)).Inc()
	// Attempts that failed before sending carry no timestamp.
	if !record.Timestamp.IsZero() {
		p.lastProbeTime.WithLabelValues(dest).Set(float64(record.Timestamp.Unix()))
	}

	switch record.Outcome {
	case shared.OutcomeSuccess:
		p.timeout.WithLabelValues(dest).Set(0)
		p.rtt.WithLabelValues(dest, record.DestinationIP).Set(record.RTT)
		p.rttHistogram.WithLabelValues(dest).Observe(record.RTT)
	case shared.OutcomeTimeout:
		p.timeout.WithLabelValues(dest).Set(1)
	}

	p.updateSession(record)
}

// updateSession folds record into the running tally of its destination and
// refreshes the loss and jitter gauges.
func (p *PrometheusOutput) updateSession(record shared.ProbeRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tallies[record.Destination]
	if !ok {
		t = &tally{}
		p.tallies[record.Destination] = t
	}
	switch record.Outcome {
	case shared.OutcomeSuccess:
		t.sent++
		t.received++
		t.delays = append(t.delays, record.RTT)
	case shared.OutcomeTimeout:
		t.sent++
	case shared.OutcomeSendFailed:
		t.failed++
	}

	stats, err := shared.NewSessionStats(record.Destination, t.sent, t.received, t.failed, t.delays)
	if err != nil {
		slog.Debug("Partial session metrics", "destination", record.Destination, "error", err)
	}
	p.setSession(stats)
}

// Summary sets the final session values, which take precedence over the
// running tally.
func (p *PrometheusOutput) Summary(stats shared.SessionStats) {
	p.setSession(stats)
}

func (p *PrometheusOutput) setSession(stats shared.SessionStats) {
	if stats.Sent > 0 {
		p.loss.WithLabelValues(stats.Destination).Set(stats.Loss)
	}
	if stats.HasRTT {
		p.jitter.WithLabelValues(stats.Destination).Set(stats.Jitter)
	}
}

func (p *PrometheusOutput) Close() error { return nil }
