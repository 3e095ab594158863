package probe

import (
	"github.com/tkjaer/eping/internal/shared"
)

// Statistics computes the session aggregates from the prober's tallies and
// the delays recorded so far. It returns shared.ErrStatisticsUndefined, with
// the counters still filled in, when nothing was sent or nothing came back.
func (pm *ProbeManager) Statistics() (shared.SessionStats, error) {
	return shared.NewSessionStats(
		pm.probeConfig.Destination,
		pm.prober.Sent(),
		pm.prober.Received(),
		pm.prober.Failed(),
		pm.delays,
	)
}
