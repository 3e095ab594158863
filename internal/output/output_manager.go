package output

import (
	"errors"

	"github.com/tkjaer/eping/internal/shared"
)

// Output renders probe results and the final session statistics
type Output interface {
	ProbeResult(record shared.ProbeRecord)
	Summary(stats shared.SessionStats)
	Close() error
}

// OutputManager manages multiple outputs
type OutputManager struct {
	outputs []Output
}

func (om *OutputManager) Register(o Output) {
	om.outputs = append(om.outputs, o)
}

func (om *OutputManager) ProbeResult(record shared.ProbeRecord) {
	for _, o := range om.outputs {
		o.ProbeResult(record)
	}
}

func (om *OutputManager) Summary(stats shared.SessionStats) {
	for _, o := range om.outputs {
		o.Summary(stats)
	}
}

// Close closes every registered output and returns the joined errors.
func (om *OutputManager) Close() error {
	var errs []error
	for _, o := range om.outputs {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}
