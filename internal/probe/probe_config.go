package probe

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/tkjaer/eping/internal/config"
)

const (
	DefaultSize     = 32
	DefaultTimeout  = time.Second
	DefaultInterval = time.Second
	DefaultCount    = 4
)

// ProbeConfig holds what a probe session sends and how long it waits.
type ProbeConfig struct {
	Destination string
	Size        int
	Timeout     time.Duration
	Interval    time.Duration
	Count       uint
	Continuous  bool
	NoResolve   bool
}

// DefaultConfig returns the defaults for a counted run against destination.
func DefaultConfig(destination string) ProbeConfig {
	return ProbeConfig{
		Destination: destination,
		Size:        DefaultSize,
		Timeout:     DefaultTimeout,
		Interval:    DefaultInterval,
		Count:       DefaultCount,
	}
}

// ConfigFromArgs maps parsed command line arguments onto a ProbeConfig.
func ConfigFromArgs(a config.Args) ProbeConfig {
	return ProbeConfig{
		Destination: a.Destination,
		Size:        int(a.Size),
		Timeout:     a.Timeout,
		Interval:    a.Interval,
		Count:       a.Count,
		Continuous:  a.Continuous,
		NoResolve:   a.NoResolve,
	}
}

var engineInstances atomic.Uint32

// identity is the ICMP identifier/sequence pair of one engine.
type identity struct {
	id  uint16
	seq uint16
}

// newIdentity derives an identifier from the process id and a per-engine
// instance number so engines in one process don't share replies.
func newIdentity() *identity {
	return newIdentityFrom(os.Getpid(), engineInstances.Add(1))
}

func newIdentityFrom(pid int, instance uint32) *identity {
	return &identity{id: uint16((uint32(pid) ^ instance) & 0xffff)}
}

// next advances the sequence number, wrapping at 65536.
func (i *identity) next() uint16 {
	i.seq++
	return i.seq
}
