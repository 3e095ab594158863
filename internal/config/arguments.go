package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tkjaer/eping/internal/version"
)

// MaxPayloadSize is the largest ICMP payload that fits an IPv4 datagram
// (65535 - 20 byte IPv4 header - 8 byte ICMP header).
const MaxPayloadSize = 65507

type Args struct {
	Destination string
	NoResolve   bool

	// Probing
	Size       uint
	Count      uint
	Continuous bool

	// Timing
	Timeout  time.Duration
	Interval time.Duration

	// Output
	Json        bool   // output json to stdout
	JsonFile    string // output json to file while printing text
	MetricsAddr string // listen address for the prometheus exporter, empty = disabled

	// Logging
	Log      string // log file path, empty means no logging
	LogLevel string // log level: debug, info, warn, error
}

func ParseArgs() (Args, error) {
	var args Args
	var showVersion bool

	flag.Usage = func() {
		println("eping - ICMP echo prober")
		println()
		println("Sends ICMP echo requests over a raw socket and reports round-trip times,")
		println("loss and jitter. Raw sockets require root or CAP_NET_RAW.")
		println()
		println("Usage:")
		println("  eping [OPTIONS] DESTINATION")
		println()
		println("Examples:")
		println("  eping <destination>                  # Single probe")
		println("  eping -c 10 <destination>            # 10 probes, one per second")
		println("  eping -t -i 0.2 <destination>        # Probe until interrupted, 5 per second")
		println("  eping -w 500 <destination>           # Wait 500ms for the reply")
		println("  eping -c 5 -J <destination>          # JSON to stdout")
		println()
		println("Options:")
		flag.PrintDefaults()
	}

	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.UintVarP(&args.Size, "size", "s", 32, "Payload size in bytes")
	args.Timeout = 1000 * time.Millisecond
	flag.VarP(&unitDuration{d: &args.Timeout, unit: time.Millisecond}, "timeout", "w", "Time to wait for each reply (milliseconds, or a duration such as 1.5s)")
	flag.BoolVarP(&args.Continuous, "continuous", "t", false, "Probe the destination until interrupted")
	flag.UintVarP(&args.Count, "count", "c", 0, "Number of echo requests to send (0 = single probe)")
	args.Interval = 1 * time.Second
	flag.VarP(&unitDuration{d: &args.Interval, unit: time.Second}, "interval", "i", "Interval between echo requests (seconds, or a duration such as 200ms)")
	flag.BoolVarP(&args.NoResolve, "no-resolve", "n", false, "Do not resolve reply addresses to hostnames")
	flag.BoolVarP(&args.Json, "json", "J", false, "Write JSON output to stdout")
	flag.StringVarP(&args.JsonFile, "json-file", "j", "", "Write JSON output to file (keeps text output)")
	flag.StringVar(&args.MetricsAddr, "metrics", "", "Serve prometheus metrics on this address (e.g. :9469)")
	flag.StringVarP(&args.Log, "log", "l", "", "Diagnostic log file (empty = no logging)")
	flag.StringVar(&args.LogLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.Parse()

	if showVersion {
		fmt.Println(version.FullVersion())
		os.Exit(0)
	}

	args.Destination = flag.Arg(0)
	if args.Destination == "" {
		return args, errors.New("destination is required")
	}

	switch {
	case args.Json && args.JsonFile != "":
		return args, errors.New("cannot use both --json and --json-file")
	case args.Size > MaxPayloadSize:
		return args, fmt.Errorf("payload size must be between 0 and %d", MaxPayloadSize)
	case args.Timeout <= 0:
		return args, errors.New("timeout must be positive")
	case args.Interval <= 0:
		return args, errors.New("interval must be positive")
	case args.Continuous && args.Count > 0:
		return args, errors.New("cannot use both --continuous and --count")
	}

	return args, nil
}

// unitDuration is a duration flag that also accepts a bare number, read in
// unit.
type unitDuration struct {
	d    *time.Duration
	unit time.Duration
}

func (u *unitDuration) String() string {
	if u.d == nil {
		return ""
	}
	return u.d.String()
}

func (u *unitDuration) Set(s string) error {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("invalid duration %q", s)
		}
		*u.d = time.Duration(n * float64(u.unit))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*u.d = d
	return nil
}

func (u *unitDuration) Type() string {
	return "duration"
}

// Repeated reports whether the args ask for more than a single probe.
func (a Args) Repeated() bool {
	return a.Continuous || a.Count > 0
}
