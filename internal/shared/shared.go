package shared

import (
	"errors"
	"math"
	"time"
)

// ErrStatisticsUndefined is returned when aggregates are requested before any
// probe was sent or before any reply was recorded.
var ErrStatisticsUndefined = errors.New("statistics undefined: no data")

// Outcome of a single probe, as rendered by outputs
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeSendFailed Outcome = "send_failed"
)

// ProbeRecord is the rendered form of one probe attempt
type ProbeRecord struct {
	Destination   string    `json:"destination"`
	DestinationIP string    `json:"destination_ip"`
	SourceIP      string    `json:"source_ip,omitempty"`    // Local address used for the probe
	Interface     string    `json:"interface,omitempty"`    // Outgoing interface
	ReplyIP       string    `json:"reply_ip,omitempty"`     // Address the reply came from
	ReplyPTR      string    `json:"reply_ptr,omitempty"`    // PTR record for the reply address
	Size          int       `json:"size"`                   // Payload bytes sent
	ReplySize     int       `json:"reply_size,omitempty"`   // Payload bytes received
	Seq           uint16    `json:"seq"`                    // ICMP sequence number
	TTL           uint8     `json:"ttl,omitempty"`          // TTL of the reply
	RTT           float64   `json:"rtt_ms"`                 // Round-trip time in milliseconds (0 unless success)
	Outcome       Outcome   `json:"outcome"`                // success, timeout or send_failed
	Error         string    `json:"error,omitempty"`        // Cause of a send failure
	Timestamp     time.Time `json:"timestamp"`              // When the request was sent
}

// SessionStats holds aggregates over a probe session.
//
// Counters are always valid. Loss is valid when Sent > 0, the RTT fields are
// valid when HasRTT is set.
type SessionStats struct {
	Destination string  `json:"destination"`
	Sent        uint    `json:"sent"`
	Received    uint    `json:"received"`
	Lost        uint    `json:"lost"`
	Failed      uint    `json:"failed"`   // Attempts that never left the host
	Loss        float64 `json:"loss"`     // Fraction lost, 0..1
	HasRTT      bool    `json:"has_rtt"`  // Min/Max/Avg/Jitter are meaningful
	Min         float64 `json:"min_ms"`
	Max         float64 `json:"max_ms"`
	Avg         float64 `json:"avg_ms"`
	Jitter      float64 `json:"jitter_ms"` // Population standard deviation of RTT
}

// LossPct returns the loss as a percentage.
func (s SessionStats) LossPct() float64 {
	return s.Loss * 100
}

// NewSessionStats computes aggregates from the sent/received tallies and the
// recorded delays (milliseconds). Whatever could be computed is returned
// alongside ErrStatisticsUndefined when sent is zero or no delays exist.
func NewSessionStats(destination string, sent, received, failed uint, delays []float64) (SessionStats, error) {
	stats := SessionStats{
		Destination: destination,
		Sent:        sent,
		Received:    received,
		Failed:      failed,
	}
	if received < sent {
		stats.Lost = sent - received
	}

	if sent == 0 {
		return stats, ErrStatisticsUndefined
	}
	stats.Loss = calculateLoss(stats.Lost, sent)

	if len(delays) == 0 {
		return stats, ErrStatisticsUndefined
	}

	stats.HasRTT = true
	stats.Min, stats.Max = delays[0], delays[0]
	var sum float64
	for _, d := range delays {
		stats.Min = math.Min(stats.Min, d)
		stats.Max = math.Max(stats.Max, d)
		sum += d
	}
	stats.Avg = sum / float64(len(delays))
	stats.Jitter = calculateStdDev(delays, stats.Avg)

	return stats, nil
}

func calculateLoss(lost, sent uint) float64 {
	if sent == 0 {
		return 0
	}
	return float64(lost) / float64(sent)
}

// calculateStdDev returns the population standard deviation around avg.
func calculateStdDev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var squares float64
	for _, v := range values {
		squares += (v - avg) * (v - avg)
	}
	return math.Sqrt(squares / float64(len(values)))
}
