package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/tkjaer/eping/internal/shared"
	"golang.org/x/term"
)

// Styles, only applied when writing to a terminal
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FBBF24"))

	statsGoodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399"))

	statsWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FBBF24"))

	statsBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171"))
)

// TextOutput prints one line per probe and a statistics block at the end.
type TextOutput struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
}

// NewTextOutput writes to w, with colors if w is a terminal.
func NewTextOutput(w io.Writer) *TextOutput {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &TextOutput{w: w, styled: styled}
}

func (t *TextOutput) style(s lipgloss.Style, text string) string {
	if !t.styled {
		return text
	}
	return s.Render(text)
}

func (t *TextOutput) ProbeResult(record shared.ProbeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := fmt.Sprintf("Pinging %s with %d bytes of data: ", displayName(record), record.Size)
	var line string
	switch record.Outcome {
	case shared.OutcomeSuccess:
		line = fmt.Sprintf("time=%sms, ttl=%d, icmp_seq=%d",
			t.style(statsGoodStyle, fmt.Sprintf("%.2f", record.RTT)), record.TTL, record.Seq)
	case shared.OutcomeTimeout:
		line = t.style(statsWarningStyle, "request timed out") + fmt.Sprintf(", icmp_seq=%d", record.Seq)
	default:
		line = t.style(statsBadStyle, "general failure: "+record.Error)
	}
	fmt.Fprintln(t.w, prefix+line)
}

func (t *TextOutput) Summary(stats shared.SessionStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", t.style(headerStyle, "Ping statistics for "+stats.Destination+":"))

	loss := "no data"
	if stats.Sent > 0 {
		loss = fmt.Sprintf("%.2f%% loss", stats.LossPct())
		switch {
		case stats.Lost == 0:
			loss = t.style(statsGoodStyle, loss)
		case stats.Lost == stats.Sent:
			loss = t.style(statsBadStyle, loss)
		default:
			loss = t.style(statsWarningStyle, loss)
		}
	}
	fmt.Fprintf(&b, "    Packets: sent=%d, received=%d, lost=%d (%s)\n", stats.Sent, stats.Received, stats.Lost, loss)
	if stats.Failed > 0 {
		fmt.Fprintf(&b, "    Send failures: %d\n", stats.Failed)
	}

	if stats.HasRTT {
		fmt.Fprintf(&b, "    Round-trip times: min=%.2fms, max=%.2fms, avg=%.2fms, jitter=%.2fms\n",
			stats.Min, stats.Max, stats.Avg, stats.Jitter)
	} else {
		fmt.Fprintln(&b, "    Round-trip times: no data")
	}

	io.WriteString(t.w, b.String())
}

func (t *TextOutput) Close() error { return nil }

// displayName shows the resolved address next to a hostname destination.
func displayName(record shared.ProbeRecord) string {
	if record.DestinationIP == "" || record.DestinationIP == record.Destination {
		return record.Destination
	}
	return fmt.Sprintf("%s [%s]", record.Destination, record.DestinationIP)
}
