package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tkjaer/eping/internal/shared"
)

func TestNewJSONOutput_Stdout(t *testing.T) {
	output, err := NewJSONOutput("")
	if err != nil {
		t.Fatalf("NewJSONOutput() error = %v", err)
	}
	defer output.Close()

	if !output.toStdout {
		t.Error("NewJSONOutput(\"\") should output to stdout")
	}
	if output.file != os.Stdout {
		t.Error("NewJSONOutput(\"\") file should be os.Stdout")
	}
}

func TestNewJSONOutput_InvalidPath(t *testing.T) {
	if _, err := NewJSONOutput(filepath.Join(t.TempDir(), "missing", "out.json")); err == nil {
		t.Error("NewJSONOutput() with a missing directory should fail")
	}
}

func TestJSONOutput_Lines(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "eping.json")

	output, err := NewJSONOutput(filename)
	if err != nil {
		t.Fatalf("NewJSONOutput() error = %v", err)
	}

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	output.ProbeResult(shared.ProbeRecord{
		Destination:   "example.com",
		DestinationIP: "192.0.2.1",
		Size:          32,
		Seq:           1,
		TTL:           57,
		RTT:           12.5,
		Outcome:       shared.OutcomeSuccess,
		Timestamp:     ts,
	})
	output.ProbeResult(shared.ProbeRecord{
		Destination: "example.com",
		Size:        32,
		Seq:         2,
		Outcome:     shared.OutcomeTimeout,
		Timestamp:   ts.Add(time.Second),
	})
	output.Summary(shared.SessionStats{Destination: "example.com", Sent: 2, Received: 1, Lost: 1, Loss: 0.5})
	if err := output.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("json.Unmarshal(%s) error = %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	first := lines[0]
	if first["type"] != "probe" || first["outcome"] != "success" || first["rtt_ms"] != 12.5 || first["ttl"] != float64(57) {
		t.Errorf("first line = %v", first)
	}
	if _, ok := lines[1]["ttl"]; ok {
		t.Errorf("timeout line has a ttl: %v", lines[1])
	}
	if lines[1]["outcome"] != "timeout" {
		t.Errorf("second line outcome = %v, want timeout", lines[1]["outcome"])
	}

	summary := lines[2]
	if summary["type"] != "summary" || summary["sent"] != float64(2) || summary["loss"] != 0.5 {
		t.Errorf("summary line = %v", summary)
	}
}
