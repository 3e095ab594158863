package output

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tkjaer/eping/internal/shared"
)

// JSONOutput writes one JSON object per line: each probe as it completes,
// followed by the session statistics.
type JSONOutput struct {
	mu       sync.Mutex
	file     io.WriteCloser
	enc      *json.Encoder
	toStdout bool
}

func NewJSONOutput(filename string) (*JSONOutput, error) {
	if filename == "" {
		// Output to stdout
		return &JSONOutput{
			file:     os.Stdout,
			enc:      json.NewEncoder(os.Stdout),
			toStdout: true,
		}, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &JSONOutput{
		file:     f,
		enc:      json.NewEncoder(f),
		toStdout: false,
	}, nil
}

type jsonProbe struct {
	Type string `json:"type"`
	shared.ProbeRecord
}

type jsonSummary struct {
	Type string `json:"type"`
	shared.SessionStats
}

func (j *JSONOutput) ProbeResult(record shared.ProbeRecord) {
	j.encode(jsonProbe{Type: "probe", ProbeRecord: record})
}

func (j *JSONOutput) Summary(stats shared.SessionStats) {
	j.encode(jsonSummary{Type: "summary", SessionStats: stats})
}

func (j *JSONOutput) encode(v any) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.enc.Encode(v); err != nil {
		slog.Error("Error writing JSON output", "error", err)
	}
}

func (j *JSONOutput) Close() error {
	if j.toStdout {
		return nil
	}
	return j.file.Close()
}
