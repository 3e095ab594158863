package output

import (
	"errors"
	"testing"

	"github.com/tkjaer/eping/internal/shared"
)

// mockOutput is a mock implementation of Output for testing
type mockOutput struct {
	probeResultCalls []shared.ProbeRecord
	summaryCalls     []shared.SessionStats
	closeCalls       int
	closeErr         error
}

func (m *mockOutput) ProbeResult(record shared.ProbeRecord) {
	m.probeResultCalls = append(m.probeResultCalls, record)
}

func (m *mockOutput) Summary(stats shared.SessionStats) {
	m.summaryCalls = append(m.summaryCalls, stats)
}

func (m *mockOutput) Close() error {
	m.closeCalls++
	return m.closeErr
}

func TestOutputManager_Register(t *testing.T) {
	om := &OutputManager{}
	mock1 := &mockOutput{}
	mock2 := &mockOutput{}

	om.Register(mock1)
	if len(om.outputs) != 1 {
		t.Errorf("Register() outputs count = %d, want 1", len(om.outputs))
	}

	om.Register(mock2)
	if len(om.outputs) != 2 {
		t.Errorf("Register() outputs count = %d, want 2", len(om.outputs))
	}
}

func TestOutputManager_ProbeResult(t *testing.T) {
	om := &OutputManager{}
	mock1 := &mockOutput{}
	mock2 := &mockOutput{}
	om.Register(mock1)
	om.Register(mock2)

	om.ProbeResult(shared.ProbeRecord{Destination: "192.0.2.1", Seq: 7})

	for i, m := range []*mockOutput{mock1, mock2} {
		if len(m.probeResultCalls) != 1 {
			t.Fatalf("mock%d ProbeResult calls = %d, want 1", i+1, len(m.probeResultCalls))
		}
		if m.probeResultCalls[0].Seq != 7 {
			t.Errorf("mock%d seq = %d, want 7", i+1, m.probeResultCalls[0].Seq)
		}
	}
}

func TestOutputManager_Summary(t *testing.T) {
	om := &OutputManager{}
	mock := &mockOutput{}
	om.Register(mock)

	om.Summary(shared.SessionStats{Destination: "192.0.2.1", Sent: 4})

	if len(mock.summaryCalls) != 1 {
		t.Fatalf("Summary calls = %d, want 1", len(mock.summaryCalls))
	}
	if mock.summaryCalls[0].Sent != 4 {
		t.Errorf("Sent = %d, want 4", mock.summaryCalls[0].Sent)
	}
}

func TestOutputManager_Close(t *testing.T) {
	om := &OutputManager{}
	closeErr := errors.New("disk full")
	mock1 := &mockOutput{closeErr: closeErr}
	mock2 := &mockOutput{}
	om.Register(mock1)
	om.Register(mock2)

	if err := om.Close(); !errors.Is(err, closeErr) {
		t.Errorf("Close() error = %v, want %v", err, closeErr)
	}
	if mock1.closeCalls != 1 || mock2.closeCalls != 1 {
		t.Errorf("Close calls = %d/%d, want 1/1", mock1.closeCalls, mock2.closeCalls)
	}
}

func TestOutputManager_Empty(t *testing.T) {
	om := &OutputManager{}

	om.ProbeResult(shared.ProbeRecord{})
	om.Summary(shared.SessionStats{})
	if err := om.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
