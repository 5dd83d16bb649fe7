// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"go.bug.st/serial"

	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/logging"
	"github.com/Thermoquad/standcan/pkg/rd2"
	"github.com/Thermoquad/standcan/pkg/sensors"
)

// ============================================================
// Connection Tests
// ============================================================

func TestSLCANBitrateCommand(t *testing.T) {
	tests := []struct {
		bitrate int
		want    string
	}{
		{10000, "S0"},
		{125000, "S4"},
		{500000, "S6"},
		{1000000, "S8"},
	}
	for _, tt := range tests {
		got, err := slcanBitrateCommand(tt.bitrate)
		if err != nil || got != tt.want {
			t.Errorf("slcanBitrateCommand(%d) = %q, %v; want %q", tt.bitrate, got, err, tt.want)
		}
	}

	if _, err := slcanBitrateCommand(33333); err == nil {
		t.Error("expected error for unsupported bitrate")
	}
}

func TestOpenSLCAN(t *testing.T) {
	var buf bytes.Buffer
	if err := openSLCAN(&buf, 250000); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "C\rS5\rL\r" {
		t.Errorf("got %q", got)
	}

	buf.Reset()
	if err := openSLCAN(&buf, 1); err == nil {
		t.Error("expected error for unsupported bitrate")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

// stubPort records writes and can fail them. Methods it does not override
// panic through the nil embedded interface.
type stubPort struct {
	serial.Port
	written  bytes.Buffer
	writeErr error
	closed   bool
}

func (p *stubPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *stubPort) Close() error {
	p.closed = true
	return nil
}

func TestSerialConnection_Close(t *testing.T) {
	prev := logger
	t.Cleanup(func() { logger = prev })
	l, err := logging.NewLogger(logging.LogLevelSilent, "")
	if err != nil {
		t.Fatal(err)
	}
	logger = l

	port := &stubPort{}
	if err := (&SerialConnection{port: port}).Close(); err != nil {
		t.Fatal(err)
	}
	if port.written.String() != "C\r" || !port.closed {
		t.Errorf("wrote %q, closed %v", port.written.String(), port.closed)
	}

	// A failed close command still releases the port
	port = &stubPort{writeErr: errors.New("unplugged")}
	if err := (&SerialConnection{port: port}).Close(); err != nil {
		t.Fatal(err)
	}
	if !port.closed {
		t.Error("port should be closed after a failed write")
	}
}

func TestCountFrameLines(t *testing.T) {
	if n := countFrameLines([]byte("t1230\rT000001230\rxt\r")); n != 2 {
		t.Errorf("got %d frame lines, want 2", n)
	}
}

// ============================================================
// Decode Command Tests
// ============================================================

func TestSessionPath(t *testing.T) {
	if got := sessionPath("out/snap.cbor", "run1.txt", false); got != "out/snap.cbor" {
		t.Errorf("single session got %q", got)
	}
	if got := sessionPath("out/snap.cbor", "run1.txt", true); got != "out/snap_run1.cbor" {
		t.Errorf("multi session got %q", got)
	}
}

func TestPlotIDs(t *testing.T) {
	prevNames, prevTable := decodePlotNames, sensorTable
	t.Cleanup(func() { decodePlotNames, sensorTable = prevNames, prevTable })
	sensorTable = sensors.Default()

	s := rd2.NewState()
	s.SensorLedgers[60] = []rd2.SensorSample{{SensorID: 60}}

	decodePlotNames = nil
	ids, err := plotIDs(s)
	if err != nil || !cmp.Equal(ids, []uint16{60}) {
		t.Errorf("active sensors got %v, %v", ids, err)
	}

	decodePlotNames = []string{"ChamberPT2"}
	ids, err = plotIDs(s)
	if err != nil || !cmp.Equal(ids, []uint16{52}) {
		t.Errorf("named sensors got %v, %v", ids, err)
	}

	decodePlotNames = []string{"NoSuchSensor"}
	if _, err := plotIDs(s); err == nil {
		t.Error("expected error for unknown sensor")
	}
}

// ============================================================
// Monitor Tests
// ============================================================

func TestWatcher_Events(t *testing.T) {
	w := newWatcher(sensors.Default(), false)

	events := w.handle(rd2.NewFrame(rd2.AddrPrimaryNode, []byte{byte(rd2.StateFire)}))
	want := []event{{message: "Node primary: Setup -> Fire"}}
	if diff := cmp.Diff(want, events, cmp.AllowUnexported(event{})); diff != "" {
		t.Errorf("node events (-want +got):\n%s", diff)
	}

	events = w.handle(rd2.NewFrame(rd2.AddrAutosequence, []byte{0x1E, 0x84, 0x80}))
	want = []event{{message: "Autosequence T+2.000 s at sensor time 0.000 s"}}
	if diff := cmp.Diff(want, events, cmp.AllowUnexported(event{})); diff != "" {
		t.Errorf("autosequence events (-want +got):\n%s", diff)
	}

	events = w.handle(rd2.NewFrame(rd2.AddrThrottlePoints, []byte{0, 0, 0, 10, 0, 1, 0, 11}))
	want = []event{{message: "Throttle curve: 2 points"}}
	if diff := cmp.Diff(want, events, cmp.AllowUnexported(event{})); diff != "" {
		t.Errorf("throttle events (-want +got):\n%s", diff)
	}

	// Same state again is not an event
	if events := w.handle(rd2.NewFrame(rd2.AddrPrimaryNode, []byte{byte(rd2.StateFire)})); len(events) != 0 {
		t.Errorf("unexpected events %v", events)
	}

	events = w.handle(rd2.NewFrame(rd2.AddrThrottlePoints, []byte{0, 0}))
	if len(events) != 1 || !events[0].isError {
		t.Errorf("expected one error event, got %v", events)
	}
}

func TestWatcher_ShowAll(t *testing.T) {
	w := newWatcher(sensors.Default(), true)
	events := w.handle(rd2.NewFrame(5, []byte{1}))
	if len(events) != 1 || !strings.HasPrefix(events[0].message, "NONE ") {
		t.Errorf("expected frame event, got %v", events)
	}
}

func TestReadFrames(t *testing.T) {
	input := "t20C80102030405060708\rZZ\rt2\rt208100\r"
	var msgs []frameMsg
	readFrames(strings.NewReader(input), func(m frameMsg) { msgs = append(msgs, m) })

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[0].err != nil || msgs[0].frame.Address() != 524 {
		t.Errorf("first message %+v", msgs[0])
	}
	var lerr *capture.LineError
	if !errors.As(msgs[1].err, &lerr) {
		t.Errorf("second message should be a line error, got %v", msgs[1].err)
	}
	if msgs[2].err != nil || msgs[2].frame.Address() != rd2.AddrPrimaryNode {
		t.Errorf("third message %+v", msgs[2])
	}
	if !errors.Is(msgs[3].err, io.EOF) {
		t.Errorf("last message should carry io.EOF, got %v", msgs[3].err)
	}
}

func TestModel_Update(t *testing.T) {
	m := initialModel("test", newWatcher(sensors.Default(), false))

	updated, _ := m.Update(frameMsg{frame: rd2.NewFrame(1<<18<<11|52, []byte{0x27, 0x10})})
	m = updated.(model)
	if !m.synchronized {
		t.Error("model should be synchronized after the first frame")
	}

	updated, _ = m.Update(frameMsg{frame: rd2.NewFrame(rd2.AddrEngineNode, []byte{byte(rd2.StateVent)})})
	m = updated.(model)

	var messages []string
	for _, e := range m.eventLog {
		messages = append(messages, e.message)
	}
	want := []string{"First frame received", "Node engine: Setup -> Vent"}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Errorf("event log (-want +got):\n%s", diff)
	}

	updated, cmd := m.Update(tickMsg(time.Now()))
	m = updated.(model)
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	rows := m.sensors.Rows()
	if len(rows) != 1 || rows[0][0] != "ChamberPT2" || rows[0][4] != "10000" {
		t.Errorf("sensor rows %v", rows)
	}

	updated, _ = m.Update(frameMsg{err: io.EOF})
	m = updated.(model)
	if !errors.Is(m.linkErr, io.EOF) {
		t.Errorf("link error %v", m.linkErr)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = updated.(model)
	if m.watcher.decoder.Frames() != 0 || len(m.sensors.Rows()) != 0 {
		t.Error("reset should start a new session")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !updated.(model).quitting {
		t.Error("q should quit")
	}
}

func TestModel_LogIsBounded(t *testing.T) {
	m := initialModel("test", newWatcher(sensors.Default(), false))
	for i := 0; i < m.maxLogEntries+10; i++ {
		m.addLogEntry("event", false)
	}
	if len(m.eventLog) != m.maxLogEntries {
		t.Errorf("log has %d entries, want %d", len(m.eventLog), m.maxLogEntries)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{500 * time.Millisecond, "0 seconds"},
		{2 * time.Minute, "2 minutes"},
		{61 * time.Second, "1 minute and 1 second"},
		{90061 * time.Second, "1 day, 1 hour, 1 minute, and 1 second"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// ============================================================
// Discovery Tests
// ============================================================

func TestCensus(t *testing.T) {
	c := newCensus()
	c.add(rd2.NewFrame(rd2.AddrEngineNode, []byte{byte(rd2.StateStandby)}))
	c.add(rd2.NewFrame(rd2.AddrEngineNode, []byte{byte(rd2.StateTest)}))
	c.add(rd2.NewFrame(1230, []byte{0x3F, 0x80, 0, 0}))
	c.add(rd2.NewFrame(1<<18<<11|52, []byte{0x27, 0x10}))
	c.add(rd2.NewFrame(7, []byte{1}))
	c.add(rd2.NewFrame(3, nil))

	if !c.nodes[rd2.NodeEngine] || c.nodes[rd2.NodePrimary] || len(c.nodes) != 1 {
		t.Errorf("nodes %v", c.nodes)
	}
	if c.addresses[rd2.AddrEngineNode] != 2 {
		t.Errorf("engine node frames %d", c.addresses[rd2.AddrEngineNode])
	}
	if !c.controllers[2] || len(c.controllers) != 1 {
		t.Errorf("controllers %v", c.controllers)
	}
	if diff := cmp.Diff([]uint16{3, 7}, c.unrouted()); diff != "" {
		t.Errorf("unrouted (-want +got):\n%s", diff)
	}
	if got := c.decoder.State().NodeState(rd2.NodeEngine); got != rd2.StateTest {
		t.Errorf("engine state %s", got)
	}
}

func TestVersionReply(t *testing.T) {
	hw, sw, ok := versionReply("V1013\a")
	if !ok || hw != "10" || sw != "13" {
		t.Errorf("got %q %q %v", hw, sw, ok)
	}
	for _, line := range []string{"", "V10", "t1230", "VZZZZ", "V10130"} {
		if _, _, ok := versionReply(line); ok {
			t.Errorf("%q should not be a version reply", line)
		}
	}
}

func TestPrintSensors(t *testing.T) {
	var buf bytes.Buffer
	printSensors(&buf, sensors.Default())
	out := buf.String()
	if !strings.Contains(out, "ChamberPT2") || !strings.HasSuffix(out, "50 sensors\n") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}
