// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/export"
	"github.com/Thermoquad/standcan/pkg/rd2"
	"github.com/Thermoquad/standcan/pkg/sensors"
)

var (
	showAll         bool
	statsInterval   int
	useTUI          bool
	monitorSnapshot string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the live bus with session state and statistics",
	Long: `Decode the live bus and track the session state with statistics.

The monitor follows:
  - Node state transitions of the primary, engine and prop nodes
  - Autosequence time and throttle curve updates
  - Decode errors (short payloads, out of range channels, rejected states)
  - Statistics and trends (frame rate, error rate, per-route counts)

By default only events and errors are displayed. Use --show-all to display
every frame too. With --snapshot the session is saved as CBOR on exit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just events)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().StringVar(&monitorSnapshot, "snapshot", "", "Write a CBOR state snapshot on exit")
}

// event is one line of monitor output
type event struct {
	message string
	isError bool
}

// watcher decodes live frames and reports the changes worth surfacing
type watcher struct {
	decoder  *rd2.Decoder
	table    *sensors.Table
	showAll  bool
	nodes    [len(rd2.Nodes)]rd2.VehicleState
	autoseq  int
	throttle int
}

func newWatcher(table *sensors.Table, showAll bool) *watcher {
	return &watcher{
		decoder: rd2.NewDecoder(),
		table:   table,
		showAll: showAll,
	}
}

// reset starts a new session
func (w *watcher) reset() {
	w.decoder.Reset()
	w.nodes = [len(rd2.Nodes)]rd2.VehicleState{}
	w.autoseq = 0
	w.throttle = 0
}

// handle decodes one frame and returns the events it caused
func (w *watcher) handle(f rd2.Frame) []event {
	var events []event

	route, err := w.decoder.Decode(f)
	if err != nil {
		events = append(events, event{message: fmt.Sprintf("%s @%d: %v", route, f.Address(), err), isError: true})
	}
	if w.showAll {
		events = append(events, event{message: fmt.Sprintf("%s %s", route, f)})
	}

	s := w.decoder.State()
	for i, n := range rd2.Nodes {
		if st := s.NodeState(n); st != w.nodes[i] {
			events = append(events, event{message: fmt.Sprintf("Node %s: %s -> %s", n, w.nodes[i], st)})
			w.nodes[i] = st
		}
	}

	if len(s.AutosequenceLedger) > w.autoseq {
		for _, e := range s.AutosequenceLedger[w.autoseq:] {
			events = append(events, event{message: fmt.Sprintf("Autosequence T%+.3f s at sensor time %.3f s", e.AutosequenceTime, e.SensorTime)})
		}
		w.autoseq = len(s.AutosequenceLedger)
	}

	if len(s.ThrottlePoints) != w.throttle {
		events = append(events, event{message: fmt.Sprintf("Throttle curve: %d points", len(s.ThrottlePoints))})
		w.throttle = len(s.ThrottlePoints)
	}
	return events
}

// frameMsg carries one frame read from the link, or the read error
type frameMsg struct {
	frame rd2.Frame
	err   error
}

// readFrames reads the link until it closes and hands every result to send.
// The last message carries the error that ended the stream.
func readFrames(conn io.Reader, send func(frameMsg)) {
	reader := capture.NewReader(conn, capture.FormatSLCAN)
	for {
		f, err := reader.Next()
		var lerr *capture.LineError
		if err != nil && !errors.As(err, &lerr) {
			send(frameMsg{err: err})
			return
		}
		send(frameMsg{frame: f, err: err})
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var w *watcher
	if useTUI {
		w, err = runTUIMode(conn, connInfo)
	} else {
		w, err = runTextMode(cmd, conn, connInfo)
	}
	if err != nil {
		return err
	}
	return saveMonitorSnapshot(w)
}

func saveMonitorSnapshot(w *watcher) error {
	if monitorSnapshot == "" || w == nil {
		return nil
	}
	f, err := os.Create(monitorSnapshot)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := export.WriteSnapshot(f, w.decoder.State(), w.decoder.Frames()); err != nil {
		f.Close()
		return err
	}
	logger.Info("Wrote snapshot %s", monitorSnapshot)
	return f.Close()
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(conn io.ReadCloser, connInfo string) (*watcher, error) {
	m := initialModel(connInfo, newWatcher(sensorTable, showAll))
	p := tea.NewProgram(m)

	go readFrames(conn, func(msg frameMsg) { p.Send(msg) })

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	return final.(model).watcher, nil
}

var (
	errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	eventLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
)

func printEvent(e event) {
	timestamp := time.Now().Format("15:04:05.000")
	if e.isError {
		fmt.Printf("[%s] %s %s\n", timestamp, errorLabel("ERROR:"), e.message)
		return
	}
	fmt.Printf("[%s] %s %s\n", timestamp, eventLabel("EVENT:"), e.message)
}

// runTextMode runs the monitor in text mode
func runTextMode(cmd *cobra.Command, conn io.ReadCloser, connInfo string) (*watcher, error) {
	fmt.Printf("standcan - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Events only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	w := newWatcher(sensorTable, showAll)

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	frames := make(chan frameMsg, 64)
	go readFrames(conn, func(msg frameMsg) { frames <- msg })

	synchronized := false
	for {
		select {
		case <-cmd.Context().Done():
			return w, nil

		case msg := <-frames:
			var lerr *capture.LineError
			switch {
			case errors.As(msg.err, &lerr):
				// Partial lines before the first frame are expected
				if synchronized {
					printEvent(event{message: lerr.Error(), isError: true})
				}
				continue
			case msg.err != nil:
				if errors.Is(msg.err, io.EOF) || errors.Is(msg.err, ErrConnectionClosed) {
					logger.Info("Connection closed")
					return w, nil
				}
				return w, fmt.Errorf("read: %w", msg.err)
			}

			if !synchronized {
				synchronized = true
				fmt.Printf("[SYNC] First frame received\n\n")
			}
			for _, e := range w.handle(msg.frame) {
				printEvent(e)
			}

		case <-statsTicker.C:
			stats := w.decoder.Statistics()
			stats.CalculateRates()
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
