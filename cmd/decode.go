// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/bar"
	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/export"
	"github.com/Thermoquad/standcan/pkg/rd2"
)

var (
	decodeFormat     string
	decodeWorkers    int
	decodeCSVDir     string
	decodeSnapshot   string
	decodePlot       string
	decodePlotNames  []string
	decodeShowFrames bool
	decodeNoProgress bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <capture>...",
	Short: "Decode recorded bus captures",
	Long: `Decode one or more bus captures and print the resulting session state.

Supported captures are candump and candump -L logs, CoolTerm captures and SLCAN
streams, either as plain files (.txt, .log, .slcan) or zip archives holding one
or more of them. The format is detected from the file name unless --format is
given. Every capture (and every archive member) is decoded as its own session.

Capture lines are parsed in parallel and then replayed in order through the
decoder. Optional outputs:
  --csv-dir    per-sensor CSVs plus autosequence, time and throttle ledgers
  --snapshot   CBOR snapshot of the whole decoder state
  --plot       PNG plot of the sensors named with --plot-sensor (default: all)

With several sessions, outputs are suffixed with the capture name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "auto", "Capture format (auto, candump, candump-log, coolterm, slcan)")
	decodeCmd.Flags().IntVar(&decodeWorkers, "workers", 0, "Parser goroutines (0 = GOMAXPROCS)")
	decodeCmd.Flags().StringVar(&decodeCSVDir, "csv-dir", "", "Write CSV ledgers into this directory")
	decodeCmd.Flags().StringVar(&decodeSnapshot, "snapshot", "", "Write a CBOR state snapshot to this file")
	decodeCmd.Flags().StringVar(&decodePlot, "plot", "", "Plot sensor ledgers to this image file")
	decodeCmd.Flags().StringSliceVar(&decodePlotNames, "plot-sensor", nil, "Sensor names to plot (repeatable)")
	decodeCmd.Flags().BoolVar(&decodeShowFrames, "show-frames", false, "Print every decoded frame")
	decodeCmd.Flags().BoolVar(&decodeNoProgress, "no-progress", false, "Disable the replay progress bar")
}

func runDecode(cmd *cobra.Command, args []string) error {
	format := capture.FormatUnknown
	if decodeFormat != "auto" {
		f, err := capture.ParseFormat(decodeFormat)
		if err != nil {
			return err
		}
		format = f
	}

	var captures []capture.Capture
	for _, path := range args {
		cs, err := capture.Open(path, format)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Verbose("%s: %d stream(s)", path, len(cs))
		captures = append(captures, cs...)
	}
	if len(captures) == 0 {
		return errors.New("no capture streams found")
	}

	multi := len(captures) > 1
	for _, c := range captures {
		d, err := decodeCapture(cmd, c)
		if err != nil {
			return err
		}
		if err := writeOutputs(d, c.Name, multi); err != nil {
			return err
		}
	}
	return nil
}

// decodeCapture parses and replays one capture stream into a fresh session
func decodeCapture(cmd *cobra.Command, c capture.Capture) (*rd2.Decoder, error) {
	logger.Info("Decoding %s (%s, %d entries)", c.Name, c.Format, len(c.Entries))

	res, err := capture.ParseAll(cmd.Context(), c.Entries, c.Format, decodeWorkers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}

	var skipped int
	for _, lerr := range res.Errors {
		if errors.Is(lerr, capture.ErrNotFrame) {
			skipped++
			continue
		}
		logger.Verbose("%s: %v", c.Name, lerr)
	}
	if n := len(res.Errors) - skipped; n > 0 {
		logger.Error("%s: %d malformed entries skipped", c.Name, n)
	}

	d := rd2.NewDecoder()
	replay(d, res.Frames)

	fmt.Printf("\n=== %s ===\n", c.Name)
	fmt.Print(rd2.FormatState(d.State()))
	fmt.Println()
	fmt.Print(d.Statistics().String())
	return d, nil
}

func replay(d *rd2.Decoder, frames []rd2.Frame) {
	showBar := !decodeNoProgress && !decodeShowFrames && len(frames) > 0
	var progress *progressbar.ProgressBar
	if showBar {
		progress = bar.New(len(frames), "replay")
	}

	for i, f := range frames {
		route, err := d.Decode(f)
		if err != nil {
			logger.Debug("frame %d %s: %v", i+1, f, err)
		}
		if decodeShowFrames {
			fmt.Print(rd2.FormatFrame(f, route, d.State()))
		}
		if showBar && i%1024 == 0 {
			progress.Add(min(1024, len(frames)-i))
		}
	}
	if showBar {
		fmt.Println()
	}
}

// sessionPath suffixes path with the capture name when several sessions
// share one output flag
func sessionPath(path, name string, multi bool) string {
	if !multi {
		return path
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + stem + ext
}

func writeOutputs(d *rd2.Decoder, name string, multi bool) error {
	s := d.State()

	if decodeCSVDir != "" {
		dir := decodeCSVDir
		if multi {
			dir = filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name)))
		}
		files, err := export.WriteAll(dir, s, sensorTable)
		if err != nil {
			return err
		}
		logger.Info("Wrote %d CSV files to %s", len(files), dir)
	}

	if decodeSnapshot != "" {
		path := sessionPath(decodeSnapshot, name, multi)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		if err := export.WriteSnapshot(f, s, d.Frames()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("Wrote snapshot %s", path)
	}

	if decodePlot != "" {
		ids, err := plotIDs(s)
		if err != nil {
			return err
		}
		path := sessionPath(decodePlot, name, multi)
		err = export.PlotSensors(path, s, sensorTable, ids)
		if errors.Is(err, export.ErrNoData) {
			logger.Info("%s: no sensor samples to plot", name)
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("Wrote plot %s", path)
	}
	return nil
}

// plotIDs resolves --plot-sensor names, or every active sensor without them
func plotIDs(s *rd2.State) ([]uint16, error) {
	if len(decodePlotNames) == 0 {
		return s.ActiveSensors(), nil
	}
	ids := make([]uint16, 0, len(decodePlotNames))
	for _, name := range decodePlotNames {
		sensor, ok := sensorTable.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown sensor %q", name)
		}
		ids = append(ids, sensor.ID)
	}
	return ids, nil
}
