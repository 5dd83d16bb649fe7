// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package export writes decoded session state to CSV files, CBOR snapshots
// and plots.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Thermoquad/standcan/pkg/rd2"
	"github.com/Thermoquad/standcan/pkg/sensors"
)

// Output file names for the session ledgers
const (
	AutosequenceFile = "autosequence.csv"
	TimeFile         = "time.csv"
	ThrottleFile     = "throttle.csv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeRows(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteSensorCSV writes one sensor ledger as calibrated values. The first
// column is the corrected sample time in seconds.
func WriteSensorCSV(w io.Writer, name string, ledger []rd2.SensorSample, convert func(raw uint32) float64) error {
	rows := make([][]string, 0, len(ledger))
	for _, s := range ledger {
		rows = append(rows, []string{
			formatFloat(s.Time),
			formatFloat(convert(s.Raw)),
			strconv.FormatUint(uint64(s.Raw), 10),
		})
	}
	return writeRows(w, []string{"Time", name, "Raw"}, rows)
}

// WriteAutosequenceCSV writes the autosequence ledger
func WriteAutosequenceCSV(w io.Writer, ledger []rd2.AutosequenceEntry) error {
	rows := make([][]string, 0, len(ledger))
	for _, e := range ledger {
		rows = append(rows, []string{formatFloat(e.SensorTime), formatFloat(e.AutosequenceTime)})
	}
	return writeRows(w, []string{"SensorTime", "AutosequenceTime"}, rows)
}

// WriteTimeCSV writes the debug clock ledger
func WriteTimeCSV(w io.Writer, ledger []rd2.ClockSample) error {
	rows := make([][]string, 0, len(ledger))
	for _, c := range ledger {
		rows = append(rows, []string{
			strconv.FormatUint(c.Frame, 10),
			formatFloat(c.Combined),
			strconv.FormatUint(c.Seconds, 10),
			strconv.FormatUint(c.Micros, 10),
		})
	}
	return writeRows(w, []string{"Frame", "Time", "Seconds", "Micros"}, rows)
}

// WriteThrottleCSV writes the current throttle curve
func WriteThrottleCSV(w io.Writer, points []rd2.ThrottlePoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(p.Time), 10),
			strconv.FormatUint(uint64(p.Setpoint), 10),
		})
	}
	return writeRows(w, []string{"Time", "Setpoint"}, rows)
}

// WriteAll writes every active sensor and the session ledgers into dir and
// returns the files it created
func WriteAll(dir string, s *rd2.State, table *sensors.Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var files []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	for _, id := range s.ActiveSensors() {
		name := table.Name(id)
		convert := func(raw uint32) float64 { return table.Convert(id, raw) }
		err := write(name+".csv", func(w io.Writer) error {
			return WriteSensorCSV(w, name, s.Ledger(id), convert)
		})
		if err != nil {
			return files, err
		}
	}

	if err := write(AutosequenceFile, func(w io.Writer) error {
		return WriteAutosequenceCSV(w, s.AutosequenceLedger)
	}); err != nil {
		return files, err
	}
	if err := write(TimeFile, func(w io.Writer) error {
		return WriteTimeCSV(w, s.TimeLedger)
	}); err != nil {
		return files, err
	}
	if err := write(ThrottleFile, func(w io.Writer) error {
		return WriteThrottleCSV(w, s.ThrottlePoints)
	}); err != nil {
		return files, err
	}
	return files, nil
}
