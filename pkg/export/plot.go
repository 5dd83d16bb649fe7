// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package export

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/Thermoquad/standcan/pkg/rd2"
	"github.com/Thermoquad/standcan/pkg/sensors"
)

var ErrNoData = errors.New("export: no samples to plot")

// SensorSeries returns a sensor ledger as calibrated points in milliseconds
// relative to t0
func SensorSeries(ledger []rd2.SensorSample, t0 float64, convert func(raw uint32) float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(ledger))
	for _, s := range ledger {
		pts = append(pts, plotter.XY{X: (s.Time - t0) * 1000, Y: convert(s.Raw)})
	}
	return pts
}

// FirstSampleTime returns the earliest timestamp across the given sensors
func FirstSampleTime(s *rd2.State, ids []uint16) (float64, bool) {
	var (
		t0    float64
		found bool
	)
	for _, id := range ids {
		ledger := s.Ledger(id)
		if len(ledger) == 0 {
			continue
		}
		if !found || ledger[0].Time < t0 {
			t0 = ledger[0].Time
			found = true
		}
	}
	return t0, found
}

// PlotSensors renders the given sensors to a PNG (or any extension gonum
// supports) at path. Sensors without samples are skipped.
func PlotSensors(path string, s *rd2.State, table *sensors.Table, ids []uint16) error {
	t0, ok := FirstSampleTime(s, ids)
	if !ok {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Sensors"
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Value"

	for i, id := range ids {
		ledger := s.Ledger(id)
		if len(ledger) == 0 {
			continue
		}
		sid := id
		pts := SensorSeries(ledger, t0, func(raw uint32) float64 { return table.Convert(sid, raw) })

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to create line for %s: %w", table.Name(id), err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(table.Name(id), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
