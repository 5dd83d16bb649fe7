// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sensors holds the test stand sensor calibration table.
package sensors

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/standcan/pkg/rd2"
)

var (
	ErrDuplicate = errors.New("sensors: duplicate sensor")
	ErrRange     = errors.New("sensors: sensor id out of range")
)

// Sensor is one calibrated sensor channel. A raw sample converts linearly:
// value = raw*Slope + Offset.
type Sensor struct {
	Name   string  `yaml:"name"`
	ID     uint16  `yaml:"id"`
	Node   int     `yaml:"node"`
	Slope  float64 `yaml:"slope"`
	Offset float64 `yaml:"offset"`
	Unit   string  `yaml:"unit,omitempty"`
}

// Convert applies the calibration to a raw sample
func (s Sensor) Convert(raw uint32) float64 {
	return float64(raw)*s.Slope + s.Offset
}

// Table indexes sensors by name and id
type Table struct {
	sensors []Sensor
	byName  map[string]int
	byID    map[uint16]int
}

// NewTable builds a table. Names and ids must be unique and ids must fit
// the decoder's sensor space.
func NewTable(list []Sensor) (*Table, error) {
	t := &Table{
		sensors: make([]Sensor, 0, len(list)),
		byName:  make(map[string]int, len(list)),
		byID:    make(map[uint16]int, len(list)),
	}
	for _, s := range list {
		if int(s.ID) >= rd2.SensorCount {
			return nil, fmt.Errorf("%w: %s id %d", ErrRange, s.Name, s.ID)
		}
		if _, ok := t.byName[s.Name]; ok {
			return nil, fmt.Errorf("%w: name %s", ErrDuplicate, s.Name)
		}
		if prev, ok := t.byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: id %d used by %s and %s", ErrDuplicate, s.ID, t.sensors[prev].Name, s.Name)
		}
		t.byName[s.Name] = len(t.sensors)
		t.byID[s.ID] = len(t.sensors)
		t.sensors = append(t.sensors, s)
	}
	return t, nil
}

// All returns every sensor in table order
func (t *Table) All() []Sensor {
	out := make([]Sensor, len(t.sensors))
	copy(out, t.sensors)
	return out
}

// Len returns the number of sensors
func (t *Table) Len() int {
	return len(t.sensors)
}

// ByName looks a sensor up by name
func (t *Table) ByName(name string) (Sensor, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Sensor{}, false
	}
	return t.sensors[i], true
}

// ByID looks a sensor up by its bus sub-address
func (t *Table) ByID(id uint16) (Sensor, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Sensor{}, false
	}
	return t.sensors[i], true
}

// Name returns the sensor name for id, or a generic label for sensors the
// table does not know
func (t *Table) Name(id uint16) string {
	if s, ok := t.ByID(id); ok {
		return s.Name
	}
	return fmt.Sprintf("sensor_%d", id)
}

// Convert calibrates a raw sample. Unknown sensors pass through unscaled.
func (t *Table) Convert(id uint16, raw uint32) float64 {
	if s, ok := t.ByID(id); ok {
		return s.Convert(raw)
	}
	return float64(raw)
}

// file is the YAML calibration file layout
type file struct {
	// Replace drops the compiled-in defaults instead of overriding them
	Replace bool     `yaml:"replace,omitempty"`
	Sensors []Sensor `yaml:"sensors"`
}

// Load reads a YAML calibration file and merges it over the defaults
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sensor file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML calibration data. Entries replace default sensors with
// the same name; new names are added.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sensor YAML: %w", err)
	}
	if f.Replace {
		return NewTable(f.Sensors)
	}
	return NewTable(merge(Defaults(), f.Sensors))
}

func merge(base, overrides []Sensor) []Sensor {
	index := make(map[string]int, len(base))
	out := make([]Sensor, len(base))
	copy(out, base)
	for i, s := range out {
		index[s.Name] = i
	}
	for _, s := range overrides {
		if i, ok := index[s.Name]; ok {
			out[i] = s
			continue
		}
		index[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}

// Marshal renders a table as a YAML calibration file, sorted by id
func Marshal(t *Table) ([]byte, error) {
	list := t.All()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return yaml.Marshal(file{Replace: true, Sensors: list})
}
