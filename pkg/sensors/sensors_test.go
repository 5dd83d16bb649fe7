// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensors

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	tbl := Default()
	if tbl.Len() != 50 {
		t.Errorf("Len() = %d, want 50", tbl.Len())
	}

	s, ok := tbl.ByName("ChamberPT1")
	if !ok || s.ID != 50 || s.Node != 2 {
		t.Errorf("ChamberPT1 = %+v, %v", s, ok)
	}
	s, ok = tbl.ByID(140)
	if !ok || s.Name != "RenegadePropHP10" {
		t.Errorf("id 140 = %+v, %v", s, ok)
	}
}

func TestConvert(t *testing.T) {
	tbl := Default()

	got := tbl.Convert(72, 10000)
	want := 10000*0.0981 - 630.47
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Convert(72) = %v, want %v", got, want)
	}
	if got := tbl.Convert(300, 1234); got != 1234 {
		t.Errorf("unknown sensor should pass through, got %v", got)
	}
}

func TestName(t *testing.T) {
	tbl := Default()
	if got := tbl.Name(66); got != "LoxTankPT1" {
		t.Errorf("Name(66) = %q", got)
	}
	if got := tbl.Name(301); got != "sensor_301" {
		t.Errorf("Name(301) = %q", got)
	}
}

func TestNewTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		list []Sensor
		want error
	}{
		{"duplicate name", []Sensor{{Name: "a", ID: 1}, {Name: "a", ID: 2}}, ErrDuplicate},
		{"duplicate id", []Sensor{{Name: "a", ID: 1}, {Name: "b", ID: 1}}, ErrDuplicate},
		{"id range", []Sensor{{Name: "a", ID: 1028}}, ErrRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(tt.list); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
sensors:
  - name: ChamberPT1
    id: 50
    node: 2
    slope: 0.02
    offset: -100
    unit: psi
  - name: ManifoldTC
    id: 200
    node: 4
    slope: 0.5
    unit: K
`)
	tbl, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 51 {
		t.Errorf("Len() = %d, want 51", tbl.Len())
	}

	s, _ := tbl.ByName("ChamberPT1")
	want := Sensor{Name: "ChamberPT1", ID: 50, Node: 2, Slope: 0.02, Offset: -100, Unit: "psi"}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("override (-want +got):\n%s", diff)
	}
	if got := tbl.Convert(200, 10); got != 5 {
		t.Errorf("Convert(200) = %v, want 5", got)
	}
}

func TestParse_Replace(t *testing.T) {
	tbl, err := Parse([]byte("replace: true\nsensors:\n  - {name: only, id: 7, slope: 1}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("sensors: [")); err == nil {
		t.Error("expected YAML error")
	}
	// Moving a default to a taken id is a conflict
	if _, err := Parse([]byte("sensors:\n  - {name: ChamberPT1, id: 52}\n")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestLoadMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sensors.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range Default().All() {
		got, ok := tbl.ByName(s.Name)
		if !ok {
			t.Errorf("%s missing after round trip", s.Name)
			continue
		}
		if diff := cmp.Diff(s, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", s.Name, diff)
		}
	}
}
