// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package export

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/standcan/pkg/rd2"
)

// SnapshotVersion is bumped whenever the snapshot layout changes
const SnapshotVersion = 1

// Snapshot is the serialisable form of a decoder state. Maps use integer
// keys to keep the encoding compact.
type Snapshot struct {
	Version      int                      `cbor:"0,keyasint"`
	Frames       uint64                   `cbor:"1,keyasint"`
	Sensors      map[uint16][]SensorPoint `cbor:"2,keyasint"`
	Valves       map[string][]uint8       `cbor:"3,keyasint"`
	NodeStates   map[string]int           `cbor:"4,keyasint"`
	Controllers  map[int]map[int]uint32   `cbor:"5,keyasint"`
	Throttle     []rd2.ThrottlePoint      `cbor:"6,keyasint"`
	Autosequence []rd2.AutosequenceEntry  `cbor:"7,keyasint"`
	Clock        []rd2.ClockSample        `cbor:"8,keyasint"`
}

// SensorPoint is one sensor ledger entry
type SensorPoint struct {
	Time float64 `cbor:"0,keyasint"`
	Raw  uint32  `cbor:"1,keyasint"`
}

// NewSnapshot captures a state. Only non-zero controller words and active
// sensors are included.
func NewSnapshot(s *rd2.State, frames uint64) *Snapshot {
	snap := &Snapshot{
		Version:      SnapshotVersion,
		Frames:       frames,
		Sensors:      make(map[uint16][]SensorPoint),
		Valves:       make(map[string][]uint8),
		NodeStates:   make(map[string]int),
		Controllers:  make(map[int]map[int]uint32),
		Throttle:     s.ThrottlePoints,
		Autosequence: s.AutosequenceLedger,
		Clock:        s.TimeLedger,
	}

	for _, id := range s.ActiveSensors() {
		ledger := s.Ledger(id)
		points := make([]SensorPoint, len(ledger))
		for i, p := range ledger {
			points[i] = SensorPoint{Time: p.Time, Raw: p.Raw}
		}
		snap.Sensors[id] = points
	}

	for _, n := range rd2.Nodes {
		bank := s.Valve(n)
		snap.Valves[n.String()] = append([]uint8(nil), bank[:]...)
		snap.NodeStates[n.String()] = int(s.NodeState(n))
	}

	for id := range s.Controllers {
		for ch, w := range s.Controllers[id] {
			if w == 0 {
				continue
			}
			if snap.Controllers[id] == nil {
				snap.Controllers[id] = make(map[int]uint32)
			}
			snap.Controllers[id][ch] = w.Uint32()
		}
	}
	return snap
}

// WriteSnapshot encodes a state snapshot as CBOR
func WriteSnapshot(w io.Writer, s *rd2.State, frames uint64) error {
	return writeCBOR(w, NewSnapshot(s, frames))
}

func writeCBOR(w io.Writer, snap *Snapshot) error {
	data, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadSnapshot decodes a CBOR snapshot
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := cbor.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}
