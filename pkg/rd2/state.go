// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

// VehicleState is the state a node reports on its state address
type VehicleState int

// Vehicle state values, in wire order
const (
	StateSetup VehicleState = iota
	StatePassive
	StateStandby
	StateTest
	StateAbort
	StateVent
	StateOffNominal
	StateHiPressArm
	StateHiPressPressurized
	StateTankPressArm
	StateTankPressPressurized
	StateFireArm
	StateFire

	vehicleStateCount
)

var vehicleStateNames = [vehicleStateCount]string{
	"Setup",
	"Passive",
	"Standby",
	"Test",
	"Abort",
	"Vent",
	"OFF Nominal",
	"Hi Press Arm",
	"Hi Press Pressurized",
	"Tank Press Arm",
	"Tank Press Pressurized",
	"Fire Arm",
	"Fire",
}

func (v VehicleState) String() string {
	if v < 0 || v >= vehicleStateCount {
		return "UNKNOWN"
	}
	return vehicleStateNames[v]
}

// Node identifies one of the three state-reporting nodes. The same names
// select the valve banks.
type Node int

const (
	NodePrimary Node = iota
	NodeEngine
	NodeProp

	nodeCount
)

func (n Node) String() string {
	switch n {
	case NodePrimary:
		return "primary"
	case NodeEngine:
		return "engine"
	case NodeProp:
		return "prop"
	default:
		return "unknown"
	}
}

// Nodes lists every node in display order
var Nodes = [nodeCount]Node{NodePrimary, NodeEngine, NodeProp}

// SensorSample is one decoded sensor reading
type SensorSample struct {
	SensorID uint16
	Raw      uint32
	Time     float64 // seconds, rollover corrected
}

// RolloverClock unwraps the free-running sensor tick counter
type RolloverClock struct {
	Last   float64 // last decoded timestamp, before the offset
	Offset float64 // accumulated wrap periods
}

// Correct feeds one decoded timestamp through the clock and returns it with
// the accumulated rollover offset applied
func (c *RolloverClock) Correct(ts float64) float64 {
	if ts < c.Last {
		c.Offset += RolloverPeriod
	}
	c.Last = ts
	return ts + c.Offset
}

// ValveBank holds one subsystem's valve channels. Index 0 is unused.
type ValveBank [ValveChannels]uint8

// Word is a raw 32-bit controller channel value. The address that produced it
// decides how it reads; see ChannelKind.
type Word uint32

// Int32 reads the word as a signed integer
func (w Word) Int32() int32 { return int32(w) }

// Uint32 reads the word as a raw unsigned integer
func (w Word) Uint32() uint32 { return uint32(w) }

// Float32 reads the word as an IEEE-754 float
func (w Word) Float32() float32 { return Float32frombits(uint32(w)) }

// ControllerBank is indexed by controller id then channel index
type ControllerBank [Controllers][ControllerChannel]Word

// ThrottlePoint is one throttle curve point
type ThrottlePoint struct {
	Time     uint16
	Setpoint uint16
}

// AutosequenceEntry records an autosequence time change against the newest
// sensor timestamp seen so far
type AutosequenceEntry struct {
	SensorTime       float64
	AutosequenceTime float64
}

// ClockSample is one debug clock tick
type ClockSample struct {
	Frame    uint64
	Combined float64
	Seconds  uint64
	Micros   uint64
}

// State is the decoder state store for one session. It is owned by a single
// Decoder and must not be mutated concurrently.
type State struct {
	Sensors          [SensorCount]uint32
	SensorTimestamps [SensorCount]float64
	SensorLedgers    [SensorCount][]SensorSample
	Rollover         RolloverClock

	Valves     [nodeCount]ValveBank
	NodeStates [nodeCount]VehicleState

	Controllers    ControllerBank
	ThrottlePoints []ThrottlePoint

	AutosequenceTime   float64
	AutosequenceDupes  int
	AutosequenceLedger []AutosequenceEntry

	ClockSeconds uint64
	ClockMicros  uint64
	TimeLedger   []ClockSample
}

// NewState creates an empty state store. Every node starts in Setup.
func NewState() *State {
	return &State{}
}

// Valve returns the bank of the given subsystem
func (s *State) Valve(n Node) *ValveBank {
	return &s.Valves[n]
}

// NodeState returns the last reported state of a node
func (s *State) NodeState(n Node) VehicleState {
	return s.NodeStates[n]
}

// Ledger returns the sample ledger of one sensor
func (s *State) Ledger(id uint16) []SensorSample {
	if int(id) >= SensorCount {
		return nil
	}
	return s.SensorLedgers[id]
}

// MaxSensorTimestamp returns the newest stored sensor timestamp, or 0 before
// any sample arrives
func (s *State) MaxSensorTimestamp() float64 {
	newest := s.SensorTimestamps[0]
	for _, ts := range s.SensorTimestamps[1:] {
		if ts > newest {
			newest = ts
		}
	}
	return newest
}

// ActiveSensors returns the ids of every sensor with at least one sample, in
// ascending order
func (s *State) ActiveSensors() []uint16 {
	var ids []uint16
	for id := range s.SensorLedgers {
		if len(s.SensorLedgers[id]) > 0 {
			ids = append(ids, uint16(id))
		}
	}
	return ids
}
