// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rd2 decodes the test stand bus protocol.
//
// Every frame carries an 11-bit logical address in the low bits of its 32-bit
// identifier and up to 8 payload bytes. The address selects the payload layout:
// multiplexed sensor samples, valve bank snapshots, node state reports,
// controller telemetry or a debug clock tick. A Decoder classifies each frame,
// extracts the typed values and keeps the running State of one session.
//
// Frames must be fed in transmission order from a single goroutine. The
// rollover accumulator, the autosequence duplicate counter and every ledger
// depend on arrival order.
package rd2

// Frame limits
const (
	MaxPayloadSize = 8
	AddressMask    = 0x7FF
)

// Clock addresses. 49420 (0xC10C) cannot appear in an 11-bit field but is kept
// in the route table alongside its short alias.
const (
	AddrClock      = 49420
	AddrClockShort = 268
)

// Valve bank addresses
const (
	AddrEngineValves  = 546
	AddrPropValves    = 547
	AddrPrimaryValves = 552
)

// Node state report addresses
const (
	AddrEngineNode  = 514
	AddrPropNode    = 515
	AddrPrimaryNode = 520
)

// Controller addresses
const (
	AddrControllerBase = 1000
	AddrAutosequence   = 1100
	AddrThrottleInt1   = 1502
	AddrThrottleInt2   = 1504
	AddrThrottlePoints = 1506
)

// Exclusive address ranges
const (
	nodeRangeLow    = 510
	nodeRangeHigh   = 530
	sensorRangeLow  = 50
	sensorRangeHigh = 427
)

// Store dimensions
const (
	SensorCount       = 1028
	ValveChannels     = 64
	Controllers       = 12
	ControllerChannel = 50
)

// Sensor timestamp constants. The tick counter advances 2^18 ticks per 10
// time units and wraps every RolloverPeriod.
const (
	tickScale       = 10.0 / (1 << 18)
	RolloverPeriod  = 10.0
	sensorTimeScale = 8000.0
	sensorAddrBits  = 11
)

// Autosequence timer resolution (microseconds)
const autosequenceScale = 1_000_000.0
