// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"fmt"
	"math"
)

// Kind is the interpretation of a controller bank word
type Kind int

const (
	KindFloat32 Kind = iota
	KindInt32
	KindUint32
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	default:
		return "float32"
	}
}

// Raw channels carry unsigned counters in an 8-byte frame
const (
	rawChannelLow  = 14
	rawChannelHigh = 15
)

// ChannelKind returns how the words written by a frame on addr with an
// n-byte payload must be read back from the controller bank.
func ChannelKind(addr uint16, n int) Kind {
	if n != MaxPayloadSize {
		return KindFloat32
	}
	if addr == AddrThrottleInt1 || addr == AddrThrottleInt2 {
		return KindInt32
	}
	if ch := ControllerChannelIndex(addr); ch == rawChannelLow || ch == rawChannelHigh {
		return KindUint32
	}
	return KindFloat32
}

// ControllerID returns the controller an address belongs to. The address is
// rounded to the nearest hundred, ties to even.
func ControllerID(addr uint16) int {
	hundreds := math.RoundToEven(float64(addr) / 100)
	return (int(hundreds)*100 - AddrControllerBase) / 100
}

// ControllerChannelIndex returns the channel an address writes first
func ControllerChannelIndex(addr uint16) int {
	return int(addr % 100)
}

func decodeController(s *State, f Frame) error {
	switch f.Address() {
	case AddrAutosequence:
		return decodeAutosequence(s, f)
	case AddrThrottlePoints:
		return decodeThrottlePoints(s, f)
	}
	if len(f.Data) == 0 {
		return nil
	}
	return decodeChannels(s, f)
}

// decodeAutosequence tracks the autosequence timer. Repeats of the current
// value are counted, changes go to the ledger. The timer starts at zero, so
// a leading zero frame counts as a repeat.
func decodeAutosequence(s *State, f Frame) error {
	if len(f.Data) == 0 {
		return shortPayload(RouteController, f.Address(), 1, 0)
	}

	t := float64(beInt(f.Data)) / autosequenceScale
	if t == s.AutosequenceTime {
		s.AutosequenceDupes++
		return nil
	}

	s.AutosequenceDupes = 0
	s.AutosequenceTime = t
	s.AutosequenceLedger = append(s.AutosequenceLedger, AutosequenceEntry{
		SensorTime:       s.MaxSensorTimestamp(),
		AutosequenceTime: t,
	})
	return nil
}

func decodeThrottlePoints(s *State, f Frame) error {
	if len(f.Data) < 4 {
		return shortPayload(RouteController, f.Address(), 4, len(f.Data))
	}

	first := throttlePoint(f.Data[0:4])
	if first.Time == 0 {
		s.ThrottlePoints = nil
	}
	s.ThrottlePoints = append(s.ThrottlePoints, first)

	if len(f.Data) >= 8 {
		s.ThrottlePoints = append(s.ThrottlePoints, throttlePoint(f.Data[4:8]))
	}
	return nil
}

func throttlePoint(b []byte) ThrottlePoint {
	return ThrottlePoint{
		Time:     uint16(beUint(b[0:2])),
		Setpoint: uint16(beUint(b[2:4])),
	}
}

// decodeChannels writes one or two words into the controller bank
func decodeChannels(s *State, f Frame) error {
	addr := f.Address()
	id := ControllerID(addr)
	ch := ControllerChannelIndex(addr)

	if len(f.Data) != MaxPayloadSize {
		return storeWord(s, addr, id, ch, word32(f.Data))
	}

	// All three kinds share the bit pattern; ChannelKind tells readers
	// which accessor applies.
	if err := storeWord(s, addr, id, ch, word32(f.Data[0:4])); err != nil {
		return err
	}
	return storeWord(s, addr, id, ch+1, word32(f.Data[4:8]))
}

func storeWord(s *State, addr uint16, id, ch int, w uint32) error {
	if id < 0 || id >= Controllers || ch >= ControllerChannel {
		return &DecodeError{
			Kind:    KindChannelRange,
			Address: addr,
			Route:   RouteController,
			Err:     fmt.Errorf("%w: controller %d channel %d", ErrChannelRange, id, ch),
		}
	}
	s.Controllers[id][ch] = Word(w)
	return nil
}
