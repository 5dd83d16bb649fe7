// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"fmt"
	"strings"
)

// FormatFrame formats a decoded frame into a human-readable string. The
// summary reflects the state after the frame was applied.
func FormatFrame(f Frame, route Route, s *State) string {
	result := fmt.Sprintf("%-14s %s\n", route, f.String())
	if s == nil {
		return result
	}
	return result + FormatDecoded(f, route, s)
}

// FormatDecoded returns the values a frame produced on its route
func FormatDecoded(f Frame, route Route, s *State) string {
	addr := f.Address()

	switch route {
	case RouteClock:
		return fmt.Sprintf("  Clock: %d s %d us\n", s.ClockSeconds, s.ClockMicros)

	case RouteEngineValves:
		return formatValves(NodeEngine, s)
	case RoutePrimaryValves:
		return formatValves(NodePrimary, s)
	case RoutePropValves:
		return formatValves(NodeProp, s)

	case RouteNodeState:
		n, ok := nodeForAddress(addr)
		if !ok {
			return "  (no node)\n"
		}
		return fmt.Sprintf("  Node %s: %s\n", n, s.NodeState(n))

	case RouteSensors:
		return formatSensors(f, s)

	case RouteController:
		return formatController(f, s)

	default:
		return ""
	}
}

func formatValves(n Node, s *State) string {
	bank := s.Valve(n)
	var out strings.Builder
	out.WriteString(fmt.Sprintf("  Valves %s:", n))
	for i := 1; i <= valvePayloadLast; i++ {
		out.WriteString(fmt.Sprintf(" %d=%d", i, bank[i]))
	}
	out.WriteString("\n")
	return out.String()
}

func formatSensors(f Frame, s *State) string {
	ids := []uint16{f.Address()}
	if len(f.Data) >= group2MinSize {
		ids = append(ids, uint16(f.Data[group2Offset]))
	}
	if len(f.Data) >= group3MinSize {
		ids = append(ids, uint16(f.Data[group3Offset]))
	}

	var out strings.Builder
	for _, id := range ids {
		out.WriteString(fmt.Sprintf("  Sensor %4d: %6d @ %.6f\n", id, s.Sensors[id], s.SensorTimestamps[id]))
	}
	return out.String()
}

func formatController(f Frame, s *State) string {
	addr := f.Address()

	switch addr {
	case AddrAutosequence:
		return fmt.Sprintf("  Autosequence: %.6f s (dupes %d)\n", s.AutosequenceTime, s.AutosequenceDupes)
	case AddrThrottlePoints:
		if len(s.ThrottlePoints) == 0 {
			return "  Throttle: (empty)\n"
		}
		last := s.ThrottlePoints[len(s.ThrottlePoints)-1]
		return fmt.Sprintf("  Throttle: %d points, last t=%d sp=%d\n", len(s.ThrottlePoints), last.Time, last.Setpoint)
	}

	id := ControllerID(addr)
	ch := ControllerChannelIndex(addr)
	if id < 0 || id >= Controllers || ch >= ControllerChannel {
		return fmt.Sprintf("  Controller %d channel %d: out of range\n", id, ch)
	}
	kind := ChannelKind(addr, len(f.Data))
	result := fmt.Sprintf("  Controller %d[%d]: %s\n", id, ch, FormatWord(s.Controllers[id][ch], kind))
	if len(f.Data) == MaxPayloadSize && ch+1 < ControllerChannel {
		result += fmt.Sprintf("  Controller %d[%d]: %s\n", id, ch+1, FormatWord(s.Controllers[id][ch+1], kind))
	}
	return result
}

// FormatWord renders a controller bank word with the given interpretation
func FormatWord(w Word, kind Kind) string {
	switch kind {
	case KindInt32:
		return fmt.Sprintf("%d", w.Int32())
	case KindUint32:
		return fmt.Sprintf("%d", w.Uint32())
	default:
		return fmt.Sprintf("%g", w.Float32())
	}
}

// FormatState returns a multi-line summary of the whole state store
func FormatState(s *State) string {
	var out strings.Builder

	out.WriteString("=== Nodes ===\n")
	for _, n := range Nodes {
		out.WriteString(fmt.Sprintf("  %-8s %s\n", n.String()+":", s.NodeState(n)))
	}

	out.WriteString("=== Valves ===\n")
	for _, n := range Nodes {
		out.WriteString(formatValves(n, s))
	}

	active := s.ActiveSensors()
	out.WriteString(fmt.Sprintf("=== Sensors (%d active) ===\n", len(active)))
	for _, id := range active {
		out.WriteString(fmt.Sprintf("  %4d: %6d @ %.6f (%d samples)\n",
			id, s.Sensors[id], s.SensorTimestamps[id], len(s.SensorLedgers[id])))
	}

	out.WriteString("=== Timing ===\n")
	out.WriteString(fmt.Sprintf("  Autosequence: %.6f s, %d changes\n", s.AutosequenceTime, len(s.AutosequenceLedger)))
	out.WriteString(fmt.Sprintf("  Throttle points: %d\n", len(s.ThrottlePoints)))
	out.WriteString(fmt.Sprintf("  Clock samples: %d\n", len(s.TimeLedger)))

	return out.String()
}
