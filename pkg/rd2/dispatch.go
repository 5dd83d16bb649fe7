// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

// Route is the handler family a logical address dispatches to
type Route int

const (
	RouteNone Route = iota
	RouteClock
	RouteEngineValves
	RoutePrimaryValves
	RoutePropValves
	RouteNodeState
	RouteSensors
	RouteController

	routeCount
)

func (r Route) String() string {
	switch r {
	case RouteNone:
		return "NONE"
	case RouteClock:
		return "CLOCK"
	case RouteEngineValves:
		return "ENGINE_VALVES"
	case RoutePrimaryValves:
		return "PRIMARY_VALVES"
	case RoutePropValves:
		return "PROP_VALVES"
	case RouteNodeState:
		return "NODE_STATE"
	case RouteSensors:
		return "SENSORS"
	case RouteController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// maxReentry bounds the node state re-dispatch
const maxReentry = 1

// Classify maps a logical address to its route. Rules are evaluated in
// priority order and the first match wins.
func Classify(addr uint16) Route {
	switch {
	case addr == AddrClock || addr == AddrClockShort:
		return RouteClock
	case addr == AddrEngineValves:
		return RouteEngineValves
	case addr == AddrPrimaryValves:
		return RoutePrimaryValves
	case addr == AddrPropValves:
		return RoutePropValves
	case addr > nodeRangeLow && addr < nodeRangeHigh:
		return RouteNodeState
	case addr > sensorRangeLow && addr < sensorRangeHigh:
		return RouteSensors
	case addr > AddrControllerBase:
		return RouteController
	default:
		return RouteNone
	}
}

// dispatch runs the handler for one frame. depth counts node state
// re-entries.
func (d *Decoder) dispatch(f Frame, depth int) (Route, error) {
	route := Classify(f.Address())

	switch route {
	case RouteClock:
		return route, decodeClock(d.state, f, d.frames)
	case RouteEngineValves:
		return route, decodeValves(d.state, NodeEngine, f)
	case RoutePrimaryValves:
		return route, decodeValves(d.state, NodePrimary, f)
	case RoutePropValves:
		return route, decodeValves(d.state, NodeProp, f)
	case RouteNodeState:
		if depth >= maxReentry {
			return route, nil
		}
		if err := updateNodeState(d.state, f); err != nil {
			d.stats.recordNodeReject(err)
		}
		// Errors from the re-entrant pass do not undo the state update
		_, _ = d.dispatch(f, depth+1)
		return route, nil
	case RouteSensors:
		return route, decodeSensors(d.state, f)
	case RouteController:
		return route, decodeController(d.state, f)
	default:
		return RouteNone, nil
	}
}
