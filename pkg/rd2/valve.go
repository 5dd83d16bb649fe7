// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

// Valve channels 3-10 come from payload bytes 0-7
const (
	valvePayloadFirst = 3
	valvePayloadLast  = 10
)

// keepsZeroChannel1 reports whether a bank leaves channel 1 untouched when
// the identifier field decodes to zero. The engine bank always writes it.
func keepsZeroChannel1(n Node) bool {
	return n == NodePrimary || n == NodeProp
}

func valveRoute(n Node) Route {
	switch n {
	case NodeEngine:
		return RouteEngineValves
	case NodeProp:
		return RoutePropValves
	default:
		return RoutePrimaryValves
	}
}

// decodeValves writes one valve bank snapshot
func decodeValves(s *State, n Node, f Frame) error {
	bank := &s.Valves[n]

	ch1 := valveField(f.Identifier, valveChannel1Shift)
	if ch1 != 0 || !keepsZeroChannel1(n) {
		bank[1] = ch1
	}
	bank[2] = valveField(f.Identifier, valveChannel2Shift)

	for i := valvePayloadFirst; i <= valvePayloadLast; i++ {
		off := i - valvePayloadFirst
		if off >= len(f.Data) {
			return shortPayload(valveRoute(n), f.Address(), valvePayloadLast-valvePayloadFirst+1, len(f.Data))
		}
		bank[i] = f.Data[off]
	}
	return nil
}
