// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import "fmt"

// nodeForAddress maps a node state report address to its node
func nodeForAddress(addr uint16) (Node, bool) {
	switch addr {
	case AddrEngineNode:
		return NodeEngine, true
	case AddrPropNode:
		return NodeProp, true
	case AddrPrimaryNode:
		return NodePrimary, true
	}
	return 0, false
}

// updateNodeState applies a node state report. Addresses in the node range
// without a node of their own are left alone. On error the previous state is
// kept.
func updateNodeState(s *State, f Frame) error {
	n, ok := nodeForAddress(f.Address())
	if !ok {
		return nil
	}
	if len(f.Data) == 0 {
		return shortPayload(RouteNodeState, f.Address(), 1, 0)
	}

	idx := int(f.Data[0])
	if idx >= int(vehicleStateCount) {
		return &DecodeError{
			Kind:    KindStateIndex,
			Address: f.Address(),
			Route:   RouteNodeState,
			Err:     fmt.Errorf("%w: %d", ErrStateIndex, idx),
		}
	}
	s.NodeStates[n] = VehicleState(idx)
	return nil
}
