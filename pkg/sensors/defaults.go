// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sensors

import "fmt"

// Default returns the compiled-in calibration table
func Default() *Table {
	t, err := NewTable(Defaults())
	if err != nil {
		panic(err)
	}
	return t
}

// Defaults returns the compiled-in sensor list
func Defaults() []Sensor {
	list := []Sensor{
		// Node 2
		{Name: "ChamberPT2", ID: 52, Node: 2, Slope: 0.0196, Offset: -102.94, Unit: "psi"},
		{Name: "ChamberPT1", ID: 50, Node: 2, Slope: 0.0195, Offset: -128.88, Unit: "psi"},
		{Name: "FuelInletPropSidePT", ID: 58, Node: 2, Slope: 0.0185, Offset: -125.74, Unit: "psi"},
		{Name: "FuelInjectorPT", ID: 54, Node: 2, Slope: 0.0196, Offset: -123.27, Unit: "psi"},
		{Name: "LoxInletPropSidePT", ID: 60, Node: 2, Slope: 0.0196, Offset: -128.58, Unit: "psi"},
		{Name: "MVPneumaticsPT", ID: 56, Node: 2, Slope: 0.0193, Offset: -125.56, Unit: "psi"},

		// Node 3
		{Name: "DomeRegFuelPT", ID: 74, Node: 3, Slope: 0.0196, Offset: -127.95, Unit: "psi"},
		{Name: "DomeRegLoxPT", ID: 76, Node: 3, Slope: 0.0194, Offset: -134.95, Unit: "psi"},
		{Name: "FuelTankPT1", ID: 62, Node: 3, Slope: 0.0192, Offset: -125.04, Unit: "psi"},
		{Name: "FuelTankPT2", ID: 64, Node: 3, Slope: 0.0194, Offset: -125.08, Unit: "psi"},
		{Name: "LoxTankPT1", ID: 66, Node: 3, Slope: 0.0192, Offset: -122.78, Unit: "psi"},
		{Name: "LoxTankPT2", ID: 68, Node: 3, Slope: 0.0191, Offset: -126.90, Unit: "psi"},
		{Name: "HiPressFuelPT", ID: 70, Node: 3, Slope: 0.0967, Offset: -623.11, Unit: "psi"},
		{Name: "HiPressLoxPT", ID: 72, Node: 3, Slope: 0.0981, Offset: -630.47, Unit: "psi"},

		// Bench simulators
		{Name: "FakeChamberPT1", ID: 150, Node: 2, Slope: 1},
		{Name: "FakeFuelLinePT", ID: 158, Node: 2, Slope: 1},
		{Name: "FakeLoxLinePT", ID: 160, Node: 2, Slope: 1},
		{Name: "FakeFuelTankPT", ID: 162, Node: 3, Slope: 1},
		{Name: "FakeLoxTankPT", ID: 166, Node: 3, Slope: 1},
		{Name: "FakeHiPressPT", ID: 170, Node: 3, Slope: 1},

		// Load cells
		{Name: "ThrustMountLoadCell1", ID: 32, Node: 4, Slope: 1},
		{Name: "ThrustMountLoadCell2", ID: 38, Node: 4, Slope: 1},
		{Name: "ThrustMountLoadCell3", ID: 44, Node: 4, Slope: 1},

		// Thermocouples
		{Name: "coldJunctionRenegade", ID: 99, Node: 4, Slope: 1},
		{Name: "EngineChamberWallTC", ID: 100, Node: 4, Slope: 1},
		{Name: "EngineThroatWallTC", ID: 102, Node: 4, Slope: 1},
		{Name: "EngineNozzleExitWallTC", ID: 104, Node: 4, Slope: 1},
		{Name: "LoxTankLowerTC", ID: 106, Node: 4, Slope: 1},
		{Name: "LoxTankMidTC", ID: 108, Node: 4, Slope: 1},
		{Name: "LoxTankUpperTC", ID: 110, Node: 4, Slope: 1},
	}

	// High-rate channels, ten per node
	for i := 1; i <= 10; i++ {
		list = append(list, Sensor{
			Name: fmt.Sprintf("RenegadeEngineHP%d", i), ID: uint16(120 + i), Node: 2,
			Slope: 0.0006, Offset: 1.78,
		})
	}
	for i := 1; i <= 10; i++ {
		list = append(list, Sensor{
			Name: fmt.Sprintf("RenegadePropHP%d", i), ID: uint16(130 + i), Node: 3,
			Slope: 0.0006, Offset: 1.78,
		})
	}
	return list
}
