// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

// Sensor group layout. The first group's header is the frame identifier; the
// following groups use a single payload byte as header.
const (
	group2Offset  = 2
	group2MinSize = 5
	group3Offset  = 5
	group3MinSize = 8
)

// splitSensorHeader splits a combined header into its sub-address and tick
// counter
func splitSensorHeader(header uint64) (uint16, uint64) {
	return uint16(header & AddressMask), header >> sensorAddrBits
}

// decodeSensors unpacks the 1-3 sensor samples of a multiplexed frame
func decodeSensors(s *State, f Frame) error {
	if len(f.Data) == 0 {
		return nil
	}
	if len(f.Data) < 2 {
		return shortPayload(RouteSensors, f.Address(), 2, len(f.Data))
	}

	storeSensorSample(s, uint64(f.Identifier), f.Data[0:2])
	if len(f.Data) >= group2MinSize {
		storeSensorSample(s, uint64(f.Data[group2Offset]), f.Data[group2Offset+1:group2Offset+3])
	}
	if len(f.Data) >= group3MinSize {
		storeSensorSample(s, uint64(f.Data[group3Offset]), f.Data[group3Offset+1:group3Offset+3])
	}
	return nil
}

// storeSensorSample decodes one group, runs its timestamp through the
// rollover clock and records the sample
func storeSensorSample(s *State, header uint64, value []byte) {
	id, ticks := splitSensorHeader(header)
	ts := s.Rollover.Correct(float64(ticks) * tickScale)

	raw := uint32(beUint(value))
	t := ts / sensorTimeScale

	s.Sensors[id] = raw
	s.SensorTimestamps[id] = t
	s.SensorLedgers[id] = append(s.SensorLedgers[id], SensorSample{
		SensorID: id,
		Raw:      raw,
		Time:     t,
	})
}
