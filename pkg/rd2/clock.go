// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

// decodeClock records a debug clock tick. Both fields are little-endian;
// missing bytes read as zero.
func decodeClock(s *State, f Frame, frame uint64) error {
	seconds := leUint(clamp(f.Data, 0, 4))
	micros := leUint(clamp(f.Data, 4, 8))

	s.ClockSeconds = seconds
	s.ClockMicros = micros
	s.TimeLedger = append(s.TimeLedger, ClockSample{
		Frame:    frame,
		Combined: float64(seconds) + float64(micros)*1e-6,
		Seconds:  seconds,
		Micros:   micros,
	})
	return nil
}
