// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

// Decoder decodes frames of one session into its State
type Decoder struct {
	state  *State
	stats  *Statistics
	frames uint64
}

// NewDecoder creates a new decoder with an empty state store
func NewDecoder() *Decoder {
	return &Decoder{
		state: NewState(),
		stats: NewStatistics(),
	}
}

// Reset discards the session state and statistics
func (d *Decoder) Reset() {
	d.state = NewState()
	d.stats.Reset()
	d.frames = 0
}

// State returns the decoder's state store. Callers must not hold on to it
// across Decode calls from another goroutine.
func (d *Decoder) State() *State {
	return d.state
}

// Statistics returns the running decode statistics
func (d *Decoder) Statistics() *Statistics {
	return d.stats
}

// Frames returns the number of frames handed to Decode
func (d *Decoder) Frames() uint64 {
	return d.frames
}

// Decode processes one frame and returns the route it took.
// A returned error describes a frame that was rejected or only partially
// decoded; the session stays usable and the next frame can be decoded.
func (d *Decoder) Decode(f Frame) (Route, error) {
	d.frames++

	if err := f.Validate(); err != nil {
		d.stats.Update(RouteNone, err)
		return RouteNone, err
	}

	dupes := d.state.AutosequenceDupes
	route, err := d.dispatch(f, 0)
	d.stats.Update(route, err)
	if d.state.AutosequenceDupes > dupes {
		d.stats.AutosequenceDupes++
	}
	return route, err
}
