// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// interestingAddresses are the route boundaries and fixed addresses
var interestingAddresses = []uint32{
	0, 50, 51, 100, 426, 427, AddrClockShort,
	510, 511, AddrEngineNode, AddrPropNode, AddrPrimaryNode, 529, 530,
	AddrEngineValves, AddrPropValves, AddrPrimaryValves,
	1000, 1001, 1049, 1050, 1149, 1151, AddrAutosequence,
	AddrThrottleInt1, AddrThrottleInt2, AddrThrottlePoints, 1214, 1215, 2047,
}

// randomFrame builds a frame with a random identifier and a 0-9 byte payload
func randomFrame(rng *rand.Rand) Frame {
	id := rng.Uint32()
	if rng.Intn(2) == 0 {
		id = id&^AddressMask | interestingAddresses[rng.Intn(len(interestingAddresses))]
	}
	data := make([]byte, rng.Intn(MaxPayloadSize+2))
	rng.Read(data)
	return NewFrame(id, data)
}

func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)
		route, err := d.Decode(f)

		if route != RouteNone && route != Classify(f.Address()) {
			t.Fatalf("round %d: route %s does not match address %d", i, route, f.Address())
		}
		if err != nil {
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("round %d: error is not a DecodeError: %v", i, err)
			}
			if de.Address != f.Address() {
				t.Fatalf("round %d: error address %d, frame address %d", i, de.Address, f.Address())
			}
		}
	}

	if d.Frames() != uint64(rounds) || d.Statistics().TotalFrames != uint64(rounds) {
		t.Errorf("frame counters %d/%d, want %d", d.Frames(), d.Statistics().TotalFrames, rounds)
	}
}

func TestFuzzDecoder_LedgerInvariants(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()
	s := d.State()

	for i := 0; i < rounds; i++ {
		var f Frame
		switch rng.Intn(3) {
		case 0:
			// Small value space so duplicates happen
			f = NewFrame(AddrAutosequence, []byte{byte(rng.Intn(3))})
		case 1:
			data := make([]byte, 4+4*rng.Intn(2))
			rng.Read(data)
			if rng.Intn(4) == 0 {
				data[0], data[1] = 0, 0
			}
			f = NewFrame(AddrThrottlePoints, data)
		default:
			f = randomFrame(rng)
		}

		before := len(s.ThrottlePoints)
		if _, err := d.Decode(f); err != nil {
			continue
		}

		if f.Address() == AddrThrottlePoints {
			pairs := 1
			if len(f.Data) >= 8 {
				pairs = 2
			}
			if f.Data[0] == 0 && f.Data[1] == 0 {
				if len(s.ThrottlePoints) != pairs {
					t.Fatalf("round %d: %d points after restart, want %d", i, len(s.ThrottlePoints), pairs)
				}
			} else if len(s.ThrottlePoints) != before+pairs {
				t.Fatalf("round %d: %d points, want %d", i, len(s.ThrottlePoints), before+pairs)
			}
		}
	}

	ledger := s.AutosequenceLedger
	for i := 1; i < len(ledger); i++ {
		if ledger[i].AutosequenceTime == ledger[i-1].AutosequenceTime {
			t.Fatalf("autosequence entries %d and %d are equal", i-1, i)
		}
	}
	for _, n := range Nodes {
		if st := s.NodeState(n); st < 0 || st >= vehicleStateCount {
			t.Fatalf("%s holds invalid state %d", n, st)
		}
	}
}
