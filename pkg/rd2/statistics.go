// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rd2

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	DecodedFrames  uint64
	IgnoredFrames  uint64
	PartialFrames  uint64
	RejectedFrames uint64

	PayloadTooLong   uint64
	ShortPayloads    uint64
	ChannelRange     uint64
	NodeStateRejects uint64

	// Duplicate autosequence frames seen by the session
	AutosequenceDupes uint64

	ByRoute [routeCount]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a decoded frame's route and error
func (s *Statistics) Update(route Route, err error) {
	s.TotalFrames++
	s.ByRoute[route]++
	s.LastUpdateTime = time.Now()

	if err == nil {
		if route == RouteNone {
			s.IgnoredFrames++
		} else {
			s.DecodedFrames++
		}
		return
	}

	var de *DecodeError
	if !errors.As(err, &de) {
		s.RejectedFrames++
		return
	}

	switch de.Kind {
	case KindPayloadTooLong:
		s.PayloadTooLong++
		s.RejectedFrames++
	case KindShortPayload:
		s.ShortPayloads++
		s.PartialFrames++
	case KindChannelRange:
		s.ChannelRange++
		s.PartialFrames++
	default:
		s.PartialFrames++
	}
}

// recordNodeReject counts a node state report that left the state unchanged
func (s *Statistics) recordNodeReject(err error) {
	s.NodeStateRejects++
}

// Errors returns the number of frames that were rejected or partially decoded
func (s *Statistics) Errors() uint64 {
	return s.RejectedFrames + s.PartialFrames
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()+s.NodeStateRejects) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var decodedPercent, ignoredPercent, partialPercent, rejectedPercent float64
	if s.TotalFrames > 0 {
		decodedPercent = float64(s.DecodedFrames) * 100.0 / float64(s.TotalFrames)
		ignoredPercent = float64(s.IgnoredFrames) * 100.0 / float64(s.TotalFrames)
		partialPercent = float64(s.PartialFrames) * 100.0 / float64(s.TotalFrames)
		rejectedPercent = float64(s.RejectedFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Decoded Frames:  %8d (%.1f%%)\n", s.DecodedFrames, decodedPercent)
	result += fmt.Sprintf("Ignored Frames:  %8d (%.1f%%)\n", s.IgnoredFrames, ignoredPercent)

	if s.PartialFrames > 0 {
		result += fmt.Sprintf("Partial Frames:  %8d (%.1f%%)\n", s.PartialFrames, partialPercent)
		if s.ShortPayloads > 0 {
			result += fmt.Sprintf("  Short Payload:    %5d\n", s.ShortPayloads)
		}
		if s.ChannelRange > 0 {
			result += fmt.Sprintf("  Channel Range:    %5d\n", s.ChannelRange)
		}
	}
	if s.RejectedFrames > 0 {
		result += fmt.Sprintf("Rejected Frames: %8d (%.1f%%)\n", s.RejectedFrames, rejectedPercent)
		if s.PayloadTooLong > 0 {
			result += fmt.Sprintf("  Payload > 8:      %5d\n", s.PayloadTooLong)
		}
	}
	if s.NodeStateRejects > 0 {
		result += fmt.Sprintf("Node Rejects:    %8d\n", s.NodeStateRejects)
	}
	if s.AutosequenceDupes > 0 {
		result += fmt.Sprintf("Autoseq Dupes:   %8d\n", s.AutosequenceDupes)
	}

	for r := RouteClock; r < routeCount; r++ {
		if s.ByRoute[r] > 0 {
			result += fmt.Sprintf("  %-15s %8d\n", r.String()+":", s.ByRoute[r])
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
