// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture reads recorded and live bus traffic into rd2 frames.
//
// Four text encodings are understood: candump's default output, candump's
// log format (-L), CoolTerm serial captures and the SLCAN ASCII protocol.
// Line parsing is stateless, so whole captures can be parsed in parallel and
// then replayed through a single rd2.Decoder in order.
package capture

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a capture text encoding
type Format int

const (
	FormatUnknown Format = iota
	FormatCandump
	FormatCandumpLog
	FormatCoolTerm
	FormatSLCAN
)

var ErrUnknownFormat = errors.New("capture: unknown capture format")

func (f Format) String() string {
	switch f {
	case FormatCandump:
		return "candump"
	case FormatCandumpLog:
		return "candump-log"
	case FormatCoolTerm:
		return "coolterm"
	case FormatSLCAN:
		return "slcan"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name as printed by Format.String
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "candump":
		return FormatCandump, nil
	case "candump-log", "log":
		return FormatCandumpLog, nil
	case "coolterm":
		return FormatCoolTerm, nil
	case "slcan":
		return FormatSLCAN, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// DetectFormat picks a format from a capture file name. candump captures
// may mix default and -L lines; both parse under FormatCandump.
func DetectFormat(name string) (Format, error) {
	base := filepath.Base(name)
	lower := strings.ToLower(base)

	switch {
	case strings.Contains(lower, "candump"):
		return FormatCandump, nil
	case strings.Contains(lower, "coolterm"):
		return FormatCoolTerm, nil
	case strings.Contains(lower, "slcan"):
		return FormatSLCAN, nil
	case filepath.Ext(lower) == ".log":
		return FormatCandumpLog, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnknownFormat, base)
}
