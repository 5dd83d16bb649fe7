// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/standcan/pkg/rd2"
)

var (
	ErrMalformed = errors.New("capture: malformed entry")
	ErrNotFrame  = errors.New("capture: entry is not a data frame")
)

// coolTermBytes is the fixed payload width of a CoolTerm chunk
const coolTermBytes = 8

// SLCAN frame commands for 11-bit and 29-bit identifiers
const (
	SLCANStandard = 't'
	SLCANExtended = 'T'
)

// LineError reports one capture entry that could not be parsed. Line is the
// 1-based entry number, or 0 for live streams.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ParseLine parses one capture entry into a frame
func ParseLine(f Format, line string) (rd2.Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return rd2.Frame{}, malformed("empty entry")
	}

	switch f {
	case FormatCandump:
		if strings.HasPrefix(line, "(") {
			return parseCandumpLog(line)
		}
		return parseCandump(line)
	case FormatCandumpLog:
		return parseCandumpLog(line)
	case FormatCoolTerm:
		return parseCoolTerm(line)
	case FormatSLCAN:
		return parseSLCAN(line)
	default:
		return rd2.Frame{}, ErrUnknownFormat
	}
}

// parseCandump parses `can0  08EF003A   [5]  19 C0 3C 19 E6`
func parseCandump(line string) (rd2.Frame, error) {
	items := strings.Fields(line)
	if len(items) < 3 {
		return rd2.Frame{}, malformed("expected interface, id and length")
	}

	id, err := strconv.ParseUint(items[1], 16, 32)
	if err != nil {
		return rd2.Frame{}, malformed("identifier %q", items[1])
	}

	dlcField := items[2]
	if !strings.HasPrefix(dlcField, "[") || !strings.HasSuffix(dlcField, "]") {
		return rd2.Frame{}, malformed("length field %q", dlcField)
	}
	dlc, err := strconv.Atoi(dlcField[1 : len(dlcField)-1])
	if err != nil {
		return rd2.Frame{}, malformed("length field %q", dlcField)
	}

	argv := items[3:]
	if len(argv) != dlc {
		return rd2.Frame{}, malformed("length %d with %d data bytes", dlc, len(argv))
	}
	data, err := hex.DecodeString(strings.Join(argv, ""))
	if err != nil {
		return rd2.Frame{}, malformed("data: %v", err)
	}
	return rd2.Frame{Identifier: uint32(id), Data: data}, nil
}

// parseCandumpLog parses `(1700000000.000000) can0 08EF003A#19C03C19E6`
func parseCandumpLog(line string) (rd2.Frame, error) {
	items := strings.Fields(line)
	if len(items) < 3 {
		return rd2.Frame{}, malformed("expected timestamp, interface and frame")
	}

	idHex, dataHex, ok := strings.Cut(items[2], "#")
	if !ok {
		return rd2.Frame{}, malformed("frame %q", items[2])
	}
	if strings.HasPrefix(dataHex, "#") || strings.HasPrefix(dataHex, "R") {
		return rd2.Frame{}, ErrNotFrame
	}

	id, err := strconv.ParseUint(idHex, 16, 32)
	if err != nil {
		return rd2.Frame{}, malformed("identifier %q", idHex)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return rd2.Frame{}, malformed("data: %v", err)
	}
	return rd2.Frame{Identifier: uint32(id), Data: data}, nil
}

// parseCoolTerm parses a `id:b0,b1,...,b7` chunk of decimal values
func parseCoolTerm(chunk string) (rd2.Frame, error) {
	header, body, ok := strings.Cut(chunk, ":")
	if !ok {
		return rd2.Frame{}, malformed("missing header")
	}

	id, err := strconv.ParseUint(strings.TrimSpace(header), 10, 32)
	if err != nil {
		return rd2.Frame{}, malformed("identifier %q", header)
	}

	fields := strings.Split(body, ",")
	if len(fields) != coolTermBytes {
		return rd2.Frame{}, malformed("%d data bytes", len(fields))
	}
	data := make([]byte, coolTermBytes)
	for i, field := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 8)
		if err != nil {
			return rd2.Frame{}, malformed("byte %d %q", i, field)
		}
		data[i] = byte(v)
	}
	return rd2.Frame{Identifier: uint32(id), Data: data}, nil
}

// parseSLCAN parses `tIIILDD..` and `TIIIIIIIILDD..` frames
func parseSLCAN(line string) (rd2.Frame, error) {
	var idLen int
	switch line[0] {
	case SLCANStandard:
		idLen = 3
	case SLCANExtended:
		idLen = 8
	default:
		return rd2.Frame{}, ErrNotFrame
	}

	if len(line) < idLen+2 {
		return rd2.Frame{}, malformed("truncated frame")
	}
	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return rd2.Frame{}, malformed("identifier %q", line[1:1+idLen])
	}
	dlc, err := strconv.ParseUint(line[1+idLen:2+idLen], 16, 8)
	if err != nil {
		return rd2.Frame{}, malformed("length %q", line[1+idLen:2+idLen])
	}

	body := line[2+idLen:]
	if len(body) < int(dlc)*2 {
		return rd2.Frame{}, malformed("length %d with %d hex digits", dlc, len(body))
	}
	// Some adapters append a 4-digit timestamp after the data
	data, err := hex.DecodeString(body[:dlc*2])
	if err != nil {
		return rd2.Frame{}, malformed("data: %v", err)
	}
	return rd2.Frame{Identifier: uint32(id), Data: data}, nil
}

// FormatSLCANFrame renders a frame as an SLCAN transmit command without the
// trailing carriage return
func FormatSLCANFrame(f rd2.Frame) string {
	if f.Identifier <= 0x7FF {
		return fmt.Sprintf("%c%03X%d%X", SLCANStandard, f.Identifier, len(f.Data), f.Data)
	}
	return fmt.Sprintf("%c%08X%d%X", SLCANExtended, f.Identifier, len(f.Data), f.Data)
}
