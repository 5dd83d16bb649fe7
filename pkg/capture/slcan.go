// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/Thermoquad/standcan/pkg/rd2"
)

// Reader reads frames from a live text stream such as an SLCAN adapter on a
// serial port. Entries that are not data frames (status replies, bell
// characters, acknowledgements) are skipped.
type Reader struct {
	scanner *bufio.Scanner
	format  Format

	// Skipped counts entries that were not data frames
	Skipped uint64
}

// NewReader creates a new frame reader over r
func NewReader(r io.Reader, format Format) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 64*1024)
	scanner.Split(scanEntries)
	return &Reader{scanner: scanner, format: format}
}

// Next returns the next frame. Malformed entries are returned as a
// *LineError and reading may continue; io.EOF ends the stream.
func (r *Reader) Next() (rd2.Frame, error) {
	for r.scanner.Scan() {
		// SLCAN acknowledges commands with '\a' or bare CR
		line := strings.Trim(r.scanner.Text(), " \t\a")
		if line == "" {
			continue
		}

		f, err := ParseLine(r.format, line)
		if errors.Is(err, ErrNotFrame) {
			r.Skipped++
			continue
		}
		if err != nil {
			return rd2.Frame{}, &LineError{Text: line, Err: err}
		}
		return f, nil
	}
	if err := r.scanner.Err(); err != nil {
		return rd2.Frame{}, err
	}
	return rd2.Frame{}, io.EOF
}
