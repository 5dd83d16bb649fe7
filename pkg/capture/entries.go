// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single capture line. CoolTerm captures can put
// thousands of chunks on one line.
const maxLineSize = 16 * 1024 * 1024

// Entries splits a capture into one string per frame entry, in file order.
// Blank lines are dropped.
func Entries(r io.Reader, f Format) ([]string, error) {
	if f == FormatCoolTerm {
		return coolTermEntries(r)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanEntries)

	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries, scanner.Err()
}

// scanEntries is bufio.ScanLines that also ends an entry on a bare '\r', as
// SLCAN does
func scanEntries(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// coolTermEntries regroups a CoolTerm capture into `id:b0,...,b7` chunks.
// CoolTerm breaks lines at arbitrary points, so line ends are treated as
// plain separators and every header starts a new chunk.
func coolTermEntries(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	text := strings.NewReplacer("\r\n", ",", "\n", ",", "\r", ",").Replace(string(raw))

	var (
		entries []string
		chunk   []string
	)
	flush := func() {
		if len(chunk) > 0 {
			entries = append(entries, strings.Join(chunk, ","))
			chunk = nil
		}
	}

	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if strings.Contains(token, ":") {
			flush()
		}
		chunk = append(chunk, token)
		if len(chunk) == coolTermBytes && strings.Contains(chunk[0], ":") {
			flush()
		}
	}
	flush()
	return entries, nil
}
