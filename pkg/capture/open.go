// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFile = errors.New("capture: unsupported file type")

// Capture is one capture stream split into entries
type Capture struct {
	Name    string
	Format  Format
	Entries []string
}

// Open reads a capture file. Text captures (.txt, .log, .slcan) yield one
// Capture; a .zip archive yields one per member, in archive order. A
// FormatUnknown format is detected from each stream's name.
func Open(path string, format Format) ([]Capture, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".log", ".slcan":
		c, err := openText(path, format)
		if err != nil {
			return nil, err
		}
		return []Capture{c}, nil
	case ".zip":
		return openZip(path, format)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}
}

func resolveFormat(name string, format Format) (Format, error) {
	if format != FormatUnknown {
		return format, nil
	}
	return DetectFormat(name)
}

func openText(path string, format Format) (Capture, error) {
	name := filepath.Base(path)
	f, err := resolveFormat(name, format)
	if err != nil {
		return Capture{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return Capture{}, fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	entries, err := Entries(file, f)
	if err != nil {
		return Capture{}, fmt.Errorf("read %s: %w", name, err)
	}
	return Capture{Name: name, Format: f, Entries: entries}, nil
}

func openZip(path string, format Format) ([]Capture, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var captures []Capture
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(zf.Name)

		// Members without a recognisable name inherit the archive's format
		f, err := resolveFormat(name, format)
		if err != nil {
			if f, err = resolveFormat(filepath.Base(path), format); err != nil {
				return nil, err
			}
		}

		entries, err := readZipEntries(zf, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		captures = append(captures, Capture{Name: name, Format: f, Entries: entries})
	}
	return captures, nil
}

func readZipEntries(zf *zip.File, f Format) ([]string, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Entries(rc, f)
}
