// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Thermoquad/standcan/pkg/rd2"
)

// sample is the same frame in every supported encoding
var sample = rd2.Frame{Identifier: 0x08EF003A, Data: []byte{0x19, 0xC0, 0x3C, 0x19, 0xE6}}

// ============================================================
// Format Detection Tests
// ============================================================

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"staticfireCanDump-1-21-2023.txt", FormatCandump},
		{"/tmp/runs/candump-2024.log", FormatCandump},
		{"CoolTerm_Capture_2022-09-17_17-29-51.txt", FormatCoolTerm},
		{"bench.slcan", FormatSLCAN},
		{"session.log", FormatCandumpLog},
	}

	for _, tt := range tests {
		got, err := DetectFormat(tt.name)
		if err != nil {
			t.Errorf("DetectFormat(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}

	if _, err := DetectFormat("notes.txt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatCandump, FormatCandumpLog, FormatCoolTerm, FormatSLCAN} {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %s, %v", f.String(), got, err)
		}
	}
}

// ============================================================
// Line Parsing Tests
// ============================================================

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		line   string
	}{
		{"candump", FormatCandump, "  can0  08EF003A   [5]  19 C0 3C 19 E6"},
		{"candump log", FormatCandumpLog, "(1700000000.000000) can0 08EF003A#19C03C19E6"},
		{"candump auto log", FormatCandump, "(1700000000.000000) can0 08EF003A#19C03C19E6"},
		{"coolterm", FormatCoolTerm, "149880890:25,192,60,25,230,0,0,0"},
		{"slcan extended", FormatSLCAN, "T08EF003A519C03C19E6\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.format, tt.line)
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			if got.Identifier != sample.Identifier {
				t.Errorf("identifier 0x%08X, want 0x%08X", got.Identifier, sample.Identifier)
			}
			want := sample.Data
			if tt.format == FormatCoolTerm {
				want = []byte{0x19, 0xC0, 0x3C, 0x19, 0xE6, 0, 0, 0}
			}
			if diff := cmp.Diff(want, got.Data); diff != "" {
				t.Errorf("data (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLine_SLCANStandard(t *testing.T) {
	got, err := ParseLine(FormatSLCAN, "t22280102030405060708")
	if err != nil {
		t.Fatal(err)
	}
	if got.Identifier != 0x222 || got.Address() != rd2.AddrEngineValves {
		t.Errorf("identifier 0x%X", got.Identifier)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 5, 6, 7, 8}, got.Data); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		line   string
		want   error
	}{
		{"candump short", FormatCandump, "can0 123", ErrMalformed},
		{"candump bad id", FormatCandump, "can0 XYZ [1] 00", ErrMalformed},
		{"candump length mismatch", FormatCandump, "can0 123 [3] 00 01", ErrMalformed},
		{"candump bad byte", FormatCandump, "can0 123 [1] G0", ErrMalformed},
		{"log missing hash", FormatCandumpLog, "(1.0) can0 123", ErrMalformed},
		{"log remote", FormatCandumpLog, "(1.0) can0 123#R", ErrNotFrame},
		{"coolterm no header", FormatCoolTerm, "1,2,3", ErrMalformed},
		{"coolterm short", FormatCoolTerm, "100:1,2,3", ErrMalformed},
		{"coolterm byte range", FormatCoolTerm, "100:1,2,3,4,5,6,7,256", ErrMalformed},
		{"slcan status", FormatSLCAN, "F00", ErrNotFrame},
		{"slcan truncated", FormatSLCAN, "t22", ErrMalformed},
		{"slcan short data", FormatSLCAN, "t222801", ErrMalformed},
		{"empty", FormatSLCAN, "   ", ErrMalformed},
		{"unknown format", FormatUnknown, "x", ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLine(tt.format, tt.line); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFormatSLCANFrame(t *testing.T) {
	tests := []struct {
		frame rd2.Frame
		want  string
	}{
		{rd2.Frame{Identifier: 0x222, Data: []byte{0x01, 0xAB}}, "t222201AB"},
		{rd2.Frame{Identifier: 0x10C}, "t10C0"},
		{sample, "T08EF003A519C03C19E6"},
	}

	for _, tt := range tests {
		got := FormatSLCANFrame(tt.frame)
		if got != tt.want {
			t.Errorf("FormatSLCANFrame = %q, want %q", got, tt.want)
		}
		back, err := ParseLine(FormatSLCAN, got)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", got, err)
		}
		if back.Identifier != tt.frame.Identifier || len(back.Data) != len(tt.frame.Data) {
			t.Errorf("round trip of %q = %+v", got, back)
		}
	}
}

// ============================================================
// Entry Splitting Tests
// ============================================================

func TestEntries_LineFormats(t *testing.T) {
	in := "t1230\r\nt1241AA\r\n\r\nt1252BBCC\r"
	got, err := Entries(strings.NewReader(in), FormatSLCAN)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"t1230", "t1241AA", "t1252BBCC"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
}

func TestEntries_CoolTermRegroupsBrokenLines(t *testing.T) {
	in := "100:1,2,3,4,5,6,7,8,200:9,10\n,11,12,13,14,15,16\r\n300:0,0,0,0\n0,0,0,0,\n"
	got, err := Entries(strings.NewReader(in), FormatCoolTerm)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"100:1,2,3,4,5,6,7,8",
		"200:9,10,11,12,13,14,15,16",
		"300:0,0,0,0,0,0,0,0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
}

func TestEntries_CoolTermTruncatedChunk(t *testing.T) {
	got, err := Entries(strings.NewReader("100:1,2,3,4,5,6,7,8,200:1,2"), FormatCoolTerm)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if _, err := ParseLine(FormatCoolTerm, got[1]); !errors.Is(err, ErrMalformed) {
		t.Errorf("truncated chunk should be malformed, got %v", err)
	}
}

// ============================================================
// Parallel Parsing Tests
// ============================================================

func TestParseAll_KeepsOrder(t *testing.T) {
	var entries []string
	for i := 0; i < 100; i++ {
		if i == 41 {
			entries = append(entries, "garbage")
			continue
		}
		entries = append(entries, fmt.Sprintf("can0 %03X [1] %02X", i, i))
	}

	res, err := ParseAll(context.Background(), entries, FormatCandump, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Frames) != 99 {
		t.Fatalf("got %d frames, want 99", len(res.Frames))
	}
	prev := -1
	for _, f := range res.Frames {
		if int(f.Identifier) <= prev {
			t.Fatalf("frame 0x%X out of order after 0x%X", f.Identifier, prev)
		}
		prev = int(f.Identifier)
	}

	if len(res.Errors) != 1 || res.Errors[0].Line != 42 || res.Errors[0].Text != "garbage" {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
	if !errors.Is(res.Errors[0], ErrMalformed) {
		t.Errorf("line error should unwrap to ErrMalformed")
	}
}

func TestParseAll_Empty(t *testing.T) {
	res, err := ParseAll(context.Background(), nil, FormatSLCAN, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Frames) != 0 || len(res.Errors) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestParseAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ParseAll(ctx, []string{"t1230", "t1230"}, FormatSLCAN, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ============================================================
// File Tests
// ============================================================

func TestOpen_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench_CanDump.txt")
	content := "can0  222   [2]  01 02\ncan0  10C   [0]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	captures, err := Open(path, FormatUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if len(captures) != 1 {
		t.Fatalf("got %d captures", len(captures))
	}
	c := captures[0]
	if c.Name != "bench_CanDump.txt" || c.Format != FormatCandump || len(c.Entries) != 2 {
		t.Errorf("unexpected capture %+v", c)
	}
}

func TestOpen_Zip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staticfireCanDump.zip")

	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(file)
	members := []struct{ name, body string }{
		{"part1.txt", "can0 222 [1] 01\n"},
		{"CoolTerm_part2.txt", "546:1,2,3,4,5,6,7,8\n"},
	}
	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, m.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	captures, err := Open(path, FormatUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if len(captures) != 2 {
		t.Fatalf("got %d captures, want 2", len(captures))
	}
	if captures[0].Format != FormatCandump {
		t.Errorf("first member format %s, want candump from archive name", captures[0].Format)
	}
	if captures[1].Format != FormatCoolTerm {
		t.Errorf("second member format %s, want coolterm", captures[1].Format)
	}
}

func TestOpen_Unsupported(t *testing.T) {
	if _, err := Open("capture.bin", FormatUnknown); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("expected ErrUnsupportedFile, got %v", err)
	}
}

// ============================================================
// Stream Reader Tests
// ============================================================

func TestReader_SkipsNonFrames(t *testing.T) {
	in := "z\rt2222AABB\r\aF00\rt10C0\r"
	r := NewReader(strings.NewReader(in), FormatSLCAN)

	var got []rd2.Frame
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, f)
	}

	want := []rd2.Frame{
		{Identifier: 0x222, Data: []byte{0xAA, 0xBB}},
		{Identifier: 0x10C, Data: []byte{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}
	if r.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", r.Skipped)
	}
}

func TestReader_MalformedContinues(t *testing.T) {
	r := NewReader(strings.NewReader("t22\rt1230\r"), FormatSLCAN)

	if _, err := r.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	f, err := r.Next()
	if err != nil || f.Identifier != 0x123 {
		t.Errorf("reader did not recover: %+v %v", f, err)
	}
}
