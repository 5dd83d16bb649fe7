// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		l, err := NewLogger(LogLevelInfo, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer l.Close()
		if l.file != nil {
			t.Error("file should be nil when no path given")
		}
	})

	t.Run("with file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "standcan.log")
		l, err := NewLogger(LogLevelInfo, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		l.Info("decoded %d frames", 42)
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "INFO: decoded 42 frames") {
			t.Errorf("log file missing message: %q", data)
		}
	})
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level      LogLevel
		wantStdout []string
		wantStderr bool
	}{
		{LogLevelSilent, nil, false},
		{LogLevelError, nil, true},
		{LogLevelInfo, nil, true},
		{LogLevelVerbose, []string{"INFO: i", "VERBOSE: v"}, true},
		{LogLevelDebug, []string{"INFO: i", "VERBOSE: v", "DEBUG: d"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			l, err := newLogger(tt.level, "", &stdout, &stderr)
			if err != nil {
				t.Fatal(err)
			}
			l.Error("e")
			l.Info("i")
			l.Verbose("v")
			l.Debug("d")

			for _, want := range tt.wantStdout {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("stdout missing %q: %q", want, stdout.String())
				}
			}
			if len(tt.wantStdout) == 0 && stdout.Len() != 0 {
				t.Errorf("unexpected stdout %q", stdout.String())
			}
			if got := strings.Contains(stderr.String(), "ERROR: e"); got != tt.wantStderr {
				t.Errorf("stderr has error = %v, want %v", got, tt.wantStderr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []LogLevel{LogLevelSilent, LogLevelError, LogLevelInfo, LogLevelVerbose, LogLevelDebug} {
		got, err := ParseLevel(strings.ToUpper(lvl.String()))
		if err != nil || got != lvl {
			t.Errorf("ParseLevel(%q) = %v, %v", lvl.String(), got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogHex(t *testing.T) {
	var stdout bytes.Buffer
	l, _ := newLogger(LogLevelDebug, "", &stdout, &bytes.Buffer{})
	l.LogHex("payload", []byte{0x01, 0xAB})
	if !strings.Contains(stdout.String(), "payload: 01 AB") {
		t.Errorf("unexpected output %q", stdout.String())
	}
}
