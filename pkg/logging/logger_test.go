// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevel_ToSlog(t *testing.T) {
	cases := map[Level]slog.Level{
		LevelDebug: slog.LevelDebug,
		LevelInfo:  slog.LevelInfo,
		LevelWarn:  slog.LevelWarn,
		LevelError: slog.LevelError,
	}
	for level, want := range cases {
		if got := level.toSlog(); got != want {
			t.Errorf("Level(%d).toSlog() = %v, want %v", level, got, want)
		}
	}
}

func TestNew_ZeroConfig(t *testing.T) {
	l := New(Config{})
	defer l.Close()

	if l.Slog() == nil {
		t.Fatal("Slog() should not be nil")
	}
	if l.file != nil {
		t.Error("zero config must not open a log file")
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{LogDir: dir, Service: "bridge-test", Quiet: true})

	l.Slog().Info("engine started", "connection_id", "test")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	name := "bridge-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"engine started"`) {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), `"service":"bridge-test"`) {
		t.Errorf("log file missing service attribute: %s", data)
	}
}

func TestNew_BadLogDirDegrades(t *testing.T) {
	// A file path used as a directory cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(Config{LogDir: filepath.Join(blocker, "logs")})
	defer l.Close()

	if l.file != nil {
		t.Error("unusable log dir should degrade to stderr-only")
	}
}

func TestClose_Idempotent(t *testing.T) {
	l := New(Config{LogDir: t.TempDir(), Service: "x", Quiet: true})
	if err := l.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}
