// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/devskim-tools/editor-bridge/services/devskim/protocol"
	"github.com/devskim-tools/editor-bridge/services/devskim/settings"
)

// catOptions launches cat as a stand-in engine: it holds the pipes open
// and exits on stdin EOF, which is all the lifecycle tests need.
func catOptions() Options {
	return Options{
		Command:       "cat",
		ShutdownGrace: 200 * time.Millisecond,
	}
}

func requireUnixTools(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test engine stand-in requires a unix userland")
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateUninitialized: "uninitialized",
		StateStarting:      "starting",
		StateRunning:       "running",
		StateDisposed:      "disposed",
		State(42):          "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestNewConnection_Defaults(t *testing.T) {
	c := NewConnection(Options{})

	if c.State() != StateUninitialized {
		t.Errorf("state = %v, want uninitialized", c.State())
	}
	if c.ID() == "" {
		t.Error("connection id should not be empty")
	}
	if c.opts.Command != "devskim-language-server" {
		t.Errorf("command = %q, want default engine binary", c.opts.Command)
	}
	if c.opts.ShutdownGrace != 5*time.Second {
		t.Errorf("grace = %v, want 5s", c.opts.ShutdownGrace)
	}
}

func TestSend_BeforeStartRejected(t *testing.T) {
	c := NewConnection(catOptions())

	if err := c.Notify(protocol.MethodValidateRules, nil); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Notify err = %v, want ErrNotRunning", err)
	}
	if _, err := c.Request(context.Background(), protocol.MethodShutdown, nil); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Request err = %v, want ErrNotRunning", err)
	}
}

func TestStart_EngineNotFound(t *testing.T) {
	c := NewConnection(Options{Command: "devskim-engine-that-does-not-exist"})

	err := c.Start(context.Background(), settings.Default())
	if !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("err = %v, want ErrEngineNotFound", err)
	}
	if c.State() != StateDisposed {
		t.Errorf("state after launch failure = %v, want disposed", c.State())
	}
}

func TestStart_RequiresContext(t *testing.T) {
	c := NewConnection(catOptions())
	if err := c.Start(nil, settings.Default()); err == nil { //nolint:staticcheck
		t.Error("expected error for nil context")
	}
}

func TestStartStop_Lifecycle(t *testing.T) {
	requireUnixTools(t)

	c := NewConnection(catOptions())
	ctx := context.Background()

	if err := c.Start(ctx, settings.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateRunning {
		t.Fatalf("state = %v, want running", c.State())
	}

	if err := c.Notify(protocol.MethodValidateRules, nil); err != nil {
		t.Errorf("Notify while running: %v", err)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != StateDisposed {
		t.Errorf("state after stop = %v, want disposed", c.State())
	}

	// Idempotent.
	if err := c.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	if err := c.Notify(protocol.MethodValidateRules, nil); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Notify after stop = %v, want ErrNotRunning", err)
	}
}

func TestStop_UnresponsiveEngineBoundedByGrace(t *testing.T) {
	requireUnixTools(t)

	// sleep never answers the shutdown handshake and never exits on its
	// own, so both teardown phases run to their limits.
	grace := 500 * time.Millisecond
	c := NewConnection(Options{
		Command:       "sleep",
		Args:          []string{"60"},
		ShutdownGrace: grace,
	})
	ctx := context.Background()
	if err := c.Start(ctx, settings.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	begin := time.Now()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	elapsed := time.Since(begin)

	// The handshake and the process wait share one deadline; teardown must
	// not stack a second grace period on top of the first.
	if elapsed >= 2*grace {
		t.Errorf("Stop took %v, want under %v", elapsed, 2*grace)
	}
	if c.State() != StateDisposed {
		t.Errorf("state after stop = %v, want disposed", c.State())
	}
}

func TestStart_Twice(t *testing.T) {
	requireUnixTools(t)

	c := NewConnection(catOptions())
	ctx := context.Background()
	if err := c.Start(ctx, settings.Default()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = c.Stop(ctx) }()

	if err := c.Start(ctx, settings.Default()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStop_BeforeStart(t *testing.T) {
	c := NewConnection(catOptions())
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop before start: %v", err)
	}
	if c.State() != StateDisposed {
		t.Errorf("state = %v, want disposed", c.State())
	}
}

func TestLaunchArgs_DebugMode(t *testing.T) {
	c := NewConnection(Options{
		Command: "cat",
		Args:    []string{"--stdio"},
		Debug:   true,
	})

	args := c.launchArgs()
	want := []string{"--stdio", "--debug"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestLaunchArgs_NormalMode(t *testing.T) {
	c := NewConnection(Options{Command: "cat", Args: []string{"--stdio"}})

	args := c.launchArgs()
	if len(args) != 1 || args[0] != "--stdio" {
		t.Errorf("args = %v, want [--stdio]", args)
	}
}
