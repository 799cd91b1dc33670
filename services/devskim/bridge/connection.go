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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devskim-tools/editor-bridge/services/devskim/protocol"
	"github.com/devskim-tools/editor-bridge/services/devskim/settings"
)

// State is the lifecycle state of a Connection.
type State int

const (
	// StateUninitialized is the state before Start.
	StateUninitialized State = iota

	// StateStarting means the engine process is launching.
	StateStarting

	// StateRunning means the channel is established and accepting sends.
	StateRunning

	// StateDisposed means the connection has been torn down or failed to
	// launch. Terminal.
	StateDisposed
)

// String returns a human-readable state name.
func (s State) String() string {
	names := []string{"uninitialized", "starting", "running", "disposed"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Options configures how the engine process is launched.
type Options struct {
	// Command is the engine binary, resolved via PATH when not absolute.
	Command string

	// Args are arguments passed in every launch mode.
	Args []string

	// Debug selects the debug launch mode: the engine gets extended
	// diagnostics/inspection flags. The protocol is unchanged.
	Debug bool

	// DebugArgs are the extra flags appended in debug mode.
	DebugArgs []string

	// WorkDir is the working directory for the engine process. Empty means
	// inherit.
	WorkDir string

	// ShutdownGrace bounds the whole graceful teardown, handshake and
	// process wait together, before the process is killed.
	ShutdownGrace time.Duration
}

// DefaultOptions returns the standard launch configuration.
func DefaultOptions() Options {
	return Options{
		Command:       "devskim-language-server",
		DebugArgs:     []string{"--debug"},
		ShutdownGrace: 5 * time.Second,
	}
}

// Connection is the single per-session handle to the analysis engine.
type Connection struct {
	id   string
	opts Options

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	proto *protocol.Handler

	state   State
	stateMu sync.RWMutex

	ctx      context.Context
	cancel   context.CancelFunc
	readDone chan struct{}
}

// NewConnection creates a connection handle (not started). Zero fields in
// opts fall back to DefaultOptions values.
func NewConnection(opts Options) *Connection {
	def := DefaultOptions()
	if opts.Command == "" {
		opts.Command = def.Command
	}
	if opts.DebugArgs == nil {
		opts.DebugArgs = def.DebugArgs
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = def.ShutdownGrace
	}
	return &Connection{
		id:       uuid.NewString(),
		opts:     opts,
		state:    StateUninitialized,
		readDone: make(chan struct{}),
	}
}

// Start launches the engine and establishes the channel.
//
// The settings snapshot is merged into the engine's process environment in
// both launch modes. On launch failure the connection moves to disposed
// and the error is returned for the caller to surface; no retry happens
// here.
func (c *Connection) Start(ctx context.Context, s settings.Settings) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}

	c.stateMu.Lock()
	if c.state != StateUninitialized {
		c.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateStarting
	c.stateMu.Unlock()

	path, err := exec.LookPath(c.opts.Command)
	if err != nil {
		c.setState(StateDisposed)
		return fmt.Errorf("%w: %s", ErrEngineNotFound, c.opts.Command)
	}

	args := c.launchArgs()
	slog.Info("starting analysis engine",
		slog.String("connection_id", c.id),
		slog.String("command", path),
		slog.Bool("debug", c.opts.Debug),
	)

	// The engine outlives the caller's context; teardown happens in Stop.
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.cmd = exec.CommandContext(c.ctx, path, args...)
	c.cmd.Dir = c.opts.WorkDir
	c.cmd.Env = append(os.Environ(), s.Environ()...)

	c.stdin, err = c.cmd.StdinPipe()
	if err != nil {
		c.dispose()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	c.stdout, err = c.cmd.StdoutPipe()
	if err != nil {
		c.dispose()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := c.cmd.Start(); err != nil {
		c.dispose()
		return fmt.Errorf("start engine: %w", err)
	}

	c.proto = protocol.NewHandler(c.stdout, c.stdin)

	go func() {
		defer close(c.readDone)
		if err := c.proto.ReadLoop(c.ctx); err != nil && err != context.Canceled {
			slog.Warn("engine read loop ended",
				slog.String("connection_id", c.id),
				slog.String("error", err.Error()),
			)
		}
	}()

	c.setState(StateRunning)
	slog.Info("engine connection running", slog.String("connection_id", c.id))
	return nil
}

// launchArgs builds the process arguments for the configured mode.
func (c *Connection) launchArgs() []string {
	args := append([]string(nil), c.opts.Args...)
	if c.opts.Debug {
		args = append(args, c.opts.DebugArgs...)
	}
	return args
}

// Notify sends a one-way protocol message. It fails with ErrNotRunning
// unless the connection is running; sends are never silently dropped.
func (c *Connection) Notify(method string, params interface{}) error {
	if c.State() != StateRunning {
		return ErrNotRunning
	}
	return c.proto.Notify(method, params)
}

// Request sends a request and waits for the engine's response. Only the
// lifecycle handshake uses this; the DevSkim methods are one-way.
func (c *Connection) Request(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if c.State() != StateRunning {
		return nil, ErrNotRunning
	}
	return c.proto.Call(ctx, method, params)
}

// Stop tears down the channel and releases the process handle. Idempotent.
// In-flight sends fail individually once the state flips to disposed.
func (c *Connection) Stop(ctx context.Context) error {
	c.stateMu.Lock()
	if c.state == StateDisposed || c.state == StateUninitialized {
		c.state = StateDisposed
		c.stateMu.Unlock()
		return nil
	}
	c.state = StateDisposed
	c.stateMu.Unlock()

	slog.Info("stopping engine connection", slog.String("connection_id", c.id))
	defer c.dispose()

	// One deadline covers the whole teardown: whatever the handshake
	// consumes is not granted again to the process wait.
	deadline := time.Now().Add(c.opts.ShutdownGrace)

	if c.proto != nil {
		graceCtx, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()

		// Best-effort handshake; the engine may already be gone.
		_, _ = c.proto.Call(graceCtx, protocol.MethodShutdown, nil)
		_ = c.proto.Notify(protocol.MethodExit, nil)
		c.proto.Close()
	}

	if c.stdin != nil {
		_ = c.stdin.Close()
	}

	if c.cmd != nil && c.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case <-time.After(time.Until(deadline)):
			_ = c.cmd.Process.Kill()
			<-done
		case <-done:
		}
	}

	if c.cancel != nil {
		c.cancel()
	}
	select {
	case <-c.readDone:
	case <-time.After(time.Second):
	}
	return nil
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// ID returns the per-session connection identifier used in logs.
func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// dispose releases process resources and pins the terminal state.
func (c *Connection) dispose() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.stdout != nil {
		_ = c.stdout.Close()
	}
	c.setState(StateDisposed)
}
