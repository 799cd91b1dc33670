// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package activation sequences bridge startup: settings resolution, engine
// launch, command registration, the .clientrc watch, and the deferred
// full-validation sweep.
package activation

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/devskim-tools/editor-bridge/services/devskim/commands"
	"github.com/devskim-tools/editor-bridge/services/devskim/host"
	"github.com/devskim-tools/editor-bridge/services/devskim/protocol"
	"github.com/devskim-tools/editor-bridge/services/devskim/settings"
	"github.com/devskim-tools/editor-bridge/services/devskim/watch"
)

// DefaultSweepDelay is how long after activation the one-shot validation
// sweep fires. The delay lets documents opened asynchronously during host
// startup get picked up.
const DefaultSweepDelay = 30 * time.Second

// Engine is the connection surface activation needs. *bridge.Connection
// satisfies it; tests inject fakes.
type Engine interface {
	Start(ctx context.Context, s settings.Settings) error
	Notify(method string, params interface{}) error
	Stop(ctx context.Context) error
}

// Options configures activation.
type Options struct {
	// Config supplies the devskim.* configuration surface. Nil resolves
	// everything to defaults.
	Config *viper.Viper

	// SweepDelay overrides DefaultSweepDelay (tests).
	SweepDelay time.Duration

	// WatchDebounce overrides the .clientrc watch debounce (tests).
	WatchDebounce time.Duration
}

// Activate runs the startup sequence against an injected connection.
//
// Each step proceeds only if the prior step succeeded. Any failure is
// routed to the host's error channel and activation stops — no partial
// activation, no retry. On success the connection's disposal, the watcher,
// and the sweep timer are registered with the host's lifecycle list so
// teardown is automatic on session end.
func Activate(ctx context.Context, h host.Host, conn Engine, opts Options) error {
	resolved := settings.Resolve(opts.Config)

	if err := conn.Start(ctx, resolved); err != nil {
		h.ShowError("DevSkim: failed to start the analysis engine: " + err.Error())
		return err
	}

	dispatcher := commands.NewDispatcher(conn, h)
	if err := dispatcher.Register(h); err != nil {
		h.ShowError("DevSkim: failed to register commands: " + err.Error())
		_ = conn.Stop(ctx)
		return err
	}
	h.AddDisposable(host.DisposeFunc(func() {
		_ = conn.Stop(context.Background())
	}))

	watcher, err := watch.New(conn, h.WorkspaceRoots(), watch.Options{Debounce: opts.WatchDebounce})
	if err != nil {
		h.ShowError("DevSkim: failed to watch .clientrc files: " + err.Error())
		_ = conn.Stop(ctx)
		return err
	}
	h.AddDisposable(watcher)

	delay := opts.SweepDelay
	if delay <= 0 {
		delay = DefaultSweepDelay
	}
	timer := time.AfterFunc(delay, func() { sweep(conn, h) })
	h.AddDisposable(host.DisposeFunc(func() { timer.Stop() }))

	slog.Info("devskim bridge activated",
		slog.Duration("sweep_delay", delay),
		slog.Int("workspace_roots", len(h.WorkspaceRoots())),
	)
	return nil
}

// sweep validates every document open at fire time, not at schedule time.
func sweep(conn Engine, h host.Host) {
	docs := h.OpenDocuments()
	if len(docs) == 0 {
		slog.Debug("startup sweep: no open documents")
		return
	}

	ids := make([]protocol.TextDocumentIdentifier, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, protocol.TextDocumentIdentifier{URI: d.URI})
	}
	err := conn.Notify(protocol.MethodValidateDocuments, protocol.ValidateDocumentsParams{
		TextDocuments: ids,
	})
	if err != nil {
		slog.Warn("startup sweep failed", slog.String("error", err.Error()))
		return
	}
	slog.Info("startup sweep dispatched", slog.Int("documents", len(ids)))
}
