// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package commands maps user-invoked editor actions onto engine protocol
// traffic, validating preconditions before anything is sent or applied.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/devskim-tools/editor-bridge/services/devskim/host"
	"github.com/devskim-tools/editor-bridge/services/devskim/protocol"
)

// Command identifiers exposed to the editor host.
const (
	CommandApplySingleFix = "devskim.applySingleFix"
	CommandScanWorkspace  = "devskim.scanWorkspace"
	CommandReloadRules    = "devskim.reloadRules"
)

// User-visible messages for the apply-fix failure modes.
const (
	msgStaleFix = "DevSkim: the document changed since this fix was computed; " +
		"the fix was not applied. Re-run analysis and try again."
	msgApplyFailed = "DevSkim: unable to apply the fix. If this keeps happening, " +
		"please file a defect report."
)

// Notifier is the outbound side of the engine connection the dispatcher
// needs. *bridge.Connection satisfies it.
type Notifier interface {
	Notify(method string, params interface{}) error
}

// Dispatcher validates and executes the three user-facing commands against
// an injected connection and editor host.
type Dispatcher struct {
	conn Notifier
	host host.Host
}

// NewDispatcher creates a dispatcher bound to conn and h.
func NewDispatcher(conn Notifier, h host.Host) *Dispatcher {
	return &Dispatcher{conn: conn, host: h}
}

// applySingleFixArgs is the JSON payload of CommandApplySingleFix.
type applySingleFixArgs struct {
	URI             string          `json:"uri"`
	DocumentVersion int             `json:"documentVersion"`
	Edits           []host.TextEdit `json:"edits"`
}

// Register binds the three commands to r.
func (d *Dispatcher) Register(r host.Registrar) error {
	handlers := map[string]host.CommandHandler{
		CommandApplySingleFix: func(ctx context.Context, args json.RawMessage) error {
			var a applySingleFixArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return fmt.Errorf("decode %s args: %w", CommandApplySingleFix, err)
			}
			return d.ApplySingleFix(ctx, a.URI, a.DocumentVersion, a.Edits)
		},
		CommandScanWorkspace: func(ctx context.Context, _ json.RawMessage) error {
			return d.ScanWorkspace(ctx)
		},
		CommandReloadRules: func(_ context.Context, _ json.RawMessage) error {
			return d.ReloadRules()
		},
	}
	for id, h := range handlers {
		if err := r.RegisterCommand(id, h); err != nil {
			return fmt.Errorf("register %s: %w", id, err)
		}
	}
	return nil
}

// ApplySingleFix applies an already-delivered edit batch to the active
// document. No protocol traffic is involved.
//
// The batch is applied only when the active document's URI matches uri
// (async races can change focus between fix computation and invocation)
// and its version equals documentVersion. A version mismatch means the
// edits are stale: the user gets one informational message and no edit is
// applied — the batch is all-or-nothing, partial application is never
// attempted.
func (d *Dispatcher) ApplySingleFix(ctx context.Context, uri string, documentVersion int, edits []host.TextEdit) error {
	active := d.host.ActiveDocument()
	if active == nil || active.URI != uri {
		slog.Debug("apply fix skipped: target is not the active document",
			slog.String("uri", uri),
		)
		return nil
	}

	if active.Version != documentVersion {
		d.host.ShowInformation(msgStaleFix)
		return nil
	}

	ok, err := d.host.ApplyEdits(ctx, uri, edits)
	if err != nil || !ok {
		d.host.ShowError(msgApplyFailed)
		if err != nil {
			return fmt.Errorf("apply edits: %w", err)
		}
		return fmt.Errorf("apply edits: rejected by document model")
	}
	return nil
}

// ScanWorkspace enumerates every file under the first workspace root,
// excluding paths containing ".git", and issues one single-document
// validatedocuments request per file.
//
// Each file's open-and-request is an independent unit of work with no
// ordering guarantee relative to the others, and there is no aggregate
// completion signal. An enumeration failure is fatal to the whole
// operation and propagated; per-file open failures only skip that file.
func (d *Dispatcher) ScanWorkspace(ctx context.Context) error {
	roots := d.host.WorkspaceRoots()
	if len(roots) == 0 {
		slog.Debug("scan requested with no workspace root")
		return nil
	}

	files, err := enumerateFiles(roots[0])
	if err != nil {
		return fmt.Errorf("enumerate workspace files: %w", err)
	}

	for _, path := range files {
		go d.validateFile(ctx, path)
	}
	return nil
}

// validateFile opens one file as a document and requests its validation.
func (d *Dispatcher) validateFile(ctx context.Context, path string) {
	uri := pathToURI(path)
	doc, err := d.host.OpenDocument(ctx, uri)
	if err != nil {
		slog.Warn("scan: open document failed",
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
		return
	}
	err = d.conn.Notify(protocol.MethodValidateDocuments, protocol.ValidateDocumentsParams{
		TextDocuments: []protocol.TextDocumentIdentifier{{URI: doc.URI}},
	})
	if err != nil {
		slog.Warn("scan: validate request failed",
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
	}
}

// ReloadRules asks the engine to reload and re-validate its rule set.
// No payload, no response handling.
func (d *Dispatcher) ReloadRules() error {
	return d.conn.Notify(protocol.MethodValidateRules, nil)
}

// enumerateFiles lists every regular file under root whose path does not
// contain ".git".
func enumerateFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.Contains(path, ".git") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// pathToURI converts an absolute file path to a file:// URI.
func pathToURI(path string) string {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return "file://" + filepath.ToSlash(path)
}
