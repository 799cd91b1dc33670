// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package host defines the editor-host surface the DevSkim bridge runs
// against.
//
// The bridge never talks to an editor directly. Each embedding (VS Code
// shim, test harness, headless runner) supplies an implementation of Host,
// and the bridge confines itself to the operations declared here: reading
// documents, applying edit batches, surfacing messages, and registering
// commands plus teardown hooks with the host's lifecycle-subscription list.
package host

import (
	"context"
	"encoding/json"
)

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextEdit replaces the text in Range with NewText. An edit is scoped to
// one document version; it is consumed exactly once and never cached.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// Document identifies an editor document by URI together with the version
// the editor currently holds. Version increments on every mutation.
type Document struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// CommandHandler is the shape of a registered command. Argument payloads
// arrive from the host as raw JSON; handlers decode their own typed args.
type CommandHandler func(ctx context.Context, args json.RawMessage) error

// Disposable is anything the host tears down on session end.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a plain func to Disposable.
type DisposeFunc func()

// Dispose implements Disposable.
func (f DisposeFunc) Dispose() { f() }

// Editor exposes the document/workspace model of the embedding editor.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use; the bridge calls
//	OpenDocument from independent per-file goroutines during a workspace
//	scan.
type Editor interface {
	// ActiveDocument returns the document with editor focus, or nil when
	// no document is active.
	ActiveDocument() *Document

	// OpenDocument opens (or returns the already-open) document for uri.
	OpenDocument(ctx context.Context, uri string) (Document, error)

	// OpenDocuments returns every currently open document.
	OpenDocuments() []Document

	// WorkspaceRoots returns the workspace root directories, primary first.
	WorkspaceRoots() []string

	// ApplyEdits applies the batch as a single atomic mutation of the
	// document named by uri. It returns false when the document model
	// rejected the mutation without a transport-level error.
	ApplyEdits(ctx context.Context, uri string, edits []TextEdit) (bool, error)
}

// Messenger is the user-visible reporting channel. Failures in this core
// are reported here, never only logged.
type Messenger interface {
	ShowError(message string)
	ShowInformation(message string)
}

// Registrar records commands and teardown hooks with the host's
// lifecycle-subscription list so disposal is automatic on session end.
type Registrar interface {
	RegisterCommand(id string, handler CommandHandler) error
	AddDisposable(d Disposable)
}

// Host is the full surface an embedding provides to the bridge.
type Host interface {
	Editor
	Messenger
	Registrar
}
