// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hosttest provides a scripted in-memory host.Host for tests.
package hosttest

import (
	"context"
	"sync"

	"github.com/devskim-tools/editor-bridge/services/devskim/host"
)

// EditBatch records one ApplyEdits call.
type EditBatch struct {
	URI   string
	Edits []host.TextEdit
}

// Fake is an in-memory host.Host. Zero value is usable. All fields guarded
// by mu; safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	Active *host.Document
	Open   []host.Document
	Roots  []string

	// ApplyResult/ApplyErr script the outcome of ApplyEdits.
	ApplyResult bool
	ApplyErr    error

	// OpenErr, when set, fails every OpenDocument call.
	OpenErr error

	applied     []EditBatch
	errors      []string
	infos       []string
	commands    map[string]host.CommandHandler
	disposables []host.Disposable
}

var _ host.Host = (*Fake)(nil)

// NewFake returns a Fake whose ApplyEdits succeeds.
func NewFake() *Fake {
	return &Fake{ApplyResult: true}
}

func (f *Fake) ActiveDocument() *host.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Active == nil {
		return nil
	}
	doc := *f.Active
	return &doc
}

func (f *Fake) OpenDocument(_ context.Context, uri string) (host.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return host.Document{}, f.OpenErr
	}
	for _, d := range f.Open {
		if d.URI == uri {
			return d, nil
		}
	}
	doc := host.Document{URI: uri, Version: 1}
	f.Open = append(f.Open, doc)
	return doc, nil
}

func (f *Fake) OpenDocuments() []host.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]host.Document, len(f.Open))
	copy(out, f.Open)
	return out
}

// SetOpen replaces the open-document list, simulating documents opened
// after activation.
func (f *Fake) SetOpen(docs []host.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Open = append([]host.Document(nil), docs...)
}

func (f *Fake) WorkspaceRoots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Roots...)
}

func (f *Fake) ApplyEdits(_ context.Context, uri string, edits []host.TextEdit) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplyErr != nil {
		return false, f.ApplyErr
	}
	if f.ApplyResult {
		f.applied = append(f.applied, EditBatch{URI: uri, Edits: edits})
	}
	return f.ApplyResult, nil
}

func (f *Fake) ShowError(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
}

func (f *Fake) ShowInformation(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, message)
}

func (f *Fake) RegisterCommand(id string, handler host.CommandHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commands == nil {
		f.commands = make(map[string]host.CommandHandler)
	}
	f.commands[id] = handler
	return nil
}

func (f *Fake) AddDisposable(d host.Disposable) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposables = append(f.disposables, d)
}

// Applied returns a copy of every recorded ApplyEdits batch.
func (f *Fake) Applied() []EditBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EditBatch(nil), f.applied...)
}

// Errors returns every ShowError message so far.
func (f *Fake) Errors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

// Infos returns every ShowInformation message so far.
func (f *Fake) Infos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.infos...)
}

// Command returns the registered handler for id, or nil.
func (f *Fake) Command(id string) host.CommandHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[id]
}

// DisposeAll runs every registered disposable, latest first.
func (f *Fake) DisposeAll() {
	f.mu.Lock()
	ds := append([]host.Disposable(nil), f.disposables...)
	f.mu.Unlock()
	for i := len(ds) - 1; i >= 0; i-- {
		ds[i].Dispose()
	}
}
