// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/devskim-tools/editor-bridge/services/devskim/host"
)

// stubHost is the headless host used when the binary runs standalone.
// It has no document model: opens succeed with version 1, edits are
// rejected, and messages print to stderr.
type stubHost struct {
	mu          sync.Mutex
	root        string
	commands    map[string]host.CommandHandler
	disposables []host.Disposable
}

var _ host.Host = (*stubHost)(nil)

func newStubHost(root string) *stubHost {
	return &stubHost{
		root:     root,
		commands: make(map[string]host.CommandHandler),
	}
}

func (s *stubHost) ActiveDocument() *host.Document { return nil }

func (s *stubHost) OpenDocument(_ context.Context, uri string) (host.Document, error) {
	return host.Document{URI: uri, Version: 1}, nil
}

func (s *stubHost) OpenDocuments() []host.Document { return nil }

func (s *stubHost) WorkspaceRoots() []string { return []string{s.root} }

func (s *stubHost) ApplyEdits(context.Context, string, []host.TextEdit) (bool, error) {
	return false, fmt.Errorf("headless host has no document model")
}

func (s *stubHost) ShowError(message string) {
	fmt.Fprintln(os.Stderr, "ERROR:", message)
}

func (s *stubHost) ShowInformation(message string) {
	fmt.Fprintln(os.Stderr, "INFO:", message)
}

func (s *stubHost) RegisterCommand(id string, handler host.CommandHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.commands[id]; exists {
		return fmt.Errorf("command %s already registered", id)
	}
	s.commands[id] = handler
	return nil
}

func (s *stubHost) AddDisposable(d host.Disposable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposables = append(s.disposables, d)
}

// DisposeAll tears down registered subscriptions, latest first.
func (s *stubHost) DisposeAll() {
	s.mu.Lock()
	ds := append([]host.Disposable(nil), s.disposables...)
	s.disposables = nil
	s.mu.Unlock()
	for i := len(ds) - 1; i >= 0; i-- {
		ds[i].Dispose()
	}
}
