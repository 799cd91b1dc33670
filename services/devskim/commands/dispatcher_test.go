// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devskim-tools/editor-bridge/services/devskim/host"
	"github.com/devskim-tools/editor-bridge/services/devskim/host/hosttest"
	"github.com/devskim-tools/editor-bridge/services/devskim/protocol"
)

type sentMessage struct {
	Method string
	Params interface{}
}

// fakeNotifier records Notify calls; safe for concurrent use.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Notify(method string, params interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Method: method, Params: params})
	return nil
}

func (f *fakeNotifier) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func edits(n int) []host.TextEdit {
	out := make([]host.TextEdit, n)
	for i := range out {
		out[i] = host.TextEdit{
			Range:   host.Range{Start: host.Position{Line: i}, End: host.Position{Line: i, Character: 5}},
			NewText: "redacted",
		}
	}
	return out
}

func TestApplySingleFix_MatchingVersionAppliesAtomically(t *testing.T) {
	h := hosttest.NewFake()
	h.Active = &host.Document{URI: "file:///src/main.go", Version: 3}
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ApplySingleFix(context.Background(), "file:///src/main.go", 3, edits(2))
	require.NoError(t, err)

	applied := h.Applied()
	require.Len(t, applied, 1, "one atomic batch")
	assert.Equal(t, "file:///src/main.go", applied[0].URI)
	assert.Len(t, applied[0].Edits, 2)
	assert.Empty(t, h.Infos())
	assert.Empty(t, h.Errors())
}

func TestApplySingleFix_StaleVersionRejected(t *testing.T) {
	h := hosttest.NewFake()
	h.Active = &host.Document{URI: "file:///src/main.go", Version: 4}
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ApplySingleFix(context.Background(), "file:///src/main.go", 3, edits(2))
	require.NoError(t, err, "stale edits are recoverable, not an error")

	assert.Empty(t, h.Applied(), "no mutation on version mismatch")
	require.Len(t, h.Infos(), 1, "exactly one informational message")
	assert.Empty(t, h.Errors())
}

func TestApplySingleFix_WrongActiveDocumentSkips(t *testing.T) {
	h := hosttest.NewFake()
	h.Active = &host.Document{URI: "file:///src/other.go", Version: 3}
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ApplySingleFix(context.Background(), "file:///src/main.go", 3, edits(1))
	require.NoError(t, err)

	assert.Empty(t, h.Applied())
	assert.Empty(t, h.Infos())
	assert.Empty(t, h.Errors())
}

func TestApplySingleFix_NoActiveDocumentSkips(t *testing.T) {
	h := hosttest.NewFake()
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ApplySingleFix(context.Background(), "file:///src/main.go", 1, edits(1))
	require.NoError(t, err)
	assert.Empty(t, h.Applied())
}

func TestApplySingleFix_RejectedByDocumentModel(t *testing.T) {
	h := hosttest.NewFake()
	h.Active = &host.Document{URI: "file:///src/main.go", Version: 1}
	h.ApplyResult = false
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ApplySingleFix(context.Background(), "file:///src/main.go", 1, edits(1))
	require.Error(t, err)
	require.Len(t, h.Errors(), 1)
	assert.Contains(t, h.Errors()[0], "defect report")
}

func TestApplySingleFix_ApplyError(t *testing.T) {
	h := hosttest.NewFake()
	h.Active = &host.Document{URI: "file:///src/main.go", Version: 1}
	h.ApplyErr = errors.New("document closed mid-apply")
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ApplySingleFix(context.Background(), "file:///src/main.go", 1, edits(1))
	require.Error(t, err)
	require.Len(t, h.Errors(), 1)
}

func TestScanWorkspace_OneRequestPerFileSkippingGit(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "main.go"))
	mustWrite(t, filepath.Join(root, "sub", "util.py"))
	mustWrite(t, filepath.Join(root, ".git", "config"))
	mustWrite(t, filepath.Join(root, "vendor.git", "hook.sh"))

	n := &fakeNotifier{}
	h := hosttest.NewFake()
	h.Roots = []string{root}
	d := NewDispatcher(n, h)

	require.NoError(t, d.ScanWorkspace(context.Background()))

	require.Eventually(t, func() bool {
		return len(n.Sent()) == 2
	}, 2*time.Second, 10*time.Millisecond, "one request per non-git file")

	for _, msg := range n.Sent() {
		assert.Equal(t, protocol.MethodValidateDocuments, msg.Method)
		params, ok := msg.Params.(protocol.ValidateDocumentsParams)
		require.True(t, ok)
		require.Len(t, params.TextDocuments, 1, "each request names exactly one document")
		assert.NotContains(t, params.TextDocuments[0].URI, ".git")
	}
}

func TestScanWorkspace_EnumerationFailureIsFatal(t *testing.T) {
	h := hosttest.NewFake()
	h.Roots = []string{filepath.Join(t.TempDir(), "does-not-exist")}
	d := NewDispatcher(&fakeNotifier{}, h)

	err := d.ScanWorkspace(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumerate workspace files")
}

func TestScanWorkspace_NoRoots(t *testing.T) {
	n := &fakeNotifier{}
	d := NewDispatcher(n, hosttest.NewFake())

	require.NoError(t, d.ScanWorkspace(context.Background()))
	assert.Empty(t, n.Sent())
}

func TestReloadRules_SingleEmptyRequest(t *testing.T) {
	n := &fakeNotifier{}
	d := NewDispatcher(n, hosttest.NewFake())

	require.NoError(t, d.ReloadRules())

	sent := n.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.MethodValidateRules, sent[0].Method)
	assert.Nil(t, sent[0].Params)
}

func TestReloadRules_ConnectionDownPropagates(t *testing.T) {
	n := &fakeNotifier{err: errors.New("engine connection not running")}
	d := NewDispatcher(n, hosttest.NewFake())

	require.Error(t, d.ReloadRules())
}

func TestRegister_BindsAllThreeCommands(t *testing.T) {
	h := hosttest.NewFake()
	d := NewDispatcher(&fakeNotifier{}, h)

	require.NoError(t, d.Register(h))

	for _, id := range []string{CommandApplySingleFix, CommandScanWorkspace, CommandReloadRules} {
		assert.NotNil(t, h.Command(id), "command %s should be registered", id)
	}
}

func TestRegisteredApplySingleFix_DecodesArgs(t *testing.T) {
	h := hosttest.NewFake()
	h.Active = &host.Document{URI: "file:///a.go", Version: 2}
	d := NewDispatcher(&fakeNotifier{}, h)
	require.NoError(t, d.Register(h))

	args, err := json.Marshal(applySingleFixArgs{
		URI:             "file:///a.go",
		DocumentVersion: 2,
		Edits:           edits(1),
	})
	require.NoError(t, err)

	handler := h.Command(CommandApplySingleFix)
	require.NoError(t, handler(context.Background(), args))
	require.Len(t, h.Applied(), 1)
}

func TestRegisteredApplySingleFix_BadArgs(t *testing.T) {
	h := hosttest.NewFake()
	d := NewDispatcher(&fakeNotifier{}, h)
	require.NoError(t, d.Register(h))

	handler := h.Command(CommandApplySingleFix)
	err := handler(context.Background(), json.RawMessage(`{"uri": 42}`))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode"))
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content\n"), 0o644))
}
