// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch forwards .clientrc changes to the analysis engine.
//
// Changes to any **/.clientrc under the workspace roots are debounced and
// forwarded as a workspace/didChangeWatchedFiles notification. The engine
// performs the actual synchronization; the watcher only signals.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devskim-tools/editor-bridge/services/devskim/protocol"
)

// watchedName is the file name forwarded to the engine.
const watchedName = ".clientrc"

// Notifier is the outbound side of the engine connection.
type Notifier interface {
	Notify(method string, params interface{}) error
}

// Options configures the watcher.
type Options struct {
	// Debounce is how long to wait for further changes before forwarding
	// a batch. Default 200ms.
	Debounce time.Duration
}

// Watcher watches workspace roots for .clientrc changes.
//
// Thread Safety: safe for concurrent use; Close is idempotent.
type Watcher struct {
	conn     Notifier
	fsw      *fsnotify.Watcher
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher over roots and starts forwarding. Directories
// named .git or node_modules are not descended into.
func New(conn Notifier, roots []string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		conn:     conn,
		fsw:      fsw,
		debounce: opts.Debounce,
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = 200 * time.Millisecond
	}

	for _, root := range roots {
		// A missing or unreadable root would leave the watcher silently
		// dead, so it fails creation rather than being skipped.
		if err := w.addTree(root, true); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	go w.run()
	return w, nil
}

// addTree registers root and every non-ignored subdirectory. When strict,
// an error on root itself is returned; unreadable subtrees are always
// skipped.
func (w *Watcher) addTree(root string, strict bool) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if strict && path == root {
				return err
			}
			slog.Warn("clientrc watch: skipping unreadable path",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return fs.SkipDir
		}
		if !entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if name == ".git" || name == "node_modules" {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// run consumes fsnotify events, debounces .clientrc changes, and forwards
// each batch to the engine.
func (w *Watcher) run() {
	var (
		pending []protocol.FileEvent
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// New directories join the watch so nested .clientrc files
			// are seen.
			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addTree(ev.Name, false)
				}
			}
			if filepath.Base(ev.Name) != watchedName {
				continue
			}
			if change, ok := toFileEvent(ev); ok {
				pending = append(pending, change)
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("clientrc watch error", slog.String("error", err.Error()))

		case <-fire:
			batch := pending
			pending = nil
			fire = nil
			if err := w.conn.Notify(protocol.MethodDidChangeWatchedFiles, protocol.DidChangeWatchedFilesParams{
				Changes: batch,
			}); err != nil {
				slog.Warn("clientrc sync signal failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops the watcher. Idempotent.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
}

// Dispose implements the host Disposable contract.
func (w *Watcher) Dispose() { w.Close() }

func toFileEvent(ev fsnotify.Event) (protocol.FileEvent, bool) {
	uri := "file://" + filepath.ToSlash(ev.Name)
	switch {
	case ev.Op.Has(fsnotify.Create):
		return protocol.FileEvent{URI: uri, Type: protocol.FileCreated}, true
	case ev.Op.Has(fsnotify.Write):
		return protocol.FileEvent{URI: uri, Type: protocol.FileChanged}, true
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		return protocol.FileEvent{URI: uri, Type: protocol.FileDeleted}, true
	}
	return protocol.FileEvent{}, false
}
