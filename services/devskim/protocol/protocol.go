// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package protocol implements the JSON-RPC 2.0 channel between the editor
// bridge and the DevSkim analysis engine, framed with Content-Length
// headers over the engine's stdio pipes (the LSP base protocol).
//
// The DevSkim methods are one-way by contract: the client sends them as
// notifications and never inspects a result. Request/response correlation
// is retained only for the lifecycle handshake (shutdown/exit).
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Handler frames, sends, and receives JSON-RPC messages on one channel.
//
// Thread Safety:
//
//	Safe for concurrent use. Writes are serialized by an internal mutex;
//	ReadLoop must run on a single goroutine.
type Handler struct {
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	nextID    atomic.Int64
	pending   map[int64]chan Response
	pendingMu sync.Mutex

	closed atomic.Bool
}

// NewHandler creates a handler reading engine output from r and writing
// client traffic to w. r may be nil for write-only use in tests.
func NewHandler(r io.Reader, w io.Writer) *Handler {
	h := &Handler{
		writer:  w,
		pending: make(map[int64]chan Response),
	}
	if r != nil {
		h.reader = bufio.NewReader(r)
	}
	return h
}

// Notify sends a notification. No response is expected and none is
// delivered; this is the send path for every DevSkim method.
func (h *Handler) Notify(method string, params interface{}) error {
	if h.closed.Load() {
		return ErrClosed
	}
	err := h.writeMessage(Notification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	})
	recordNotification(method, err)
	return err
}

// Call sends a request and blocks until the engine responds or ctx ends.
func (h *Handler) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if h.closed.Load() {
		return nil, ErrClosed
	}

	id := h.nextID.Add(1)
	respCh := make(chan Response, 1)

	h.pendingMu.Lock()
	h.pending[id] = respCh
	h.pendingMu.Unlock()
	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, id)
		h.pendingMu.Unlock()
	}()

	done := startCallSpan(ctx, method)
	req := Request{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: params}
	if err := h.writeMessage(req); err != nil {
		done(err)
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case <-ctx.Done():
		done(ctx.Err())
		return nil, fmt.Errorf("%w: %v", ErrRequestTimeout, ctx.Err())
	case resp := <-respCh:
		if resp.Error != nil {
			err := &RPCError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
			done(err)
			return nil, err
		}
		done(nil)
		return &resp, nil
	}
}

// ReadLoop consumes engine output until ctx ends or the channel breaks.
// Responses complete pending calls; engine-originated notifications
// (diagnostics and findings) travel on the engine's own channel and are
// not interpreted here.
func (h *Handler) ReadLoop(ctx context.Context) error {
	if h.reader == nil {
		return fmt.Errorf("no reader configured")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		body, err := h.readMessage()
		if err != nil {
			if h.closed.Load() {
				return nil
			}
			if err == io.EOF {
				return ErrEngineCrashed
			}
			return fmt.Errorf("read: %w", err)
		}
		h.dispatch(body)
	}
}

// Close rejects further sends and fails every pending call.
func (h *Handler) Close() {
	h.closed.Store(true)

	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	for id, ch := range h.pending {
		select {
		case ch <- Response{
			JSONRPC: JSONRPCVersion,
			ID:      id,
			Error:   &ResponseError{Code: -32099, Message: "engine connection closed"},
		}:
		default:
		}
		close(ch)
		delete(h.pending, id)
	}
}

func (h *Handler) writeMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if _, err := fmt.Fprintf(h.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := h.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func (h *Handler) readMessage() (json.RawMessage, error) {
	contentLength := 0
	for {
		line, err := h.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "Content-Length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length %q: %w", rest, err)
			}
			if n < 0 {
				return nil, fmt.Errorf("negative Content-Length: %d", n)
			}
			contentLength = n
		}
		// Other headers (Content-Type) are ignored.
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing or zero Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(h.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (h *Handler) dispatch(body json.RawMessage) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == 0 {
		return
	}

	h.pendingMu.Lock()
	ch, ok := h.pending[resp.ID]
	h.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- resp:
	default:
	}
}
