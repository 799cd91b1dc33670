// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine channel.
var (
	// ErrClosed indicates a send was attempted on a closed channel.
	// Sends against a closed channel are rejected, never silently dropped.
	ErrClosed = errors.New("protocol channel closed")

	// ErrRequestTimeout indicates the request's context expired before a
	// response arrived.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrEngineCrashed indicates the engine closed its end of the channel
	// unexpectedly.
	ErrEngineCrashed = errors.New("engine channel closed unexpectedly")
)

// RPCError is an error the engine returned via JSON-RPC.
//
// Codes follow the JSON-RPC spec: -32700 parse error, -32600 invalid
// request, -32601 method not found, -32602 invalid params, -32603 internal
// error, -32099..-32000 reserved server errors.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("engine error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// IsMethodNotFound reports whether the engine does not implement the method.
func (e *RPCError) IsMethodNotFound() bool {
	return e.Code == -32601
}

// IsServerError reports whether the code is in the reserved server range.
func (e *RPCError) IsServerError() bool {
	return e.Code >= -32099 && e.Code <= -32000
}
