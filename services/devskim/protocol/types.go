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

import "encoding/json"

// JSONRPCVersion is the JSON-RPC version used on the engine channel.
const JSONRPCVersion = "2.0"

// Method names that form the wire contract with the analysis engine.
// These strings must match the engine implementation exactly.
const (
	// MethodValidateDocuments asks the engine to (re)analyze the listed
	// documents. Findings come back asynchronously on the engine's own
	// notification channel; the client never inspects a result.
	MethodValidateDocuments = "textDocument/devskim/validatedocuments"

	// MethodValidateRules asks the engine to reload and re-validate its
	// rule set from disk. No payload, no result.
	MethodValidateRules = "devskim/validaterules"

	// MethodDidChangeWatchedFiles forwards watched-file changes
	// (**/.clientrc) as a synchronization signal.
	MethodDidChangeWatchedFiles = "workspace/didChangeWatchedFiles"

	// MethodShutdown and MethodExit implement the teardown handshake.
	MethodShutdown = "shutdown"
	MethodExit     = "exit"
)

// TextDocumentIdentifier names a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// ValidateDocumentsParams is the payload of MethodValidateDocuments. The
// engine validates each listed document independently; there is no ordering
// dependency across documents.
type ValidateDocumentsParams struct {
	TextDocuments []TextDocumentIdentifier `json:"textDocuments"`
}

// FileChangeType mirrors the LSP watched-file change kinds.
type FileChangeType int

const (
	// FileCreated indicates the watched file was created.
	FileCreated FileChangeType = 1

	// FileChanged indicates the watched file was modified.
	FileChanged FileChangeType = 2

	// FileDeleted indicates the watched file was removed.
	FileDeleted FileChangeType = 3
)

// FileEvent is one watched-file change.
type FileEvent struct {
	URI  string         `json:"uri"`
	Type FileChangeType `json:"type"`
}

// DidChangeWatchedFilesParams is the payload of MethodDidChangeWatchedFiles.
type DidChangeWatchedFilesParams struct {
	Changes []FileEvent `json:"changes"`
}

// Request is a JSON-RPC request expecting a response.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Notification is a JSON-RPC message with no ID and no response.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response is a JSON-RPC response. Result and Error are mutually exclusive.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error member of a failed Response.
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
