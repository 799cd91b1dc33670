// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

import "errors"

// Sentinel errors for the engine connection.
var (
	// ErrNotRunning indicates a send was attempted while the connection is
	// not in the running state.
	ErrNotRunning = errors.New("engine connection not running")

	// ErrEngineNotFound indicates the engine binary was not found on PATH.
	ErrEngineNotFound = errors.New("engine binary not found")

	// ErrAlreadyStarted indicates Start was called more than once.
	ErrAlreadyStarted = errors.New("engine connection already started")
)
