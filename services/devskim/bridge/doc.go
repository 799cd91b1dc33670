// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bridge owns the connection to the DevSkim analysis engine.
//
// A Connection launches the engine as a child process with the resolved
// settings snapshot injected into its environment, wires the process stdio
// into the JSON-RPC protocol handler, and exposes send operations that are
// rejected whenever the connection is not running.
//
// # Lifecycle
//
// Exactly one Connection exists per editor session. It moves through
// uninitialized → starting → running → disposed and never back; a disposed
// connection is not restartable. The Connection is constructed once during
// activation and handed to its consumers explicitly — there is no
// package-level instance.
//
// # Launch modes
//
// The engine is launched in a normal mode or, with Options.Debug, a debug
// mode carrying extra inspection flags. The mode changes only how the
// process is launched, never the protocol spoken to it.
//
// # Thread Safety
//
// Connection is safe for concurrent use after construction. All outbound
// traffic serializes through the underlying protocol handler; there is no
// alternate channel.
package bridge
