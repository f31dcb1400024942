// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client application runtime.
//
// It wires the local store, the API adapter, the sync engines, the terminal
// conflict resolver and the background workers into a single process
// lifecycle. One process at a time may own a store; the ownership is held
// with a lock file next to the database.
package client
