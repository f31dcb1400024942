// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// reference API server handlers and middleware.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies when the underlying error must not be exposed.
package app

const (
	// MsgInternalServerError is returned when an unexpected server-side
	// failure occurs that the client cannot resolve.
	MsgInternalServerError = "internal server error"

	// MsgInvalidGzipData is returned when a request declares gzip encoding
	// but its body cannot be decompressed.
	MsgInvalidGzipData = "Invalid gzip data"

	// MsgMethodNotAllowed is returned for a known route requested with a
	// method it does not serve.
	MsgMethodNotAllowed = "Method Not Allowed"
)
