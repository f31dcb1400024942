// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors used by the auth middleware when reading the API key.
// Callers can match against them with [errors.Is].
var (
	// ErrEmptyAPIKey is returned when the request carries neither the
	// "Zotero-API-Key" header nor an "Authorization" header.
	ErrEmptyAPIKey = errors.New("no API key provided")

	// ErrInvalidAuthorizationHeader is returned when the "Authorization"
	// header cannot be split into a scheme and a key.
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	// ErrEmptyToken is returned when the "Authorization" header has the
	// scheme prefix but no key.
	ErrEmptyToken = errors.New("empty key in `Authorization` header")

	// ErrInvalidAPIKey is returned when the key does not match.
	ErrInvalidAPIKey = errors.New("invalid API key")

	errInvalidParameter = errors.New("invalid parameter")
	errTooManyObjects   = errors.New("too many objects in request")
)
