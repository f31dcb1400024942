// Package utils provides general-purpose helper utilities
// used across different parts of the application.
// Includes tools for working with context, type-safe keys, object key
// generation, HTTP response writing and HTTP client initialization.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

var (
	// LibraryIDCtxKey is the key used to store the local library identifier
	// of the running sync pass in the context.
	LibraryIDCtxKey = contextKey("libraryID")

	// PassIDCtxKey is the key used to store the identifier of the running
	// sync pass in the context.
	PassIDCtxKey = contextKey("passID")
)

// WithLibraryID returns a copy of ctx carrying the library identifier.
func WithLibraryID(ctx context.Context, libraryID int64) context.Context {
	return context.WithValue(ctx, LibraryIDCtxKey, libraryID)
}

// GetLibraryIDFromContext retrieves the library identifier from the context.
//
// Returns the library ID of type int64 and an ok flag:
//   - ok == true:  value is found and has the correct int64 type
//   - ok == false: value is missing or has an unexpected type
func GetLibraryIDFromContext(ctx context.Context) (int64, bool) {
	libraryID, ok := ctx.Value(LibraryIDCtxKey).(int64)
	return libraryID, ok
}

// WithPassID returns a copy of ctx carrying the sync pass identifier.
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, PassIDCtxKey, passID)
}

// GetPassIDFromContext retrieves the sync pass identifier from the context.
func GetPassIDFromContext(ctx context.Context) (string, bool) {
	passID, ok := ctx.Value(PassIDCtxKey).(string)
	return passID, ok
}
