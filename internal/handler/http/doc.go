// Package http implements the REST surface of the reference API server.
//
// It exposes one route tree per library root ("users/<id>/..." and
// "groups/<id>/...") backed by an in-memory [remote.Registry]. API key
// checks, request tracing, access logging and response compression are
// handled by middleware before requests reach the library handlers.
package http
