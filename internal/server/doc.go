// Package server runs the HTTP servers of the applications.
//
// The reference API server and the Prometheus endpoint are both
// [HTTPServer] values. Each one is a [workers.Worker], so the client can
// start and stop its metrics endpoint together with the sync job, while the
// API server binary blocks in [Server.RunServer] until a stop signal arrives.
package server
