// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Side is one side of a conflict.
type Side int

const (
	// SideRemote is the default choice presented to the user.
	SideRemote Side = iota
	SideLocal
)

func (s Side) String() string {
	if s == SideLocal {
		return "local"
	}
	return "remote"
}

// ConflictKind classifies a conflict.
type ConflictKind string

const (
	// ConflictFields means both sides changed overlapping fields since the
	// cached ancestor.
	ConflictFields ConflictKind = "fields"
	// ConflictRemoteDeletion means the object was deleted remotely but edited
	// locally.
	ConflictRemoteDeletion ConflictKind = "remote-deletion"
	// ConflictLocalDeletion means the object was erased locally but modified
	// remotely.
	ConflictLocalDeletion ConflictKind = "local-deletion"
)

// Conflict is a single object presented to the interactive resolver.
type Conflict struct {
	Kind      ConflictKind
	Type      ObjectType
	LibraryID int64
	Key       string

	// Ancestor is the cached common ancestor, nil when none is cached.
	Ancestor ObjectData

	// Local is nil when the object was deleted locally.
	Local        ObjectData
	LocalVersion int64

	// Remote is nil when the object was deleted remotely.
	Remote        ObjectData
	RemoteVersion int64

	// Fields lists the fields changed on both sides.
	Fields []string
}

// Resolution is the decision for one conflict.
type Resolution struct {
	Key    string
	Choice Side

	// ApplyToRemaining resolves all later conflicts of the same pass with
	// Choice, without prompting.
	ApplyToRemaining bool
}

// UploadResult is the outcome of an upload phase.
type UploadResult int

const (
	UploadNothing UploadResult = iota
	UploadSuccess
	// UploadRestart means the remote library advanced; the caller must run
	// a download before retrying the upload.
	UploadRestart
)

func (r UploadResult) String() string {
	switch r {
	case UploadNothing:
		return "nothing-to-upload"
	case UploadSuccess:
		return "success"
	case UploadRestart:
		return "restart-required"
	default:
		return "unknown"
	}
}

// VersionsResult is a manifest with the library version it was read at.
type VersionsResult struct {
	LibraryVersion int64
	Versions       map[string]int64
}

// PassResult summarizes one engine pass.
type PassResult struct {
	LibraryID    int64
	Downloaded   int
	Uploaded     int
	Deleted      int
	Conflicts    int
	Queued       int
	Upload       UploadResult
	Version      int64
	Restarts     int
	FullSync     bool
	Upgraded     bool
	Unchanged    bool
	ObjectErrors int
}
