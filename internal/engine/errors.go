package engine

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-refsync/models"
)

var (
	// ErrUserCancelled is returned by a Resolver when the user dismisses the
	// conflict prompt. The pass unwinds without advancing the watermark.
	ErrUserCancelled = errors.New("conflict resolution cancelled by user")
	// ErrRestartLimit means the remote library kept advancing during upload.
	ErrRestartLimit = errors.New("upload restart limit reached")

	ErrUnknownItemType        = errors.New("unknown item type")
	ErrUnknownSearchCondition = errors.New("unknown search condition")
	ErrUnknownSearchOperator  = errors.New("unknown search operator")
	ErrMissingParent          = errors.New("parent object is missing")
	ErrInvalidPayload         = errors.New("invalid object payload")
	ErrObjectConflict         = errors.New("object conflict reported by server")
	ErrObjectRejected         = errors.New("object rejected by server")
)

// errRemoteReset is raised by the download phase when the server reports a
// library version lower than the local watermark.
var errRemoteReset = errors.New("remote library version is lower than local")

// ObjectError is a failure that affects a single object. When Queue is set
// the key was added to the sync queue and is retried by a later pass.
type ObjectError struct {
	Type      models.ObjectType
	LibraryID int64
	Key       string
	Queue     bool
	Err       error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s %s in library %d: %v", e.Type, e.Key, e.LibraryID, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}
