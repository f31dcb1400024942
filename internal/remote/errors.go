package remote

import "errors"

var (
	ErrLibraryNotFound    = errors.New("library not found")
	ErrPreconditionFailed = errors.New("library has been modified since the specified version")
	ErrNotModified        = errors.New("library not modified")
	ErrReadOnly           = errors.New("write access denied")
	ErrUnsupportedType    = errors.New("unsupported object type")
	ErrInvalidObject      = errors.New("invalid object")
)
