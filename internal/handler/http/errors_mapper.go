package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-refsync/internal/remote"
)

var errorStatusMap = map[error]int{
	remote.ErrLibraryNotFound:    http.StatusNotFound,
	remote.ErrPreconditionFailed: http.StatusPreconditionFailed,
	remote.ErrNotModified:        http.StatusNotModified,
	remote.ErrReadOnly:           http.StatusForbidden,
	remote.ErrUnsupportedType:    http.StatusBadRequest,
	remote.ErrInvalidObject:      http.StatusBadRequest,

	errInvalidParameter: http.StatusBadRequest,
	errTooManyObjects:   http.StatusRequestEntityTooLarge,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
