package service

import "errors"

var (
	ErrNoLibraries    = errors.New("no libraries configured")
	ErrSyncInProgress = errors.New("sync of the library is already in progress")
)
