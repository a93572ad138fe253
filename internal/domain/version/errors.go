package version

import "errors"

var (
	// ErrNodeNotFound indicates the owning node doesn't exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrVersionNotFound indicates the requested version number doesn't exist.
	ErrVersionNotFound = errors.New("version not found")
)
