package objectfs

import "errors"

// ErrInvalidRoot is returned by New when the configured root fails §4.11's
// bucket-name validation.
var ErrInvalidRoot = errors.New("invalid object store root")

// ErrNotFound is returned by the store/uploader when the object-store
// service reports the key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidPath is returned when a client path contains characters §4.11
// forbids in a directory name.
var ErrInvalidPath = errors.New("invalid path")
