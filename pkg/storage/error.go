package storage

import "errors"

// ErrNotFound is returned when a requested record doesn't exist in the store.
var ErrNotFound = errors.New("not found")
