package repository

import "errors"

// ErrNotFound is returned by updates that matched no row
var ErrNotFound = errors.New("record not found")
