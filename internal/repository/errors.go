// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as services
// and handlers to distinguish between failure scenarios without string
// matching.  ErrNotFound maps to HTTP 404, ErrConflict to 409.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Callers decide
// whether a missing row is an error (booking lookup) or a no-op (release).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update collides with existing
// state, such as a duplicate booking code or a seat row claimed by another
// session between check and write.
var ErrConflict = errors.New("conflict")
