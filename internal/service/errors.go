// Package service implements the booking core: seat holds, booking
// assembly, discounts and payment finalization.  Services own transaction
// boundaries; repositories never commit.
package service

import "fmt"

// Kind classifies a service error for the HTTP layer.
type Kind int

const (
    // KindValidation marks rejected input: bad seat ids, ineligible
    // discount codes, a performance not on sale.  Maps to 400/422.
    KindValidation Kind = iota
    // KindNotFound marks a missing entity.  Maps to 404.
    KindNotFound
    // KindConflict marks a lost race: seat taken, hold expired under the
    // caller, discount capacity exhausted.  Maps to 409.
    KindConflict
    // KindConsistency marks an internal invariant violation, such as a
    // partial attach.  The transaction is aborted; maps to 500.
    KindConsistency
    // KindUnavailable marks a dependency failure (gateway, broker).
    // Maps to 502/503.
    KindUnavailable
)

// Error is the typed error services return to handlers.  Message is safe to
// show to the client; Err carries the underlying cause for logs.
type Error struct {
    Kind    Kind
    Message string
    Err     error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %v", e.Message, e.Err)
    }
    return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a service error with the given kind and client-facing message.
func E(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches an underlying cause to a service error.
func Wrap(kind Kind, msg string, err error) *Error {
    return &Error{Kind: kind, Message: msg, Err: err}
}
