package model

import "time"

// Audit actions recorded in booking_history.
const (
    ActionReserveSeats     = "reserve_seats"
    ActionReleaseSeats     = "release_seats"
    ActionCreateBooking    = "create_booking"
    ActionCancelBooking    = "cancel_booking"
    ActionExpireBooking    = "expire_booking"
    ActionPaymentSucceeded = "payment_succeeded"
    ActionPaymentFailed    = "payment_failed"
)

// BookingHistory is an append-only audit record of a state transition.  Rows
// are never updated or deleted; SeatsJSON snapshots the affected seats at the
// moment of the action so past states can be reconstructed after the ledger
// has moved on.  Not load-bearing for correctness, forensics only.
type BookingHistory struct {
    ID          uint64    // booking_history.id
    BookingID   *uint64   // booking_history.booking_id (nullable for pre-booking actions)
    BookingCode string    // booking_history.booking_code
    Action      string    // booking_history.action
    SessionID   string    // booking_history.session_id
    ClientIP    string    // booking_history.client_ip
    SeatsJSON   string    // booking_history.seats (JSON snapshot)
    ExtraJSON   string    // booking_history.extra (JSON)
    CreatedAt   time.Time // booking_history.created_at
}
