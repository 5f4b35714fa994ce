package model

import "time"

// Seat reservation statuses.  A row with status "reserved" and no booking
// attached is a session hold; with a booking attached it is pending payment.
// "sold" is terminal, "available" is the reset state and "blocked" marks
// seats withheld from sale by the box office.
const (
    SeatAvailable = "available"
    SeatReserved  = "reserved"
    SeatSold      = "sold"
    SeatBlocked   = "blocked"
)

// SeatReservation is the authoritative ledger row for one (performance, seat)
// pair.  The UNIQUE(performance_id, seat_id) constraint is the ultimate
// race-breaker: even if application logic slips, the store rejects a second
// claim for the same seat.
//
// Fields:
//  ID            – primary key identifier.
//  PerformanceID – performance this ledger row belongs to.
//  SeatID        – seat being tracked.
//  BookingID     – booking that claimed this hold, nil while it is a session hold.
//  Status        – ledger state (see constants above).
//  SessionID     – session currently holding the seat, empty when not held.
//  Price         – price snapshot taken at hold time; later catalog price
//                  changes never affect an existing hold.
//  ExpiresAt     – hold deadline; nil unless status is "reserved".
//  ClientIP      – requesting client address, kept for the audit trail.
type SeatReservation struct {
    ID            uint64     // seat_reservations.id
    PerformanceID uint64     // seat_reservations.performance_id
    SeatID        uint64     // seat_reservations.seat_id
    BookingID     *uint64    // seat_reservations.booking_id (nullable)
    Status        string     // seat_reservations.status
    SessionID     string     // seat_reservations.session_id
    Price         int64      // seat_reservations.price
    ExpiresAt     *time.Time // seat_reservations.expires_at (nullable)
    ClientIP      string     // seat_reservations.client_ip
    ReservedAt    time.Time  // seat_reservations.reserved_at
    UpdatedAt     time.Time  // seat_reservations.updated_at
}

// Expired reports whether a session hold has passed its deadline.  Only
// reserved rows carry a deadline; sold and blocked rows never expire.
func (r *SeatReservation) Expired(now time.Time) bool {
    return r.Status == SeatReserved && r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
