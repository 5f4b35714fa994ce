package model

import "time"

// Performance statuses.  Only performances in the on-sale state accept
// new seat holds; everything else is rejected at validation time.
const (
    PerformanceScheduled = "scheduled"
    PerformanceOnSale    = "on_sale"
    PerformanceSoldOut   = "sold_out"
    PerformanceCancelled = "cancelled"
    PerformanceCompleted = "completed"
)

// Performance is a single dated staging of a show.  The core treats the
// performance catalog as read-only: pricing knobs and booking limits are
// configured by the box office and only consulted here.
//
// Fields:
//  ID                  – primary key identifier.
//  ShowName            – name of the show being staged.
//  VenueName           – venue where the performance takes place.
//  StartsAt            – curtain time in UTC.
//  Status              – lifecycle state (see constants above).
//  ServiceFeePerTicket – per-ticket service fee in the smallest currency unit.
//  ShippingFee         – flat ticket delivery fee per booking.
//  MaxSeatsPerBooking  – per-session seat cap; 0 falls back to the configured default.
type Performance struct {
    ID                  uint64    // performances.id
    ShowName            string    // performances.show_name
    VenueName           string    // performances.venue_name
    StartsAt            time.Time // performances.starts_at
    Status              string    // performances.status
    ServiceFeePerTicket int64     // performances.service_fee_per_ticket
    ShippingFee         int64     // performances.shipping_fee
    MaxSeatsPerBooking  uint32    // performances.max_seats_per_booking
    CreatedAt           time.Time // performances.created_at
    UpdatedAt           time.Time // performances.updated_at
}

// OnSale reports whether the performance currently accepts seat holds.
// A performance in the past is never on sale regardless of its status.
func (p *Performance) OnSale(now time.Time) bool {
    return p.Status == PerformanceOnSale && p.StartsAt.After(now)
}
