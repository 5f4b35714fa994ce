package model

import "time"

// Booking statuses.  Transitions are owned by the booking and payment
// services: pending → paid via payment finalization only, pending →
// cancelled/expired releases every attached seat reservation.
const (
    BookingPending   = "pending"
    BookingPaid      = "paid"
    BookingCancelled = "cancelled"
    BookingExpired   = "expired"
    BookingRefunded  = "refunded"
)

// Ticket delivery windows offered at checkout.
const (
    ShippingBusinessHours = "business_hours"
    ShippingAfterHours    = "after_hours"
)

// Booking is one customer-facing order referencing a set of seat
// reservations.  All monetary fields are integers in the smallest currency
// unit and must satisfy FinalAmount = TotalAmount + ServiceFee + ShippingFee
// − DiscountAmount at all times.
//
// Fields:
//  ID             – primary key identifier.
//  BookingCode    – unique human-shareable code ("BK" + 6 chars).
//  PerformanceID  – performance the tickets are for.
//  CustomerName   – purchaser name.
//  CustomerEmail  – purchaser email, used for the confirmation message.
//  CustomerPhone  – purchaser phone, also a lookup key for support.
//  CustomerIDNo   – optional national id for will-call pickup.
//  CustomerAddr   – delivery address when tickets are shipped.
//  ShippingTime   – preferred delivery window.
//  Status         – lifecycle state (see constants above).
//  TotalAmount    – sum of the reserved seat prices.
//  ServiceFee     – seat count × per-ticket service fee.
//  ShippingFee    – flat delivery fee from the performance config.
//  DiscountAmount – applied discount, never exceeding TotalAmount.
//  FinalAmount    – amount actually charged.
//  SessionID      – session that created the booking; cleared once paid.
//  DiscountID     – discount applied to this booking, if any.
//  ExpiresAt      – payment deadline; a pending booking past it is a zombie
//                   the expiry sweep must resolve.
//  PaidAt         – set exactly once by payment finalization.
//  Notes          – free-form customer note.
type Booking struct {
    ID             uint64     // bookings.id
    BookingCode    string     // bookings.booking_code
    PerformanceID  uint64     // bookings.performance_id
    CustomerName   string     // bookings.customer_name
    CustomerEmail  string     // bookings.customer_email
    CustomerPhone  string     // bookings.customer_phone
    CustomerIDNo   string     // bookings.customer_id_number
    CustomerAddr   string     // bookings.customer_address
    ShippingTime   string     // bookings.shipping_time
    Status         string     // bookings.status
    TotalAmount    int64      // bookings.total_amount
    ServiceFee     int64      // bookings.service_fee
    ShippingFee    int64      // bookings.shipping_fee
    DiscountAmount int64      // bookings.discount_amount
    FinalAmount    int64      // bookings.final_amount
    SessionID      string     // bookings.session_id
    DiscountID     *uint64    // bookings.discount_id (nullable)
    ExpiresAt      time.Time  // bookings.expires_at
    PaidAt         *time.Time // bookings.paid_at (nullable)
    Notes          string     // bookings.notes
    CreatedAt      time.Time  // bookings.created_at
    UpdatedAt      time.Time  // bookings.updated_at
}

// SecondsRemaining returns the countdown until the payment deadline for the
// client timer, clamped at zero.
func (b *Booking) SecondsRemaining(now time.Time) int64 {
    secs := int64(b.ExpiresAt.Sub(now).Seconds())
    if secs < 0 {
        return 0
    }
    return secs
}
