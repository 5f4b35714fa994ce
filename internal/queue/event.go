// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingPaidEvent is published after a booking's payment is confirmed and
// the surrounding transaction has committed.  It carries enough information
// for downstream consumers to send the confirmation email or feed analytics
// without querying the primary database.
type BookingPaidEvent struct {
    BookingID        uint64   `json:"booking_id"`
    BookingCode      string   `json:"booking_code"`
    PerformanceID    uint64   `json:"performance_id"`
    PerformanceTitle string   `json:"performance_title"`
    StartsAt         string   `json:"starts_at"`
    CustomerName     string   `json:"customer_name"`
    CustomerEmail    string   `json:"customer_email"`
    SeatLabels       []string `json:"seats"`
    FinalAmount      int64    `json:"final_amount"`
    PaidAt           string   `json:"paid_at"`
}
