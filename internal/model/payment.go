package model

import "time"

// Payment statuses.  A booking may accumulate several attempts but at most
// one of them ever reaches "success".
const (
    PaymentPending   = "pending"
    PaymentSuccess   = "success"
    PaymentFailed    = "failed"
    PaymentCancelled = "cancelled"
)

// Payment methods accepted at checkout.
const (
    MethodNinePay = "ninepay"
    MethodBank    = "bank"
)

// Payment is one attempt to charge a booking through the gateway.  The raw
// gateway response is stored verbatim for audit and replay; nothing in it is
// trusted before the callback signature has been verified.
//
// Fields:
//  ID            – primary key identifier.
//  BookingID     – booking this attempt belongs to.
//  TransactionID – our invoice number sent to the gateway, unique.
//  Method        – payment method chosen by the customer.
//  Amount        – amount requested, snapshot of the booking's final amount.
//  Status        – attempt state (see constants above).
//  GatewayTxnID  – transaction number assigned by the gateway, if any.
//  GatewayRaw    – raw gateway response JSON for forensics.
//  PaidAt        – set when the gateway reports success.
type Payment struct {
    ID            uint64     // payments.id
    BookingID     uint64     // payments.booking_id
    TransactionID string     // payments.transaction_id
    Method        string     // payments.method
    Amount        int64      // payments.amount
    Status        string     // payments.status
    GatewayTxnID  string     // payments.gateway_transaction_id
    GatewayRaw    string     // payments.gateway_response
    PaidAt        *time.Time // payments.paid_at (nullable)
    CreatedAt     time.Time  // payments.created_at
    UpdatedAt     time.Time  // payments.updated_at
}
