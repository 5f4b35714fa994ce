package model

import (
    "strings"
    "time"
)

// Discount value types.
const (
    DiscountPercentage  = "PERCENTAGE"
    DiscountFixedAmount = "FIXED_AMOUNT"
)

// Discount usage statuses.  PENDING usages count toward the usage cap so
// concurrent checkouts cannot oversell a limited code.
const (
    UsagePending   = "PENDING"
    UsageCompleted = "COMPLETED"
    UsageCancelled = "CANCELLED"
)

// Discount is a promo code with an optional usage cap and an optional
// per-user allowlist.  UsageCount only counts COMPLETED usages; in-flight
// PENDING usages are counted separately at validation time.
type Discount struct {
    ID                uint64     // discounts.id
    Code              string     // discounts.code
    Type              string     // discounts.discount_type
    Value             int64      // discounts.value (percent or fixed amount)
    MaxUsage          *uint32    // discounts.max_usage (nullable, nil = unlimited)
    UsageCount        uint32     // discounts.usage_count
    ValidFrom         time.Time  // discounts.valid_from
    ValidTo           *time.Time // discounts.valid_to (nullable)
    IsActive          bool       // discounts.is_active
    AllUsers          bool       // discounts.all_users
    AllowedUsers      string     // discounts.allowed_users (comma-separated emails/phones)
    MinTicketQuantity uint32     // discounts.min_ticket_quantity (0 = no minimum)
}

// EligibleFor checks activity window and the per-user allowlist.  It returns
// a client-facing reason string when the code cannot be used.  Capacity
// against MaxUsage is checked separately under a row lock.
func (d *Discount) EligibleFor(now time.Time, email, phone string) (bool, string) {
    if !d.IsActive {
        return false, "discount code is not active"
    }
    if d.ValidFrom.After(now) {
        return false, "discount code is not yet valid"
    }
    if d.ValidTo != nil && d.ValidTo.Before(now) {
        return false, "discount code has expired"
    }
    if !d.AllUsers {
        if email == "" && phone == "" {
            return false, "customer details are required for this discount code"
        }
        allowed := false
        for _, u := range strings.Split(d.AllowedUsers, ",") {
            u = strings.TrimSpace(u)
            if u != "" && (u == email || u == phone) {
                allowed = true
                break
            }
        }
        if !allowed {
            return false, "you are not eligible for this discount code"
        }
    }
    return true, ""
}

// DiscountUsage links a discount to exactly one booking and tracks whether
// the code's usage counter should be incremented once payment completes.
type DiscountUsage struct {
    ID         uint64    // discount_usages.id
    DiscountID uint64    // discount_usages.discount_id
    BookingID  uint64    // discount_usages.booking_id (unique)
    Status     string    // discount_usages.status
    UsedAt     time.Time // discount_usages.used_at
}
