package service

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

// DiscountService validates and applies promo codes.  Capacity is enforced
// under the discount's row lock: in-flight PENDING usages of other bookings
// count toward the cap, so a limited code can never be promised twice.
type DiscountService struct {
    discounts *repository.DiscountRepo
}

// NewDiscountService wires the discount service.
func NewDiscountService(discounts *repository.DiscountRepo) *DiscountService {
    return &DiscountService{discounts: discounts}
}

// ApplyTx validates a code for the given customer and order, computes the
// discount amount and records a PENDING usage for the booking.  It must run
// inside the booking-creation transaction, after the booking row exists.
// The returned amount never exceeds ticketTotal.
func (s *DiscountService) ApplyTx(
    ctx context.Context,
    tx *sql.Tx,
    code string,
    bookingID uint64,
    email, phone string,
    ticketCount int,
    ticketTotal int64,
    now time.Time,
) (*model.Discount, int64, error) {
    d, err := s.discounts.LockByCodeTx(ctx, tx, code)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil, 0, E(KindValidation, "discount code not found")
        }
        return nil, 0, Wrap(KindConsistency, "failed to load discount", err)
    }

    if ok, reason := d.EligibleFor(now, email, phone); !ok {
        return nil, 0, E(KindValidation, reason)
    }
    if d.MinTicketQuantity > 0 && ticketCount < int(d.MinTicketQuantity) {
        return nil, 0, E(KindValidation,
            fmt.Sprintf("discount code requires at least %d tickets", d.MinTicketQuantity))
    }

    if d.MaxUsage != nil {
        pending, err := s.discounts.PendingUsagesTx(ctx, tx, d.ID, bookingID)
        if err != nil {
            return nil, 0, Wrap(KindConsistency, "failed to count discount usage", err)
        }
        if d.UsageCount+pending >= *d.MaxUsage {
            return nil, 0, E(KindConflict, "discount code has reached its usage limit")
        }
    }

    amount := discountAmount(d, ticketTotal)

    if err := s.discounts.CreateUsageTx(ctx, tx, d.ID, bookingID); err != nil {
        if err == repository.ErrConflict {
            return nil, 0, E(KindConflict, "discount already applied to this booking")
        }
        return nil, 0, Wrap(KindConsistency, "failed to record discount usage", err)
    }
    return d, amount, nil
}

// discountAmount computes the value of a discount against the ticket total.
// Percentages are rounded to the nearest unit; the result is capped at the
// ticket total so fees are never discounted and the charge never goes
// negative.
func discountAmount(d *model.Discount, ticketTotal int64) int64 {
    var amount int64
    switch d.Type {
    case model.DiscountPercentage:
        amount = (ticketTotal*d.Value + 50) / 100
    case model.DiscountFixedAmount:
        amount = d.Value
    }
    if amount > ticketTotal {
        amount = ticketTotal
    }
    if amount < 0 {
        amount = 0
    }
    return amount
}
