package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// DiscountRepo provides data access to discounts and their usages.  The
// usage cap is enforced by locking the discount row during validation so
// concurrent checkouts see each other's PENDING usages.
type DiscountRepo struct {
    db *sql.DB
}

// NewDiscountRepo returns a DiscountRepo bound to the provided database.
func NewDiscountRepo(db *sql.DB) *DiscountRepo { return &DiscountRepo{db: db} }

const discountColumns = `id, code, discount_type, value, max_usage, usage_count,
       valid_from, valid_to, is_active, all_users, allowed_users, min_ticket_quantity`

func scanDiscount(sc interface{ Scan(...interface{}) error }) (*model.Discount, error) {
    var d model.Discount
    err := sc.Scan(&d.ID, &d.Code, &d.Type, &d.Value, &d.MaxUsage, &d.UsageCount,
        &d.ValidFrom, &d.ValidTo, &d.IsActive, &d.AllUsers, &d.AllowedUsers, &d.MinTicketQuantity)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &d, nil
}

// LockByCodeTx loads a discount by code (case-insensitive) with
// SELECT ... FOR UPDATE.  Holding this lock through the capacity check and
// the usage insert is what keeps usage_count + pending usages ≤ max_usage
// under concurrent checkouts.
func (r *DiscountRepo) LockByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.Discount, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+discountColumns+` FROM discounts WHERE LOWER(code) = LOWER(?) FOR UPDATE`, code)
    return scanDiscount(row)
}

// PendingUsagesTx counts PENDING usages of a discount, excluding the given
// booking (0 excludes nothing).  Pending usages from other checkouts consume
// capacity; a booking's own pending usage must not block its retry.
func (r *DiscountRepo) PendingUsagesTx(ctx context.Context, tx *sql.Tx, discountID, excludeBookingID uint64) (uint32, error) {
    var n uint32
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM discount_usages
          WHERE discount_id = ? AND status = 'PENDING' AND booking_id <> ?`,
        discountID, excludeBookingID).Scan(&n)
    return n, err
}

// CreateUsageTx records a PENDING usage for a booking.  The UNIQUE key on
// booking_id keeps usages one-to-one with bookings.
func (r *DiscountRepo) CreateUsageTx(ctx context.Context, tx *sql.Tx, discountID, bookingID uint64) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO discount_usages (discount_id, booking_id, status) VALUES (?, ?, 'PENDING')`,
        discountID, bookingID)
    if err != nil && isDuplicateKey(err) {
        return ErrConflict
    }
    return err
}

// CompleteUsageTx flips a booking's PENDING usage to COMPLETED and, only if
// a row actually flipped, increments the discount's success counter.  Safe
// to call when no pending usage exists (no-op), which keeps payment
// finalization idempotent.
func (r *DiscountRepo) CompleteUsageTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE discount_usages SET status = 'COMPLETED'
          WHERE booking_id = ? AND status = 'PENDING'`, bookingID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil || n == 0 {
        return err
    }
    _, err = tx.ExecContext(ctx,
        `UPDATE discounts d
           JOIN discount_usages u ON u.discount_id = d.id
            SET d.usage_count = d.usage_count + 1
          WHERE u.booking_id = ?`, bookingID)
    return err
}

// CancelUsageTx flips a booking's PENDING usage to CANCELLED, returning the
// reserved capacity to the pool.  No-op when nothing is pending.
func (r *DiscountRepo) CancelUsageTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE discount_usages SET status = 'CANCELLED'
          WHERE booking_id = ? AND status = 'PENDING'`, bookingID)
    return err
}
