package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// PaymentRepo provides data access to the payments table.  A booking may
// hold several attempts; the UNIQUE transaction_id ties each attempt to the
// gateway invoice it was created for.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle for transaction management by services.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

const paymentColumns = `id, booking_id, transaction_id, method, amount, status,
       gateway_transaction_id, COALESCE(gateway_response, ''), paid_at, created_at, updated_at`

func scanPayment(sc interface{ Scan(...interface{}) error }) (*model.Payment, error) {
    var p model.Payment
    err := sc.Scan(&p.ID, &p.BookingID, &p.TransactionID, &p.Method, &p.Amount, &p.Status,
        &p.GatewayTxnID, &p.GatewayRaw, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// CreateTx inserts a new pending payment attempt inside the caller's
// transaction.  Callers hold the booking's row lock while inserting, so a
// concurrent cancel cannot slip between the status check and this write.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO payments (booking_id, transaction_id, method, amount, status)
         VALUES (?, ?, ?, ?, ?)`,
        p.BookingID, p.TransactionID, p.Method, p.Amount, p.Status)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return nil
}

// GetByTransactionID loads one payment by our invoice number.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ?`, transactionID)
    return scanPayment(row)
}

// LockByIDTx loads one payment with SELECT ... FOR UPDATE.  Finalization
// branches on the status only after this lock is held, which is what makes
// a callback/sweep race resolve into exactly one effective processing.
func (r *PaymentRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Payment, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+paymentColumns+` FROM payments WHERE id = ? FOR UPDATE`, id)
    return scanPayment(row)
}

// MarkSuccessTx records a gateway-confirmed payment with its timestamp, the
// gateway's own transaction number and the raw response for audit.
func (r *PaymentRepo) MarkSuccessTx(ctx context.Context, tx *sql.Tx, id uint64, gatewayTxnID, raw string, paidAt time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE payments
            SET status = 'success', gateway_transaction_id = ?, gateway_response = ?, paid_at = ?
          WHERE id = ?`,
        gatewayTxnID, raw, paidAt.UTC(), id)
    return err
}

// MarkFailedTx records a failed or conflicted attempt together with the raw
// gateway response that triggered it.
func (r *PaymentRepo) MarkFailedTx(ctx context.Context, tx *sql.Tx, id uint64, raw string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE payments SET status = 'failed', gateway_response = ? WHERE id = ?`,
        raw, id)
    return err
}

// PendingOlderThan lists pending payments created before the cutoff, oldest
// first.  The payment-sync sweep queries the gateway for each of these.
func (r *PaymentRepo) PendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.Payment, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+paymentColumns+`
           FROM payments
          WHERE status = 'pending' AND created_at <= ?
          ORDER BY created_at
          LIMIT ?`,
        cutoff.UTC(), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Payment
    for rows.Next() {
        p, err := scanPayment(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    return out, rows.Err()
}

// HasPendingForBooking reports whether any attempt for the booking is still
// pending.  The booking-expiry sweep skips such bookings; the payment-sync
// sweep owns their fate.
func (r *PaymentRepo) HasPendingForBooking(ctx context.Context, bookingID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        `SELECT 1 FROM payments WHERE booking_id = ? AND status = 'pending' LIMIT 1`,
        bookingID).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062), the store-level signal behind unique booking codes,
// transaction ids and the seat ledger key.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}
