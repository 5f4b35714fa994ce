package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// BookingRepo provides data access to the bookings table.  Status
// transitions always happen through Tx methods under a prior row lock so
// that the callback handler and the sweeps cannot race each other into a
// lost update.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for transaction management by services.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, booking_code, performance_id, customer_name, customer_email,
       customer_phone, customer_id_number, customer_address, shipping_time, status,
       total_amount, service_fee, shipping_fee, discount_amount, final_amount,
       session_id, discount_id, expires_at, paid_at, notes, created_at, updated_at`

func scanBooking(sc interface{ Scan(...interface{}) error }) (*model.Booking, error) {
    var b model.Booking
    err := sc.Scan(&b.ID, &b.BookingCode, &b.PerformanceID, &b.CustomerName, &b.CustomerEmail,
        &b.CustomerPhone, &b.CustomerIDNo, &b.CustomerAddr, &b.ShippingTime, &b.Status,
        &b.TotalAmount, &b.ServiceFee, &b.ShippingFee, &b.DiscountAmount, &b.FinalAmount,
        &b.SessionID, &b.DiscountID, &b.ExpiresAt, &b.PaidAt, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// CreateTx inserts a new booking inside the provided transaction and fills
// in the generated id.  A duplicate booking code surfaces as ErrConflict so
// the caller can regenerate and retry.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO bookings
            (booking_code, performance_id, customer_name, customer_email, customer_phone,
             customer_id_number, customer_address, shipping_time, status,
             total_amount, service_fee, shipping_fee, discount_amount, final_amount,
             session_id, discount_id, expires_at, notes)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        b.BookingCode, b.PerformanceID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
        b.CustomerIDNo, b.CustomerAddr, b.ShippingTime, b.Status,
        b.TotalAmount, b.ServiceFee, b.ShippingFee, b.DiscountAmount, b.FinalAmount,
        b.SessionID, b.DiscountID, b.ExpiresAt.UTC(), b.Notes)
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
    b.ID = uint64(id)
    return nil
}

// GetByCode loads one booking by its public code.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = ?`, code)
    return scanBooking(row)
}

// LockByIDTx loads one booking with SELECT ... FOR UPDATE.  Every finalize
// path locks the payment first and the booking second; keeping that order
// everywhere is what makes the two sweeps and the callback deadlock-free.
func (r *BookingRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
    return scanBooking(row)
}

// LockByCodeTx is LockByIDTx keyed by booking code, for the cancel endpoint.
func (r *BookingRepo) LockByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.Booking, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = ? FOR UPDATE`, code)
    return scanBooking(row)
}

// SetDiscountTx records the applied discount and the adjusted totals on a
// freshly created booking, inside the creation transaction.
func (r *BookingRepo) SetDiscountTx(ctx context.Context, tx *sql.Tx, id, discountID uint64, discountAmount, finalAmount int64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE bookings
            SET discount_id = ?, discount_amount = ?, final_amount = ?
          WHERE id = ?`,
        discountID, discountAmount, finalAmount, id)
    return err
}

// MarkPaidTx transitions a booking to paid, stamps the payment time and
// clears the owning session: ownership of the seats has passed from the
// session to the finished order.
func (r *BookingRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, paidAt time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE bookings SET status = 'paid', paid_at = ?, session_id = '' WHERE id = ?`,
        paidAt.UTC(), id)
    return err
}

// UpdateStatusTx sets a booking's status (cancelled, expired, refunded).
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
    return err
}

// ExpiredPending lists pending bookings whose payment deadline passed before
// the cutoff, oldest first.  The expiry sweep walks this set and decides per
// booking whether a pending payment still owns its fate.
func (r *BookingRepo) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+`
           FROM bookings
          WHERE status = 'pending' AND expires_at < ?
          ORDER BY expires_at
          LIMIT ?`,
        cutoff.UTC(), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// Search finds paid bookings by exact code or customer phone, restricted to
// performances from the given date onward, newest performance first.
func (r *BookingRepo) Search(ctx context.Context, query string, performancesSince time.Time) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+prefixedBookingColumns("b")+`
           FROM bookings b
           JOIN performances p ON p.id = b.performance_id
          WHERE b.status = 'paid'
            AND (b.booking_code = ? OR b.customer_phone = ?)
            AND p.starts_at >= ?
          ORDER BY p.starts_at DESC`,
        query, query, performancesSince.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// prefixedBookingColumns qualifies the booking column list with a table
// alias for joined queries.
func prefixedBookingColumns(alias string) string {
    return alias + `.id, ` + alias + `.booking_code, ` + alias + `.performance_id, ` +
        alias + `.customer_name, ` + alias + `.customer_email, ` + alias + `.customer_phone, ` +
        alias + `.customer_id_number, ` + alias + `.customer_address, ` + alias + `.shipping_time, ` +
        alias + `.status, ` + alias + `.total_amount, ` + alias + `.service_fee, ` +
        alias + `.shipping_fee, ` + alias + `.discount_amount, ` + alias + `.final_amount, ` +
        alias + `.session_id, ` + alias + `.discount_id, ` + alias + `.expires_at, ` +
        alias + `.paid_at, ` + alias + `.notes, ` + alias + `.created_at, ` + alias + `.updated_at`
}
