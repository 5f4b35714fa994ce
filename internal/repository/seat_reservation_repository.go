package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// SeatReservationRepo owns the seat ledger: one row per (performance, seat)
// pair, protected by a UNIQUE constraint.  All timestamps are UTC.  Methods
// with a Tx suffix run inside a caller-provided transaction; the caller is
// responsible for committing or rolling back.
type SeatReservationRepo struct {
    db *sql.DB
}

// NewSeatReservationRepo returns a SeatReservationRepo bound to the database.
func NewSeatReservationRepo(db *sql.DB) *SeatReservationRepo {
    return &SeatReservationRepo{db: db}
}

// DB exposes the underlying handle for transaction management by services.
func (r *SeatReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, performance_id, seat_id, booking_id, status, session_id,
       price, expires_at, client_ip, reserved_at, updated_at`

func scanReservation(sc interface{ Scan(...interface{}) error }) (*model.SeatReservation, error) {
    var res model.SeatReservation
    err := sc.Scan(&res.ID, &res.PerformanceID, &res.SeatID, &res.BookingID,
        &res.Status, &res.SessionID, &res.Price, &res.ExpiresAt, &res.ClientIP,
        &res.ReservedAt, &res.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &res, nil
}

func collectReservations(rows *sql.Rows) ([]model.SeatReservation, error) {
    defer rows.Close()
    var out []model.SeatReservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// ActiveByPerformance returns the reserved, sold and blocked ledger rows for
// one performance.  Used by the seat-map projection; one query gives a
// consistent snapshot, so no seat can appear with two conflicting statuses.
func (r *SeatReservationRepo) ActiveByPerformance(ctx context.Context, performanceID uint64) ([]model.SeatReservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+`
           FROM seat_reservations
          WHERE performance_id = ? AND status IN ('reserved','sold','blocked')`,
        performanceID)
    if err != nil {
        return nil, err
    }
    return collectReservations(rows)
}

// ReleaseExpiredTx resets expired session holds of one performance that are
// not attached to any booking.  This is the lazy cleanup executed at the top
// of every reserve call, so correctness never depends on sweep scheduling.
func (r *SeatReservationRepo) ReleaseExpiredTx(ctx context.Context, tx *sql.Tx, performanceID uint64, now time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations
            SET status = 'available', session_id = '', expires_at = NULL, client_ip = ''
          WHERE performance_id = ? AND status = 'reserved'
            AND expires_at < ? AND booking_id IS NULL`,
        performanceID, now.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// SessionHoldsTx returns the session's live holds for one performance
// (reserved, unexpired, regardless of booking attachment).  Used for the
// seat-cap union check.
func (r *SeatReservationRepo) SessionHoldsTx(ctx context.Context, tx *sql.Tx, performanceID uint64, sessionID string, now time.Time) ([]model.SeatReservation, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT `+reservationColumns+`
           FROM seat_reservations
          WHERE performance_id = ? AND session_id = ? AND status = 'reserved'
            AND expires_at > ?`,
        performanceID, sessionID, now.UTC())
    if err != nil {
        return nil, err
    }
    return collectReservations(rows)
}

// LockSeatsTx locks the existing ledger rows for the given seats with
// SELECT ... FOR UPDATE so concurrent reserve calls for the same seats
// serialize at the store.  Seats without a ledger row yet are not returned;
// the UNIQUE key arbitrates their first insert instead.
func (r *SeatReservationRepo) LockSeatsTx(ctx context.Context, tx *sql.Tx, performanceID uint64, seatIDs []uint64) ([]model.SeatReservation, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    args := append([]interface{}{performanceID}, uint64Args(seatIDs)...)
    rows, err := tx.QueryContext(ctx,
        `SELECT `+reservationColumns+`
           FROM seat_reservations
          WHERE performance_id = ? AND seat_id IN (`+placeholders(len(seatIDs))+`)
            FOR UPDATE`,
        args...)
    if err != nil {
        return nil, err
    }
    return collectReservations(rows)
}

// OccupiedSeatIDsInRowsTx returns seat ids of the given rows that currently
// count as occupied (reserved, sold or blocked) for one performance.  Feeds
// the orphan-seat simulation.
func (r *SeatReservationRepo) OccupiedSeatIDsInRowsTx(ctx context.Context, tx *sql.Tx, performanceID uint64, rowIDs []uint64) (map[uint64]struct{}, error) {
    if len(rowIDs) == 0 {
        return map[uint64]struct{}{}, nil
    }
    args := append([]interface{}{performanceID}, uint64Args(rowIDs)...)
    rows, err := tx.QueryContext(ctx,
        `SELECT sr.seat_id
           FROM seat_reservations sr
           JOIN seats s ON s.id = sr.seat_id
          WHERE sr.performance_id = ? AND s.row_id IN (`+placeholders(len(rowIDs))+`)
            AND sr.status IN ('reserved','sold','blocked')`,
        args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    occupied := map[uint64]struct{}{}
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        occupied[id] = struct{}{}
    }
    return occupied, rows.Err()
}

// InsertHoldTx writes the first ledger row for a seat.  Two racing first
// inserts are arbitrated by the UNIQUE(performance_id, seat_id) key: the
// loser gets ErrConflict.  Callers use this only for seats LockSeatsTx did
// not return.
func (r *SeatReservationRepo) InsertHoldTx(ctx context.Context, tx *sql.Tx, res *model.SeatReservation) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO seat_reservations
            (performance_id, seat_id, booking_id, status, session_id, price, expires_at, client_ip)
         VALUES (?, ?, NULL, 'reserved', ?, ?, ?, ?)`,
        res.PerformanceID, res.SeatID, res.SessionID, res.Price,
        res.ExpiresAt.UTC(), res.ClientIP)
    if err != nil && isDuplicateKey(err) {
        return ErrConflict
    }
    return err
}

// TakeOverHoldTx rewrites an existing ledger row as this session's hold.
// Only valid while the caller holds the row lock from LockSeatsTx and has
// verified the row is free to claim (available, or an expired or own hold).
func (r *SeatReservationRepo) TakeOverHoldTx(ctx context.Context, tx *sql.Tx, res *model.SeatReservation) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations
            SET booking_id = NULL, status = 'reserved', session_id = ?,
                price = ?, expires_at = ?, client_ip = ?
          WHERE performance_id = ? AND seat_id = ?`,
        res.SessionID, res.Price, res.ExpiresAt.UTC(), res.ClientIP,
        res.PerformanceID, res.SeatID)
    return err
}

// Release resets the given seats of one performance back to available, but
// only those held by this session and not yet attached to a booking.
// Releasing seats that are mid-payment is the bug class this guard exists
// for, and the performance scope keeps a seat id shared across performances
// from releasing more than the caller named.  A release matching zero rows
// is a successful no-op.
func (r *SeatReservationRepo) Release(ctx context.Context, performanceID uint64, sessionID string, seatIDs []uint64) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    args := append([]interface{}{performanceID, sessionID}, uint64Args(seatIDs)...)
    res, err := r.db.ExecContext(ctx,
        `UPDATE seat_reservations
            SET status = 'available', session_id = '', expires_at = NULL, client_ip = ''
          WHERE performance_id = ? AND session_id = ? AND seat_id IN (`+placeholders(len(seatIDs))+`)
            AND status = 'reserved' AND booking_id IS NULL`,
        args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// SessionReservedSeat is one live hold joined with its seat labels, used to
// restore a session's selection after a page refresh.
type SessionReservedSeat struct {
    SeatID      uint64
    RowLabel    string
    SeatLabel   string
    SectionName string
    Price       int64
    ExpiresAt   time.Time
}

// SessionReservations lists the session's live, booking-less holds for one
// performance with display labels.
func (r *SeatReservationRepo) SessionReservations(ctx context.Context, performanceID uint64, sessionID string, now time.Time) ([]SessionReservedSeat, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT sr.seat_id, row_.label, s.label, row_.section_name, sr.price, sr.expires_at
           FROM seat_reservations sr
           JOIN seats s ON s.id = sr.seat_id
           JOIN seat_rows row_ ON row_.id = s.row_id
          WHERE sr.performance_id = ? AND sr.session_id = ? AND sr.status = 'reserved'
            AND sr.booking_id IS NULL AND sr.expires_at > ?`,
        performanceID, sessionID, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []SessionReservedSeat
    for rows.Next() {
        var s SessionReservedSeat
        if err := rows.Scan(&s.SeatID, &s.RowLabel, &s.SeatLabel, &s.SectionName, &s.Price, &s.ExpiresAt); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// BookedSeat is one seat attached to a booking, joined with display labels.
type BookedSeat struct {
    SeatID      uint64
    RowLabel    string
    SeatLabel   string
    SectionName string
    Price       int64
    Status      string
}

// BookingSeats lists the seats attached to a booking with display labels,
// ordered by section, row and position.
func (r *SeatReservationRepo) BookingSeats(ctx context.Context, bookingID uint64) ([]BookedSeat, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT sr.seat_id, row_.label, s.label, row_.section_name, sr.price, sr.status
           FROM seat_reservations sr
           JOIN seats s ON s.id = sr.seat_id
           JOIN seat_rows row_ ON row_.id = s.row_id
          WHERE sr.booking_id = ?
          ORDER BY row_.section_name, row_.label, s.position`, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []BookedSeat
    for rows.Next() {
        var s BookedSeat
        if err := rows.Scan(&s.SeatID, &s.RowLabel, &s.SeatLabel, &s.SectionName, &s.Price, &s.Status); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// HeldBySessionTx locks and returns the reservations for the given seats that
// are currently reserved by this session and unexpired.  Booking creation
// verifies ownership through this method before attaching.
func (r *SeatReservationRepo) HeldBySessionTx(ctx context.Context, tx *sql.Tx, performanceID uint64, seatIDs []uint64, sessionID string, now time.Time) ([]model.SeatReservation, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    args := append([]interface{}{performanceID, sessionID, now.UTC()}, uint64Args(seatIDs)...)
    rows, err := tx.QueryContext(ctx,
        `SELECT `+reservationColumns+`
           FROM seat_reservations
          WHERE performance_id = ? AND session_id = ? AND status = 'reserved'
            AND expires_at > ? AND seat_id IN (`+placeholders(len(seatIDs))+`)
            FOR UPDATE`,
        args...)
    if err != nil {
        return nil, err
    }
    return collectReservations(rows)
}

// AdoptUnattachedTx re-attaches an equivalent set of unexpired, booking-less,
// session-less holds to the given session.  This recovers the race where a
// previous booking attempt failed after detaching the holds from their
// session.  A seat currently held by another session never matches.  Returns
// the number of rows adopted; the caller requires it to equal the seat count.
func (r *SeatReservationRepo) AdoptUnattachedTx(ctx context.Context, tx *sql.Tx, performanceID uint64, seatIDs []uint64, sessionID string, now time.Time) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    args := append([]interface{}{sessionID, performanceID, now.UTC()}, uint64Args(seatIDs)...)
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations
            SET session_id = ?
          WHERE performance_id = ? AND status = 'reserved' AND booking_id IS NULL
            AND session_id = '' AND expires_at > ? AND seat_id IN (`+placeholders(len(seatIDs))+`)`,
        args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// AttachToBookingTx claims the session's holds for a booking: sets the
// booking reference and extends the hold to the booking's payment deadline.
// Status stays "reserved" until payment finalizes.  The returned count must
// equal the requested seat count or the caller aborts the transaction.
func (r *SeatReservationRepo) AttachToBookingTx(ctx context.Context, tx *sql.Tx, performanceID uint64, seatIDs []uint64, sessionID string, bookingID uint64, expiresAt time.Time) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    args := append([]interface{}{bookingID, expiresAt.UTC(), performanceID, sessionID}, uint64Args(seatIDs)...)
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations
            SET booking_id = ?, expires_at = ?
          WHERE performance_id = ? AND session_id = ? AND status = 'reserved'
            AND booking_id IS NULL AND seat_id IN (`+placeholders(len(seatIDs))+`)`,
        args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// BookingSeatIDsTx re-derives the seat ids attached to a booking.  Payment
// finalization works from this authoritative set, never from client input.
func (r *SeatReservationRepo) BookingSeatIDsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT seat_id FROM seat_reservations WHERE booking_id = ?`, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out = append(out, id)
    }
    return out, rows.Err()
}

// ClaimedElsewhereTx returns seat ids among the given set that are sold or
// reserved under a different booking for the same performance.  With the
// UNIQUE ledger key this should be impossible, which is exactly why payment
// finalization checks it before marking anything sold.
func (r *SeatReservationRepo) ClaimedElsewhereTx(ctx context.Context, tx *sql.Tx, performanceID uint64, seatIDs []uint64, bookingID uint64) ([]uint64, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    args := append([]interface{}{performanceID, bookingID}, uint64Args(seatIDs)...)
    rows, err := tx.QueryContext(ctx,
        `SELECT seat_id
           FROM seat_reservations
          WHERE performance_id = ? AND status IN ('reserved','sold')
            AND booking_id IS NOT NULL AND booking_id <> ?
            AND seat_id IN (`+placeholders(len(seatIDs))+`)`,
        args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        out = append(out, id)
    }
    return out, rows.Err()
}

// MarkSoldByBookingTx transitions every reservation of a booking to sold.
func (r *SeatReservationRepo) MarkSoldByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations SET status = 'sold' WHERE booking_id = ?`, bookingID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ReleaseByBookingTx resets every reservation of a booking back to available,
// clearing session, expiry and the booking reference.  Used on cancel,
// expiry and payment failure; callers rely on it releasing the full set.
func (r *SeatReservationRepo) ReleaseByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations
            SET status = 'available', session_id = '', expires_at = NULL,
                booking_id = NULL, client_ip = ''
          WHERE booking_id = ?`, bookingID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ReleaseExpiredHolds is the sweep variant of the lazy per-request cleanup:
// it resets expired, booking-less holds across all performances and also
// frees rows still pointing at bookings that have since been cancelled or
// expired.  Both statements are idempotent.
func (r *SeatReservationRepo) ReleaseExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE seat_reservations
            SET status = 'available', session_id = '', expires_at = NULL, client_ip = ''
          WHERE status = 'reserved' AND expires_at < ? AND booking_id IS NULL`,
        now.UTC())
    if err != nil {
        return 0, err
    }
    n1, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    res, err = r.db.ExecContext(ctx,
        `UPDATE seat_reservations sr
           JOIN bookings b ON b.id = sr.booking_id
            SET sr.status = 'available', sr.session_id = '', sr.expires_at = NULL,
                sr.booking_id = NULL, sr.client_ip = ''
          WHERE sr.status = 'reserved' AND b.status IN ('cancelled','expired')`)
    if err != nil {
        return n1, err
    }
    n2, err := res.RowsAffected()
    return n1 + n2, err
}
