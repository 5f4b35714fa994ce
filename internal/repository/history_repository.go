package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// HistoryRepo appends to the booking_history audit log.  Rows are write-once;
// there are deliberately no update or delete methods here.
type HistoryRepo struct {
    db *sql.DB
}

// NewHistoryRepo returns a HistoryRepo bound to the provided database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// AppendTx writes one audit entry inside the caller's transaction so the
// entry commits atomically with the transition it describes.
func (r *HistoryRepo) AppendTx(ctx context.Context, tx *sql.Tx, h *model.BookingHistory) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO booking_history
            (booking_id, booking_code, action, session_id, client_ip, seats, extra)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        h.BookingID, h.BookingCode, h.Action, h.SessionID, h.ClientIP,
        nullIfEmpty(h.SeatsJSON), nullIfEmpty(h.ExtraJSON))
    return err
}

// Append writes one audit entry outside any transaction, for paths such as
// release where the mutation itself is a single statement.
func (r *HistoryRepo) Append(ctx context.Context, h *model.BookingHistory) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO booking_history
            (booking_id, booking_code, action, session_id, client_ip, seats, extra)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        h.BookingID, h.BookingCode, h.Action, h.SessionID, h.ClientIP,
        nullIfEmpty(h.SeatsJSON), nullIfEmpty(h.ExtraJSON))
    return err
}

// nullIfEmpty maps "" to NULL so empty JSON snapshots do not violate the
// JSON column type.
func nullIfEmpty(s string) interface{} {
    if s == "" {
        return nil
    }
    return s
}
