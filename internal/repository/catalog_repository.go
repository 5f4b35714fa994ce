package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// CatalogRepo provides read-only access to the performance and seating
// catalog.  The booking core never mutates these tables; they are configured
// by the box office out of band.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the provided database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// DB exposes the underlying handle so services can open transactions that
// span several repositories.
func (r *CatalogRepo) DB() *sql.DB { return r.db }

// GetPerformance loads one performance by id.  Returns ErrNotFound when the
// id does not exist.
func (r *CatalogRepo) GetPerformance(ctx context.Context, id uint64) (*model.Performance, error) {
    var p model.Performance
    err := r.db.QueryRowContext(ctx,
        `SELECT id, show_name, venue_name, starts_at, status,
                service_fee_per_ticket, shipping_fee, max_seats_per_booking,
                created_at, updated_at
           FROM performances WHERE id = ?`, id,
    ).Scan(&p.ID, &p.ShowName, &p.VenueName, &p.StartsAt, &p.Status,
        &p.ServiceFeePerTicket, &p.ShippingFee, &p.MaxSeatsPerBooking,
        &p.CreatedAt, &p.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// SeatsByIDs loads active seats by id.  The result may be shorter than the
// input when some ids are unknown or inactive; callers compare lengths to
// detect invalid seat ids.
func (r *CatalogRepo) SeatsByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    query := `SELECT id, row_id, position, label, price_override, is_accessible, is_active
                FROM seats WHERE is_active = 1 AND id IN (` + placeholders(len(ids)) + `)`
    rows, err := r.db.QueryContext(ctx, query, uint64Args(ids)...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Seat
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.RowID, &s.Position, &s.Label,
            &s.PriceOverride, &s.IsAccessible, &s.IsActive); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// RowsByIDs loads seat rows keyed by id.
func (r *CatalogRepo) RowsByIDs(ctx context.Context, ids []uint64) (map[uint64]*model.SeatRow, error) {
    if len(ids) == 0 {
        return map[uint64]*model.SeatRow{}, nil
    }
    query := `SELECT id, section_name, label, default_price, orphan_rule_enabled
                FROM seat_rows WHERE id IN (` + placeholders(len(ids)) + `)`
    rows, err := r.db.QueryContext(ctx, query, uint64Args(ids)...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[uint64]*model.SeatRow, len(ids))
    for rows.Next() {
        var sr model.SeatRow
        if err := rows.Scan(&sr.ID, &sr.SectionName, &sr.Label, &sr.DefaultPrice, &sr.OrphanRuleEnabled); err != nil {
            return nil, err
        }
        out[sr.ID] = &sr
    }
    return out, rows.Err()
}

// ActiveSeatsByRow loads every active seat of the given rows, grouped by row
// and ordered by seating position.  The orphan-seat check simulates row
// occupancy over exactly this sequence.
func (r *CatalogRepo) ActiveSeatsByRow(ctx context.Context, rowIDs []uint64) (map[uint64][]model.Seat, error) {
    if len(rowIDs) == 0 {
        return map[uint64][]model.Seat{}, nil
    }
    query := `SELECT id, row_id, position, label, price_override, is_accessible, is_active
                FROM seats
               WHERE is_active = 1 AND row_id IN (` + placeholders(len(rowIDs)) + `)
               ORDER BY row_id, position`
    rows, err := r.db.QueryContext(ctx, query, uint64Args(rowIDs)...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[uint64][]model.Seat, len(rowIDs))
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.RowID, &s.Position, &s.Label,
            &s.PriceOverride, &s.IsAccessible, &s.IsActive); err != nil {
            return nil, err
        }
        out[s.RowID] = append(out[s.RowID], s)
    }
    return out, rows.Err()
}

// SeatMapRow is one denormalized seat entry for the seat-map projection,
// joining the seat with its row metadata.
type SeatMapRow struct {
    Seat        model.Seat
    RowLabel    string
    SectionName string
    RowPrice    int64
    RowID       uint64
}

// AllActiveSeats returns every active seat with its row context, ordered by
// section, row and position, for the seat-map projection.
func (r *CatalogRepo) AllActiveSeats(ctx context.Context) ([]SeatMapRow, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT s.id, s.row_id, s.position, s.label, s.price_override,
                s.is_accessible, s.is_active,
                sr.label, sr.section_name, sr.default_price
           FROM seats s
           JOIN seat_rows sr ON sr.id = s.row_id
          WHERE s.is_active = 1
          ORDER BY sr.section_name, sr.label, s.position`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []SeatMapRow
    for rows.Next() {
        var m SeatMapRow
        if err := rows.Scan(&m.Seat.ID, &m.Seat.RowID, &m.Seat.Position, &m.Seat.Label,
            &m.Seat.PriceOverride, &m.Seat.IsAccessible, &m.Seat.IsActive,
            &m.RowLabel, &m.SectionName, &m.RowPrice); err != nil {
            return nil, err
        }
        m.RowID = m.Seat.RowID
        out = append(out, m)
    }
    return out, rows.Err()
}

// PerformancePrices returns per-row price overrides for one performance,
// keyed by row id.  Rows without an override use the seat/row base price.
func (r *CatalogRepo) PerformancePrices(ctx context.Context, performanceID uint64) (map[uint64]int64, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT row_id, price FROM performance_prices WHERE performance_id = ?`, performanceID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := map[uint64]int64{}
    for rows.Next() {
        var rowID uint64
        var price int64
        if err := rows.Scan(&rowID, &price); err != nil {
            return nil, err
        }
        out[rowID] = price
    }
    return out, rows.Err()
}

// placeholders returns a comma-separated list of n "?" markers for IN clauses.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    b := make([]byte, 0, n*2-1)
    for i := 0; i < n; i++ {
        if i > 0 {
            b = append(b, ',')
        }
        b = append(b, '?')
    }
    return string(b)
}

// uint64Args converts ids into the []interface{} shape ExecContext expects.
func uint64Args(ids []uint64) []interface{} {
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        args[i] = id
    }
    return args
}
