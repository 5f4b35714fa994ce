package model

// SeatRow groups the seats of one physical row.  Seating order within the
// row is a configured sequence (seats.position), not a property of the seat
// label, so venues with odd/even or right-to-left numbering work unchanged.
//
// Fields:
//  ID                – primary key identifier.
//  SectionName       – section the row belongs to, for display labels.
//  Label             – row letter or string ("A", "BB", ...).
//  DefaultPrice      – base price for seats in this row, smallest currency unit.
//  OrphanRuleEnabled – whether the no-orphan-seat rule applies to this row.
type SeatRow struct {
    ID                uint64 // seat_rows.id
    SectionName       string // seat_rows.section_name
    Label             string // seat_rows.label
    DefaultPrice      int64  // seat_rows.default_price
    OrphanRuleEnabled bool   // seat_rows.orphan_rule_enabled
}

// Seat is one sellable seat in the venue catalog.  Seats are immutable once
// the venue is configured; per-performance state lives in seat_reservations.
//
// Fields:
//  ID            – primary key identifier.
//  RowID         – row this seat belongs to.
//  Position      – order of the seat within its row, ascending.
//  Label         – display label within the row ("12", "7A").
//  PriceOverride – optional per-seat price overriding the row default.
//  IsAccessible  – wheelchair-accessible seat flag.
//  IsActive      – inactive seats are hidden from the seat map and cannot be held.
type Seat struct {
    ID            uint64 // seats.id
    RowID         uint64 // seats.row_id
    Position      uint32 // seats.position
    Label         string // seats.label
    PriceOverride *int64 // seats.price_override (nullable)
    IsAccessible  bool   // seats.is_accessible
    IsActive      bool   // seats.is_active
}

// EffectivePrice resolves the price for this seat at hold time: an explicit
// per-performance price wins, then the seat override, then the row default.
func (s *Seat) EffectivePrice(row *SeatRow, performancePrice *int64) int64 {
    if performancePrice != nil {
        return *performancePrice
    }
    if s.PriceOverride != nil {
        return *s.PriceOverride
    }
    if row != nil {
        return row.DefaultPrice
    }
    return 0
}
