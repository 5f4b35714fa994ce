package service

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/cache"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

// ReservationService owns session seat holds and the seat-map projection.
// Every mutation runs in a single transaction that starts with lazy expiry
// cleanup, so correctness never depends on the background sweeps.
type ReservationService struct {
    catalog      *repository.CatalogRepo
    reservations *repository.SeatReservationRepo
    history      *repository.HistoryRepo
    seatMapCache *cache.SeatMap

    holdTTL         time.Duration
    defaultSeatsCap int

    now func() time.Time
}

// NewReservationService wires the reservation service.
func NewReservationService(
    catalog *repository.CatalogRepo,
    reservations *repository.SeatReservationRepo,
    history *repository.HistoryRepo,
    seatMapCache *cache.SeatMap,
    holdTTL time.Duration,
    defaultSeatsCap int,
) *ReservationService {
    return &ReservationService{
        catalog:         catalog,
        reservations:    reservations,
        history:         history,
        seatMapCache:    seatMapCache,
        holdTTL:         holdTTL,
        defaultSeatsCap: defaultSeatsCap,
        now:             time.Now,
    }
}

// SeatMapSeat is one seat in the seat-map response.
type SeatMapSeat struct {
    SeatID     uint64 `json:"seat_id"`
    Label      string `json:"label"`
    Status     string `json:"status"`
    Price      int64  `json:"price"`
    Accessible bool   `json:"accessible,omitempty"`
}

// SeatMapRow is one row of seats in the seat-map response.
type SeatMapRow struct {
    Section string        `json:"section"`
    Row     string        `json:"row"`
    Seats   []SeatMapSeat `json:"seats"`
}

// SeatMapView is the full seat-map response for one performance.
type SeatMapView struct {
    PerformanceID uint64       `json:"performance_id"`
    ShowName      string       `json:"show_name"`
    VenueName     string       `json:"venue_name"`
    StartsAt      time.Time    `json:"starts_at"`
    Status        string       `json:"status"`
    Rows          []SeatMapRow `json:"rows"`
}

// SeatMapJSON returns the rendered seat map for a performance, serving from
// the cache when possible.  Expired session holds render as available even
// before any cleanup has touched them.
func (s *ReservationService) SeatMapJSON(ctx context.Context, performanceID uint64) ([]byte, error) {
    if payload, ok := s.seatMapCache.Get(ctx, performanceID); ok {
        return payload, nil
    }

    view, err := s.buildSeatMap(ctx, performanceID)
    if err != nil {
        return nil, err
    }
    payload, err := json.Marshal(view)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to render seat map", err)
    }
    s.seatMapCache.Set(ctx, performanceID, payload)
    return payload, nil
}

func (s *ReservationService) buildSeatMap(ctx context.Context, performanceID uint64) (*SeatMapView, error) {
    now := s.now().UTC()

    perf, err := s.catalog.GetPerformance(ctx, performanceID)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil, E(KindNotFound, "performance not found")
        }
        return nil, Wrap(KindConsistency, "failed to load performance", err)
    }

    ledger, err := s.reservations.ActiveByPerformance(ctx, performanceID)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load seat ledger", err)
    }
    statusBySeat := make(map[uint64]string, len(ledger))
    priceBySeat := make(map[uint64]int64, len(ledger))
    for i := range ledger {
        r := &ledger[i]
        if r.Expired(now) && r.BookingID == nil {
            continue // stale hold, still available to buyers
        }
        statusBySeat[r.SeatID] = r.Status
        priceBySeat[r.SeatID] = r.Price
    }

    seats, err := s.catalog.AllActiveSeats(ctx)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load seating catalog", err)
    }
    prices, err := s.catalog.PerformancePrices(ctx, performanceID)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load performance prices", err)
    }

    view := &SeatMapView{
        PerformanceID: perf.ID,
        ShowName:      perf.ShowName,
        VenueName:     perf.VenueName,
        StartsAt:      perf.StartsAt,
        Status:        perf.Status,
    }
    var cur *SeatMapRow
    for _, m := range seats {
        if cur == nil || cur.Section != m.SectionName || cur.Row != m.RowLabel {
            view.Rows = append(view.Rows, SeatMapRow{Section: m.SectionName, Row: m.RowLabel})
            cur = &view.Rows[len(view.Rows)-1]
        }
        status, held := statusBySeat[m.Seat.ID]
        price := priceBySeat[m.Seat.ID]
        if !held {
            status = model.SeatAvailable
            row := model.SeatRow{DefaultPrice: m.RowPrice}
            var perfPrice *int64
            if p, ok := prices[m.RowID]; ok {
                perfPrice = &p
            }
            price = m.Seat.EffectivePrice(&row, perfPrice)
        }
        cur.Seats = append(cur.Seats, SeatMapSeat{
            SeatID:     m.Seat.ID,
            Label:      m.Seat.Label,
            Status:     status,
            Price:      price,
            Accessible: m.Seat.IsAccessible,
        })
    }
    return view, nil
}

// ReserveRequest carries one reserve call.
type ReserveRequest struct {
    PerformanceID uint64
    SeatIDs       []uint64
    SessionID     string
    ClientIP      string
}

// HeldSeat is one successfully held seat in the reserve response.
type HeldSeat struct {
    SeatID  uint64 `json:"seat_id"`
    Row     string `json:"row"`
    Label   string `json:"label"`
    Section string `json:"section"`
    Price   int64  `json:"price"`
}

// ReserveResult reports the session's new holds and their shared deadline.
type ReserveResult struct {
    Seats     []HeldSeat `json:"seats"`
    ExpiresAt time.Time  `json:"expires_at"`
}

// Reserve places session holds on the requested seats.  The whole request
// succeeds or fails as a unit: one unavailable seat rejects everything.
// Adding seats to an existing selection reuses the selection's deadline so
// all of a session's holds expire together.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
    now := s.now().UTC()

    seatIDs := dedupe(req.SeatIDs)
    if len(seatIDs) == 0 {
        return nil, E(KindValidation, "no seats requested")
    }

    perf, err := s.catalog.GetPerformance(ctx, req.PerformanceID)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil, E(KindNotFound, "performance not found")
        }
        return nil, Wrap(KindConsistency, "failed to load performance", err)
    }
    if !perf.OnSale(now) {
        return nil, E(KindValidation, "performance is not on sale")
    }

    seats, err := s.catalog.SeatsByIDs(ctx, seatIDs)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load seats", err)
    }
    if len(seats) != len(seatIDs) {
        return nil, E(KindValidation, "one or more seats are unknown or inactive")
    }
    seatByID := make(map[uint64]*model.Seat, len(seats))
    rowIDSet := map[uint64]struct{}{}
    for i := range seats {
        seatByID[seats[i].ID] = &seats[i]
        rowIDSet[seats[i].RowID] = struct{}{}
    }
    rowIDs := keys(rowIDSet)

    rowsByID, err := s.catalog.RowsByIDs(ctx, rowIDs)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load seat rows", err)
    }
    prices, err := s.catalog.PerformancePrices(ctx, req.PerformanceID)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load performance prices", err)
    }

    tx, err := s.reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to begin transaction", err)
    }
    defer tx.Rollback()

    // Lazy cleanup first so an expired hold never blocks a sale.
    if _, err := s.reservations.ReleaseExpiredTx(ctx, tx, req.PerformanceID, now); err != nil {
        return nil, Wrap(KindConsistency, "failed to clean expired holds", err)
    }

    existing, err := s.reservations.SessionHoldsTx(ctx, tx, req.PerformanceID, req.SessionID, now)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load session holds", err)
    }

    seatCap := s.defaultSeatsCap
    if perf.MaxSeatsPerBooking > 0 {
        seatCap = int(perf.MaxSeatsPerBooking)
    }
    if selectionSize(existing, seatIDs) > seatCap {
        return nil, E(KindValidation, fmt.Sprintf("a booking may hold at most %d seats", seatCap))
    }

    locked, err := s.reservations.LockSeatsTx(ctx, tx, req.PerformanceID, seatIDs)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to lock seats", err)
    }
    lockedBySeat := make(map[uint64]*model.SeatReservation, len(locked))
    for i := range locked {
        lockedBySeat[locked[i].SeatID] = &locked[i]
    }
    for _, id := range seatIDs {
        r, ok := lockedBySeat[id]
        if !ok {
            continue // first contact, insert below
        }
        switch r.Status {
        case model.SeatSold, model.SeatBlocked:
            return nil, E(KindConflict, "one or more seats are no longer available")
        case model.SeatReserved:
            if r.BookingID != nil {
                return nil, E(KindConflict, "one or more seats are no longer available")
            }
            if r.SessionID != req.SessionID && !r.Expired(now) {
                return nil, E(KindConflict, "one or more seats are no longer available")
            }
        }
    }

    // Orphan-seat rule: simulate each affected row after this selection.
    occupied, err := s.reservations.OccupiedSeatIDsInRowsTx(ctx, tx, req.PerformanceID, rowIDs)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load row occupancy", err)
    }
    picked := map[uint64]struct{}{}
    for _, id := range seatIDs {
        picked[id] = struct{}{}
    }
    rowSeats, err := s.catalog.ActiveSeatsByRow(ctx, rowIDs)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load row seating", err)
    }
    for _, rowID := range rowIDs {
        row := rowsByID[rowID]
        if row == nil || !row.OrphanRuleEnabled {
            continue
        }
        if stranded := orphanSeats(rowSeats[rowID], occupied, picked); len(stranded) > 0 {
            return nil, E(KindValidation,
                "selection would leave seats stranded: "+strings.Join(seatLabels(row.Label, stranded), ", "))
        }
    }

    // All of a session's holds share one deadline; adding seats inherits it.
    expiresAt := now.Add(s.holdTTL)
    for i := range existing {
        if existing[i].BookingID == nil && existing[i].ExpiresAt != nil {
            expiresAt = existing[i].ExpiresAt.UTC()
            break
        }
    }

    result := &ReserveResult{ExpiresAt: expiresAt}
    for _, id := range seatIDs {
        seat := seatByID[id]
        row := rowsByID[seat.RowID]
        var perfPrice *int64
        if p, ok := prices[seat.RowID]; ok {
            perfPrice = &p
        }
        hold := &model.SeatReservation{
            PerformanceID: req.PerformanceID,
            SeatID:        id,
            SessionID:     req.SessionID,
            Price:         seat.EffectivePrice(row, perfPrice),
            ExpiresAt:     &expiresAt,
            ClientIP:      req.ClientIP,
        }
        if _, exists := lockedBySeat[id]; exists {
            err = s.reservations.TakeOverHoldTx(ctx, tx, hold)
        } else {
            err = s.reservations.InsertHoldTx(ctx, tx, hold)
        }
        if err != nil {
            if err == repository.ErrConflict {
                return nil, E(KindConflict, "one or more seats are no longer available")
            }
            return nil, Wrap(KindConsistency, "failed to write seat hold", err)
        }
        result.Seats = append(result.Seats, HeldSeat{
            SeatID:  id,
            Row:     row.Label,
            Label:   seat.Label,
            Section: row.SectionName,
            Price:   hold.Price,
        })
    }

    if err := s.history.AppendTx(ctx, tx, &model.BookingHistory{
        Action:    model.ActionReserveSeats,
        SessionID: req.SessionID,
        ClientIP:  req.ClientIP,
        SeatsJSON: seatIDsJSON(seatIDs),
    }); err != nil {
        return nil, Wrap(KindConsistency, "failed to record history", err)
    }

    if err := tx.Commit(); err != nil {
        return nil, Wrap(KindConsistency, "failed to commit seat holds", err)
    }
    s.seatMapCache.Invalidate(ctx, req.PerformanceID)
    return result, nil
}

// Release frees the given seats if they are held by this session and not yet
// attached to a booking.  Releasing an already-free seat is a no-op, so the
// endpoint is safe to retry.
func (s *ReservationService) Release(ctx context.Context, performanceID uint64, sessionID, clientIP string, seatIDs []uint64) (int64, error) {
    seatIDs = dedupe(seatIDs)
    if len(seatIDs) == 0 {
        return 0, E(KindValidation, "no seats requested")
    }
    n, err := s.reservations.Release(ctx, performanceID, sessionID, seatIDs)
    if err != nil {
        return 0, Wrap(KindConsistency, "failed to release seats", err)
    }
    if n > 0 {
        _ = s.history.Append(ctx, &model.BookingHistory{
            Action:    model.ActionReleaseSeats,
            SessionID: sessionID,
            ClientIP:  clientIP,
            SeatsJSON: seatIDsJSON(seatIDs),
        })
        s.seatMapCache.Invalidate(ctx, performanceID)
    }
    return n, nil
}

// SessionSelection restores a session's live selection for one performance,
// typically after a page reload.
func (s *ReservationService) SessionSelection(ctx context.Context, performanceID uint64, sessionID string) ([]repository.SessionReservedSeat, error) {
    seats, err := s.reservations.SessionReservations(ctx, performanceID, sessionID, s.now().UTC())
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load session holds", err)
    }
    return seats, nil
}

// SweepExpiredHolds is the background variant of the lazy per-request
// cleanup, covering all performances at once.  Returns the number of ledger
// rows freed.
func (s *ReservationService) SweepExpiredHolds(ctx context.Context) (int64, error) {
    n, err := s.reservations.ReleaseExpiredHolds(ctx, s.now().UTC())
    if err != nil {
        return 0, Wrap(KindConsistency, "failed to sweep expired holds", err)
    }
    return n, nil
}

// selectionSize is the number of distinct seats the session would hold after
// adding the requested ids to its existing holds.  Re-requesting an already
// held seat does not count twice, so extending a hold never trips the cap.
func selectionSize(existing []model.SeatReservation, seatIDs []uint64) int {
    union := make(map[uint64]struct{}, len(existing)+len(seatIDs))
    for i := range existing {
        union[existing[i].SeatID] = struct{}{}
    }
    for _, id := range seatIDs {
        union[id] = struct{}{}
    }
    return len(union)
}

// dedupe returns the ids with duplicates removed, preserving order.
func dedupe(ids []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(ids))
    out := ids[:0:0]
    for _, id := range ids {
        if _, ok := seen[id]; ok {
            continue
        }
        seen[id] = struct{}{}
        out = append(out, id)
    }
    return out
}

// keys returns the map's keys as a slice.
func keys(m map[uint64]struct{}) []uint64 {
    out := make([]uint64, 0, len(m))
    for k := range m {
        out = append(out, k)
    }
    return out
}
