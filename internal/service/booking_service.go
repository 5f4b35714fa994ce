package service

import (
    "context"
    "crypto/rand"
    "database/sql"
    "net/mail"
    "strings"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/cache"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

// BookingService assembles bookings from session holds and owns their
// lifecycle up to (but not including) payment finalization.
type BookingService struct {
    catalog      *repository.CatalogRepo
    reservations *repository.SeatReservationRepo
    bookings     *repository.BookingRepo
    payments     *repository.PaymentRepo
    discounts    *DiscountService
    history      *repository.HistoryRepo
    seatMapCache *cache.SeatMap

    paymentTimeout time.Duration

    now func() time.Time
}

// NewBookingService wires the booking service.
func NewBookingService(
    catalog *repository.CatalogRepo,
    reservations *repository.SeatReservationRepo,
    bookings *repository.BookingRepo,
    payments *repository.PaymentRepo,
    discounts *DiscountService,
    history *repository.HistoryRepo,
    seatMapCache *cache.SeatMap,
    paymentTimeout time.Duration,
) *BookingService {
    return &BookingService{
        catalog:        catalog,
        reservations:   reservations,
        bookings:       bookings,
        payments:       payments,
        discounts:      discounts,
        history:        history,
        seatMapCache:   seatMapCache,
        paymentTimeout: paymentTimeout,
        now:            time.Now,
    }
}

// CreateBookingRequest carries one checkout submission.
type CreateBookingRequest struct {
    PerformanceID uint64
    SeatIDs       []uint64
    SessionID     string
    ClientIP      string

    CustomerName  string
    CustomerEmail string
    CustomerPhone string
    CustomerIDNo  string
    CustomerAddr  string
    ShippingTime  string
    DiscountCode  string
    Notes         string
}

// BookedSeatView is one seat in a booking response.
type BookedSeatView struct {
    SeatID  uint64 `json:"seat_id"`
    Row     string `json:"row"`
    Label   string `json:"label"`
    Section string `json:"section"`
    Price   int64  `json:"price"`
}

// BookingView is the customer-facing booking representation.
type BookingView struct {
    BookingCode      string           `json:"booking_code"`
    Status           string           `json:"status"`
    PerformanceID    uint64           `json:"performance_id"`
    CustomerName     string           `json:"customer_name"`
    CustomerEmail    string           `json:"customer_email"`
    CustomerPhone    string           `json:"customer_phone"`
    Seats            []BookedSeatView `json:"seats"`
    TotalAmount      int64            `json:"total_amount"`
    ServiceFee       int64            `json:"service_fee"`
    ShippingFee      int64            `json:"shipping_fee"`
    DiscountAmount   int64            `json:"discount_amount"`
    FinalAmount      int64            `json:"final_amount"`
    ExpiresAt        time.Time        `json:"expires_at"`
    SecondsRemaining int64            `json:"seconds_remaining"`
    PaidAt           *time.Time       `json:"paid_at,omitempty"`
}

// Create turns a session's seat holds into a pending booking.  The session
// must hold every requested seat; as a recovery path, an equivalent set of
// unattached, unexpired holds is adopted when a previous attempt left them
// behind.  Seats, money and the optional discount usage commit atomically.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*BookingView, error) {
    now := s.now().UTC()

    if err := validateCustomer(&req); err != nil {
        return nil, err
    }
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

    tx, err := s.bookings.DB().BeginTx(ctx, nil)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to begin transaction", err)
    }
    defer tx.Rollback()

    held, err := s.reservations.HeldBySessionTx(ctx, tx, req.PerformanceID, seatIDs, req.SessionID, now)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load session holds", err)
    }
    if len(held) != len(seatIDs) {
        // A previous attempt may have detached these holds from the session.
        n, err := s.reservations.AdoptUnattachedTx(ctx, tx, req.PerformanceID, seatIDs, req.SessionID, now)
        if err != nil {
            return nil, Wrap(KindConsistency, "failed to recover holds", err)
        }
        if int(n) != len(seatIDs)-len(held) {
            return nil, E(KindConflict, "your seat holds have expired, please select seats again")
        }
        held, err = s.reservations.HeldBySessionTx(ctx, tx, req.PerformanceID, seatIDs, req.SessionID, now)
        if err != nil {
            return nil, Wrap(KindConsistency, "failed to load session holds", err)
        }
        if len(held) != len(seatIDs) {
            return nil, E(KindConflict, "your seat holds have expired, please select seats again")
        }
    }

    var total int64
    for i := range held {
        total += held[i].Price
    }
    if total <= 0 {
        return nil, E(KindValidation, "booking total must be positive")
    }
    serviceFee := int64(len(held)) * perf.ServiceFeePerTicket
    var shippingFee int64
    if req.CustomerAddr != "" {
        shippingFee = perf.ShippingFee
    }

    expiresAt := now.Add(s.paymentTimeout)
    booking := &model.Booking{
        PerformanceID: req.PerformanceID,
        CustomerName:  req.CustomerName,
        CustomerEmail: req.CustomerEmail,
        CustomerPhone: req.CustomerPhone,
        CustomerIDNo:  req.CustomerIDNo,
        CustomerAddr:  req.CustomerAddr,
        ShippingTime:  req.ShippingTime,
        Status:        model.BookingPending,
        TotalAmount:   total,
        ServiceFee:    serviceFee,
        ShippingFee:   shippingFee,
        FinalAmount:   total + serviceFee + shippingFee,
        SessionID:     req.SessionID,
        ExpiresAt:     expiresAt,
        Notes:         req.Notes,
    }
    if err := s.createWithFreshCode(ctx, tx, booking); err != nil {
        return nil, err
    }

    if req.DiscountCode != "" {
        d, amount, err := s.discounts.ApplyTx(ctx, tx, req.DiscountCode, booking.ID,
            req.CustomerEmail, req.CustomerPhone, len(held), total, now)
        if err != nil {
            return nil, err
        }
        booking.DiscountID = &d.ID
        booking.DiscountAmount = amount
        booking.FinalAmount = total + serviceFee + shippingFee - amount
        if err := s.bookings.SetDiscountTx(ctx, tx, booking.ID, d.ID, amount, booking.FinalAmount); err != nil {
            return nil, Wrap(KindConsistency, "failed to apply discount", err)
        }
    }

    n, err := s.reservations.AttachToBookingTx(ctx, tx, req.PerformanceID, seatIDs, req.SessionID, booking.ID, expiresAt)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to attach seats", err)
    }
    if int(n) != len(seatIDs) {
        // Attaching fewer seats than requested means the ledger moved under
        // us despite the locks.  Abort everything.
        return nil, E(KindConsistency, "seat holds changed during checkout, please try again")
    }

    if err := s.history.AppendTx(ctx, tx, &model.BookingHistory{
        BookingID:   &booking.ID,
        BookingCode: booking.BookingCode,
        Action:      model.ActionCreateBooking,
        SessionID:   req.SessionID,
        ClientIP:    req.ClientIP,
        SeatsJSON:   seatIDsJSON(seatIDs),
    }); err != nil {
        return nil, Wrap(KindConsistency, "failed to record history", err)
    }

    if err := tx.Commit(); err != nil {
        return nil, Wrap(KindConsistency, "failed to commit booking", err)
    }
    s.seatMapCache.Invalidate(ctx, req.PerformanceID)

    return s.view(ctx, booking)
}

// GetByCode returns one booking with its seats and payment countdown.
func (s *BookingService) GetByCode(ctx context.Context, code string) (*BookingView, error) {
    b, err := s.bookings.GetByCode(ctx, code)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil, E(KindNotFound, "booking not found")
        }
        return nil, Wrap(KindConsistency, "failed to load booking", err)
    }
    return s.view(ctx, b)
}

// Cancel voids a pending booking owned by the session and releases its
// seats.  A booking with a payment attempt in flight cannot be cancelled;
// the payment's outcome decides its fate.
func (s *BookingService) Cancel(ctx context.Context, code, sessionID, clientIP string) error {
    tx, err := s.bookings.DB().BeginTx(ctx, nil)
    if err != nil {
        return Wrap(KindConsistency, "failed to begin transaction", err)
    }
    defer tx.Rollback()

    b, err := s.bookings.LockByCodeTx(ctx, tx, code)
    if err != nil {
        if err == repository.ErrNotFound {
            return E(KindNotFound, "booking not found")
        }
        return Wrap(KindConsistency, "failed to load booking", err)
    }
    if b.SessionID == "" || b.SessionID != sessionID {
        return E(KindNotFound, "booking not found")
    }
    if b.Status != model.BookingPending {
        return E(KindValidation, "only pending bookings can be cancelled")
    }
    pending, err := s.payments.HasPendingForBooking(ctx, b.ID)
    if err != nil {
        return Wrap(KindConsistency, "failed to check payments", err)
    }
    if pending {
        return E(KindConflict, "a payment for this booking is still processing")
    }

    if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingCancelled); err != nil {
        return Wrap(KindConsistency, "failed to cancel booking", err)
    }
    if _, err := s.reservations.ReleaseByBookingTx(ctx, tx, b.ID); err != nil {
        return Wrap(KindConsistency, "failed to release seats", err)
    }
    if err := s.discounts.discounts.CancelUsageTx(ctx, tx, b.ID); err != nil {
        return Wrap(KindConsistency, "failed to cancel discount usage", err)
    }
    if err := s.history.AppendTx(ctx, tx, &model.BookingHistory{
        BookingID:   &b.ID,
        BookingCode: b.BookingCode,
        Action:      model.ActionCancelBooking,
        SessionID:   sessionID,
        ClientIP:    clientIP,
    }); err != nil {
        return Wrap(KindConsistency, "failed to record history", err)
    }

    if err := tx.Commit(); err != nil {
        return Wrap(KindConsistency, "failed to commit cancellation", err)
    }
    s.seatMapCache.Invalidate(ctx, b.PerformanceID)
    return nil
}

// Search finds paid bookings by booking code or customer phone for the
// box-office lookup desk.  Only performances from the given date onward are
// searched.
func (s *BookingService) Search(ctx context.Context, query string, since time.Time) ([]BookingView, error) {
    query = strings.TrimSpace(query)
    if query == "" {
        return nil, E(KindValidation, "search query is required")
    }
    found, err := s.bookings.Search(ctx, query, since)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to search bookings", err)
    }
    out := make([]BookingView, 0, len(found))
    for i := range found {
        v, err := s.view(ctx, &found[i])
        if err != nil {
            return nil, err
        }
        out = append(out, *v)
    }
    return out, nil
}

// ExpireStale expires pending bookings whose payment deadline passed more
// than the buffer ago.  Bookings with a payment attempt still pending are
// skipped: the payment-sync sweep owns their outcome, good or bad.  Returns
// the number of bookings expired.
func (s *BookingService) ExpireStale(ctx context.Context, buffer time.Duration, limit int) (int, error) {
    now := s.now().UTC()
    stale, err := s.bookings.ExpiredPending(ctx, now.Add(-buffer), limit)
    if err != nil {
        return 0, Wrap(KindConsistency, "failed to list expired bookings", err)
    }

    expired := 0
    for i := range stale {
        candidate := &stale[i]
        pending, err := s.payments.HasPendingForBooking(ctx, candidate.ID)
        if err != nil {
            return expired, Wrap(KindConsistency, "failed to check payments", err)
        }
        if pending {
            continue
        }
        if err := s.expireOne(ctx, candidate.ID, now.Add(-buffer)); err != nil {
            return expired, err
        }
        expired++
        s.seatMapCache.Invalidate(ctx, candidate.PerformanceID)
    }
    return expired, nil
}

// expireOne expires a single booking under its row lock, rechecking state
// in case a payment settled it between listing and locking.
func (s *BookingService) expireOne(ctx context.Context, bookingID uint64, cutoff time.Time) error {
    tx, err := s.bookings.DB().BeginTx(ctx, nil)
    if err != nil {
        return Wrap(KindConsistency, "failed to begin transaction", err)
    }
    defer tx.Rollback()

    b, err := s.bookings.LockByIDTx(ctx, tx, bookingID)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil
        }
        return Wrap(KindConsistency, "failed to lock booking", err)
    }
    if b.Status != model.BookingPending || !b.ExpiresAt.Before(cutoff) {
        return nil
    }

    if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingExpired); err != nil {
        return Wrap(KindConsistency, "failed to expire booking", err)
    }
    if _, err := s.reservations.ReleaseByBookingTx(ctx, tx, b.ID); err != nil {
        return Wrap(KindConsistency, "failed to release seats", err)
    }
    if err := s.discounts.discounts.CancelUsageTx(ctx, tx, b.ID); err != nil {
        return Wrap(KindConsistency, "failed to cancel discount usage", err)
    }
    if err := s.history.AppendTx(ctx, tx, &model.BookingHistory{
        BookingID:   &b.ID,
        BookingCode: b.BookingCode,
        Action:      model.ActionExpireBooking,
    }); err != nil {
        return Wrap(KindConsistency, "failed to record history", err)
    }
    if err := tx.Commit(); err != nil {
        return Wrap(KindConsistency, "failed to commit expiry", err)
    }
    return nil
}

// view renders the customer-facing representation of a booking.
func (s *BookingService) view(ctx context.Context, b *model.Booking) (*BookingView, error) {
    seats, err := s.reservations.BookingSeats(ctx, b.ID)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to load booking seats", err)
    }
    v := &BookingView{
        BookingCode:      b.BookingCode,
        Status:           b.Status,
        PerformanceID:    b.PerformanceID,
        CustomerName:     b.CustomerName,
        CustomerEmail:    b.CustomerEmail,
        CustomerPhone:    b.CustomerPhone,
        TotalAmount:      b.TotalAmount,
        ServiceFee:       b.ServiceFee,
        ShippingFee:      b.ShippingFee,
        DiscountAmount:   b.DiscountAmount,
        FinalAmount:      b.FinalAmount,
        ExpiresAt:        b.ExpiresAt,
        SecondsRemaining: b.SecondsRemaining(s.now().UTC()),
        PaidAt:           b.PaidAt,
    }
    if b.Status != model.BookingPending {
        v.SecondsRemaining = 0
    }
    for _, seat := range seats {
        v.Seats = append(v.Seats, BookedSeatView{
            SeatID:  seat.SeatID,
            Row:     seat.RowLabel,
            Label:   seat.SeatLabel,
            Section: seat.SectionName,
            Price:   seat.Price,
        })
    }
    return v, nil
}

// createWithFreshCode inserts the booking, regenerating the code on the rare
// duplicate collision.
func (s *BookingService) createWithFreshCode(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    for attempt := 0; attempt < 5; attempt++ {
        code, err := generateBookingCode()
        if err != nil {
            return Wrap(KindConsistency, "failed to generate booking code", err)
        }
        b.BookingCode = code
        err = s.bookings.CreateTx(ctx, tx, b)
        if err == nil {
            return nil
        }
        if err != repository.ErrConflict {
            return Wrap(KindConsistency, "failed to create booking", err)
        }
    }
    return E(KindConsistency, "could not allocate a unique booking code")
}

// bookingCodeCharset omits easily-confused characters.
const bookingCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateBookingCode returns "BK" plus six random characters.
func generateBookingCode() (string, error) {
    buf := make([]byte, 6)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    for i, c := range buf {
        buf[i] = bookingCodeCharset[int(c)%len(bookingCodeCharset)]
    }
    return "BK" + string(buf), nil
}

// validateCustomer checks the checkout form fields.
func validateCustomer(req *CreateBookingRequest) error {
    req.CustomerName = strings.TrimSpace(req.CustomerName)
    req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
    req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
    if req.CustomerName == "" {
        return E(KindValidation, "customer name is required")
    }
    if req.CustomerPhone == "" {
        return E(KindValidation, "customer phone is required")
    }
    if req.CustomerEmail != "" {
        if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
            return E(KindValidation, "customer email is invalid")
        }
    }
    switch req.ShippingTime {
    case "", model.ShippingBusinessHours, model.ShippingAfterHours:
    default:
        return E(KindValidation, "invalid shipping time")
    }
    return nil
}
