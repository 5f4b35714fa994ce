package service

import (
    "context"
    "database/sql"
    "log"
    "net/url"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/theater-ticket-booking/internal/cache"
    "github.com/iliyamo/theater-ticket-booking/internal/gateway"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/queue"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

// PaymentService starts payment attempts and reconciles their outcomes.
// Gateway HTTP calls never happen inside a database transaction: the payment
// row is committed first, the gateway is consulted, and only then is a
// short finalization transaction opened.
type PaymentService struct {
    catalog      *repository.CatalogRepo
    bookings     *repository.BookingRepo
    payments     *repository.PaymentRepo
    reservations *repository.SeatReservationRepo
    discounts    *repository.DiscountRepo
    history      *repository.HistoryRepo
    seatMapCache *cache.SeatMap
    gw           *gateway.Client

    returnURL  string
    successURL string
    failureURL string
    rabbitURL  string

    now func() time.Time
}

// NewPaymentService wires the payment service.
func NewPaymentService(
    catalog *repository.CatalogRepo,
    bookings *repository.BookingRepo,
    payments *repository.PaymentRepo,
    reservations *repository.SeatReservationRepo,
    discounts *repository.DiscountRepo,
    history *repository.HistoryRepo,
    seatMapCache *cache.SeatMap,
    gw *gateway.Client,
    returnURL, successURL, failureURL, rabbitURL string,
) *PaymentService {
    return &PaymentService{
        catalog:      catalog,
        bookings:     bookings,
        payments:     payments,
        reservations: reservations,
        discounts:    discounts,
        history:      history,
        seatMapCache: seatMapCache,
        gw:           gw,
        returnURL:    returnURL,
        successURL:   successURL,
        failureURL:   failureURL,
        rabbitURL:    rabbitURL,
        now:          time.Now,
    }
}

// StartResult is the response to a payment start call.
type StartResult struct {
    TransactionID string `json:"transaction_id"`
    PayURL        string `json:"pay_url,omitempty"`
}

// Start creates a payment attempt for a pending booking and returns the
// gateway portal URL.  The payment row is inserted under the booking's row
// lock so a concurrent cancel or expiry cannot interleave between the status
// check and the insert, and the transaction commits before the gateway URL
// is built.  Bank transfers get a transaction id but no URL; they are
// reconciled out of band.
func (s *PaymentService) Start(ctx context.Context, bookingCode, sessionID, method string) (*StartResult, error) {
    now := s.now().UTC()

    if method == "" {
        method = model.MethodNinePay
    }
    if method != model.MethodNinePay && method != model.MethodBank {
        return nil, E(KindValidation, "unsupported payment method")
    }

    tx, err := s.bookings.DB().BeginTx(ctx, nil)
    if err != nil {
        return nil, Wrap(KindConsistency, "failed to begin transaction", err)
    }
    defer tx.Rollback()

    b, err := s.bookings.LockByCodeTx(ctx, tx, bookingCode)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil, E(KindNotFound, "booking not found")
        }
        return nil, Wrap(KindConsistency, "failed to load booking", err)
    }
    if b.SessionID == "" || b.SessionID != sessionID {
        return nil, E(KindNotFound, "booking not found")
    }
    if b.Status != model.BookingPending {
        return nil, E(KindValidation, "booking is not awaiting payment")
    }
    if !b.ExpiresAt.After(now) {
        return nil, E(KindConflict, "booking payment deadline has passed")
    }

    p := &model.Payment{
        BookingID:     b.ID,
        TransactionID: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
        Method:        method,
        Amount:        b.FinalAmount,
        Status:        model.PaymentPending,
    }
    if err := s.payments.CreateTx(ctx, tx, p); err != nil {
        return nil, Wrap(KindConsistency, "failed to create payment", err)
    }
    if err := tx.Commit(); err != nil {
        return nil, Wrap(KindConsistency, "failed to commit payment", err)
    }

    result := &StartResult{TransactionID: p.TransactionID}
    if method == model.MethodNinePay {
        payURL, err := s.gw.PaymentURL(gateway.PaymentRequest{
            InvoiceNo:   p.TransactionID,
            Amount:      p.Amount,
            Description: "Tickets " + b.BookingCode,
            BackURL:     s.returnURL,
            ReturnURL:   s.returnURL,
        })
        if err != nil {
            return nil, Wrap(KindUnavailable, "failed to build payment URL", err)
        }
        result.PayURL = payURL
    }
    return result, nil
}

// HandleReturn processes the browser's return from the gateway portal.  The
// attached payload is checksum-verified and then re-verified against the
// gateway's inquiry endpoint; browser-delivered parameters alone never
// finalize anything.  It returns the frontend URL to redirect the customer
// to.
func (s *PaymentService) HandleReturn(ctx context.Context, result, checksum string) (string, error) {
    if result == "" || checksum == "" {
        return s.failureURL, E(KindValidation, "missing return parameters")
    }
    if !s.gw.VerifyReturn(result, checksum) {
        return s.failureURL, E(KindValidation, "invalid return checksum")
    }
    parsed, err := s.gw.ParseReturn(result)
    if err != nil {
        return s.failureURL, Wrap(KindValidation, "malformed return payload", err)
    }

    p, err := s.payments.GetByTransactionID(ctx, parsed.InvoiceNo)
    if err != nil {
        if err == repository.ErrNotFound {
            return s.failureURL, E(KindNotFound, "unknown payment")
        }
        return s.failureURL, Wrap(KindConsistency, "failed to load payment", err)
    }

    // The inquiry endpoint is authoritative; the return payload only tells
    // us which invoice to ask about.
    verdict, err := s.gw.QueryStatus(ctx, parsed.InvoiceNo)
    if err != nil {
        log.Printf("payment: status inquiry for %s failed: %v", parsed.InvoiceNo, err)
        return s.redirect(s.failureURL, p, "processing"), nil
    }

    if _, err := s.finalize(ctx, p.ID, verdict); err != nil {
        return s.redirect(s.failureURL, p, "error"), err
    }

    // Re-read rather than trusting the verdict: a concurrent sweep may have
    // settled this payment first, and the customer deserves its answer.
    settled, err := s.payments.GetByTransactionID(ctx, parsed.InvoiceNo)
    if err != nil {
        return s.redirect(s.failureURL, p, "error"), Wrap(KindConsistency, "failed to reload payment", err)
    }
    switch settled.Status {
    case model.PaymentSuccess:
        return s.redirect(s.successURL, p, "success"), nil
    case model.PaymentPending:
        return s.redirect(s.failureURL, p, "processing"), nil
    default:
        return s.redirect(s.failureURL, p, "failed"), nil
    }
}

// Status reports one payment attempt for client polling.
func (s *PaymentService) Status(ctx context.Context, transactionID string) (*model.Payment, error) {
    p, err := s.payments.GetByTransactionID(ctx, transactionID)
    if err != nil {
        if err == repository.ErrNotFound {
            return nil, E(KindNotFound, "payment not found")
        }
        return nil, Wrap(KindConsistency, "failed to load payment", err)
    }
    return p, nil
}

// SyncPending reconciles pending payments older than the cutoff against the
// gateway.  Called by the payment-sync sweep; safe to run concurrently with
// browser returns because finalization is idempotent under the payment lock.
func (s *PaymentService) SyncPending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
    pending, err := s.payments.PendingOlderThan(ctx, cutoff, limit)
    if err != nil {
        return 0, Wrap(KindConsistency, "failed to list pending payments", err)
    }
    settled := 0
    for i := range pending {
        p := &pending[i]
        verdict, err := s.gw.QueryStatus(ctx, p.TransactionID)
        if err != nil {
            log.Printf("payment-sync: inquiry for %s failed: %v", p.TransactionID, err)
            continue
        }
        if verdict.Outcome() == gateway.OutcomeProcessing {
            continue
        }
        res, err := s.finalize(ctx, p.ID, verdict)
        if err != nil {
            log.Printf("payment-sync: finalize %s failed: %v", p.TransactionID, err)
            continue
        }
        if res.Applied {
            settled++
        }
    }
    return settled, nil
}

// finalize opens the finalization transaction, applies the verdict and, on a
// newly paid booking, publishes the confirmation event after commit.
func (s *PaymentService) finalize(ctx context.Context, paymentID uint64, verdict gateway.StatusResult) (finalizeResult, error) {
    tx, err := s.payments.DB().BeginTx(ctx, nil)
    if err != nil {
        return finalizeResult{}, Wrap(KindConsistency, "failed to begin transaction", err)
    }
    defer tx.Rollback()

    res, err := finalizePayment(ctx, &sqlFinalizeStore{tx: tx, r: s}, paymentID, verdict, s.now().UTC())
    if err != nil {
        return finalizeResult{}, err
    }
    if !res.Applied {
        return res, nil
    }
    if err := tx.Commit(); err != nil {
        return finalizeResult{}, Wrap(KindConsistency, "failed to commit finalization", err)
    }

    if res.Booking != nil {
        s.seatMapCache.Invalidate(ctx, res.Booking.PerformanceID)
    }
    if res.Paid && res.Booking != nil {
        s.publishPaid(res.Booking)
    }
    return res, nil
}

// publishPaid emits the booking-paid event in the background.  The booking
// is already committed; a broker outage costs an email, nothing more.
func (s *PaymentService) publishPaid(b *model.Booking) {
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()

        ev := queue.BookingPaidEvent{
            BookingID:     b.ID,
            BookingCode:   b.BookingCode,
            PerformanceID: b.PerformanceID,
            CustomerName:  b.CustomerName,
            CustomerEmail: b.CustomerEmail,
            FinalAmount:   b.FinalAmount,
            PaidAt:        s.now().UTC().Format(time.RFC3339),
        }
        if perf, err := s.catalog.GetPerformance(ctx, b.PerformanceID); err == nil {
            ev.PerformanceTitle = perf.ShowName
            ev.StartsAt = perf.StartsAt.Format(time.RFC3339)
        }
        if seats, err := s.reservations.BookingSeats(ctx, b.ID); err == nil {
            for _, seat := range seats {
                ev.SeatLabels = append(ev.SeatLabels, seat.RowLabel+"-"+seat.SeatLabel)
            }
        }
        if err := queue.PublishBookingPaid(ctx, s.rabbitURL, ev); err != nil {
            log.Printf("payment: publish booking.paid for %s failed: %v", b.BookingCode, err)
        }
    }()
}

// redirect appends the booking reference and result to a frontend URL.
func (s *PaymentService) redirect(base string, p *model.Payment, result string) string {
    u, err := url.Parse(base)
    if err != nil {
        return base
    }
    q := u.Query()
    q.Set("transaction_id", p.TransactionID)
    q.Set("result", result)
    u.RawQuery = q.Encode()
    return u.String()
}

// sqlFinalizeStore adapts one open transaction to the finalizeStore surface.
type sqlFinalizeStore struct {
    tx *sql.Tx
    r  *PaymentService
}

func (st *sqlFinalizeStore) LockPayment(ctx context.Context, id uint64) (*model.Payment, error) {
    return st.r.payments.LockByIDTx(ctx, st.tx, id)
}

func (st *sqlFinalizeStore) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return st.r.bookings.LockByIDTx(ctx, st.tx, id)
}

func (st *sqlFinalizeStore) MarkPaymentSuccess(ctx context.Context, id uint64, gatewayTxnID, raw string, paidAt time.Time) error {
    return st.r.payments.MarkSuccessTx(ctx, st.tx, id, gatewayTxnID, raw, paidAt)
}

func (st *sqlFinalizeStore) MarkPaymentFailed(ctx context.Context, id uint64, raw string) error {
    return st.r.payments.MarkFailedTx(ctx, st.tx, id, raw)
}

func (st *sqlFinalizeStore) MarkBookingPaid(ctx context.Context, id uint64, paidAt time.Time) error {
    return st.r.bookings.MarkPaidTx(ctx, st.tx, id, paidAt)
}

func (st *sqlFinalizeStore) SetBookingStatus(ctx context.Context, id uint64, status string) error {
    return st.r.bookings.UpdateStatusTx(ctx, st.tx, id, status)
}

func (st *sqlFinalizeStore) BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
    return st.r.reservations.BookingSeatIDsTx(ctx, st.tx, bookingID)
}

func (st *sqlFinalizeStore) ClaimedElsewhere(ctx context.Context, performanceID uint64, seatIDs []uint64, bookingID uint64) ([]uint64, error) {
    return st.r.reservations.ClaimedElsewhereTx(ctx, st.tx, performanceID, seatIDs, bookingID)
}

func (st *sqlFinalizeStore) MarkSeatsSold(ctx context.Context, bookingID uint64) (int64, error) {
    return st.r.reservations.MarkSoldByBookingTx(ctx, st.tx, bookingID)
}

func (st *sqlFinalizeStore) ReleaseSeats(ctx context.Context, bookingID uint64) (int64, error) {
    return st.r.reservations.ReleaseByBookingTx(ctx, st.tx, bookingID)
}

func (st *sqlFinalizeStore) CompleteDiscountUsage(ctx context.Context, bookingID uint64) error {
    return st.r.discounts.CompleteUsageTx(ctx, st.tx, bookingID)
}

func (st *sqlFinalizeStore) CancelDiscountUsage(ctx context.Context, bookingID uint64) error {
    return st.r.discounts.CancelUsageTx(ctx, st.tx, bookingID)
}

func (st *sqlFinalizeStore) AppendHistory(ctx context.Context, h *model.BookingHistory) error {
    return st.r.history.AppendTx(ctx, st.tx, h)
}
