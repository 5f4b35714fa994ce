package service

import (
    "context"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/gateway"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// finalizeStore is the transactional surface payment finalization runs
// against.  The production implementation wraps one *sql.Tx; tests substitute
// an in-memory ledger to drive the state machine through its races.
type finalizeStore interface {
    LockPayment(ctx context.Context, id uint64) (*model.Payment, error)
    LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
    MarkPaymentSuccess(ctx context.Context, id uint64, gatewayTxnID, raw string, paidAt time.Time) error
    MarkPaymentFailed(ctx context.Context, id uint64, raw string) error
    MarkBookingPaid(ctx context.Context, id uint64, paidAt time.Time) error
    SetBookingStatus(ctx context.Context, id uint64, status string) error
    BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error)
    ClaimedElsewhere(ctx context.Context, performanceID uint64, seatIDs []uint64, bookingID uint64) ([]uint64, error)
    MarkSeatsSold(ctx context.Context, bookingID uint64) (int64, error)
    ReleaseSeats(ctx context.Context, bookingID uint64) (int64, error)
    CompleteDiscountUsage(ctx context.Context, bookingID uint64) error
    CancelDiscountUsage(ctx context.Context, bookingID uint64) error
    AppendHistory(ctx context.Context, h *model.BookingHistory) error
}

// finalizeResult reports what one finalization pass actually did.
type finalizeResult struct {
    Applied bool           // false when the payment was already settled or still processing
    Paid    bool           // true when the booking transitioned to paid
    Booking *model.Booking // booking as loaded under lock, for the event publisher
}

// finalizePayment applies one authoritative gateway verdict to a payment and
// its booking.  The payment row is locked first, the booking second, on
// every path; a payment no longer pending makes the whole call a no-op,
// which is what lets the browser return and the sync sweep race freely.
//
// A success verdict against seats that meanwhile belong to another booking
// is the one consistency breach this code tolerates from outside: the
// payment is failed and the booking cancelled, but the seats are left alone
// because they are someone else's now.
func finalizePayment(ctx context.Context, store finalizeStore, paymentID uint64, res gateway.StatusResult, now time.Time) (finalizeResult, error) {
    p, err := store.LockPayment(ctx, paymentID)
    if err != nil {
        return finalizeResult{}, Wrap(KindConsistency, "failed to lock payment", err)
    }
    if p.Status != model.PaymentPending {
        return finalizeResult{}, nil
    }

    b, err := store.LockBooking(ctx, p.BookingID)
    if err != nil {
        return finalizeResult{}, Wrap(KindConsistency, "failed to lock booking", err)
    }

    switch res.Outcome() {
    case gateway.OutcomeProcessing:
        return finalizeResult{Booking: b}, nil

    case gateway.OutcomeSuccess:
        if b.Status != model.BookingPending {
            // Money arrived for a booking that is no longer pending
            // (cancelled or expired while the customer paid).  Record the
            // failure; refund handling is a manual follow-up.
            if err := store.MarkPaymentFailed(ctx, p.ID, res.Raw); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to mark payment", err)
            }
            _ = store.AppendHistory(ctx, &model.BookingHistory{
                BookingID:   &b.ID,
                BookingCode: b.BookingCode,
                Action:      model.ActionPaymentFailed,
                ExtraJSON:   `{"reason":"booking_not_pending"}`,
            })
            return finalizeResult{Applied: true, Booking: b}, nil
        }

        seatIDs, err := store.BookingSeatIDs(ctx, b.ID)
        if err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to load booking seats", err)
        }
        conflicts, err := store.ClaimedElsewhere(ctx, b.PerformanceID, seatIDs, b.ID)
        if err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to check seat ownership", err)
        }
        if len(conflicts) > 0 {
            // The seats belong to another booking.  Fail the payment and
            // cancel the booking, but never release the seats: they are not
            // ours to free.
            if err := store.MarkPaymentFailed(ctx, p.ID, res.Raw); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to mark payment", err)
            }
            if err := store.SetBookingStatus(ctx, b.ID, model.BookingCancelled); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to cancel booking", err)
            }
            if err := store.CancelDiscountUsage(ctx, b.ID); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to cancel discount usage", err)
            }
            _ = store.AppendHistory(ctx, &model.BookingHistory{
                BookingID:   &b.ID,
                BookingCode: b.BookingCode,
                Action:      model.ActionPaymentFailed,
                SeatsJSON:   seatIDsJSON(conflicts),
                ExtraJSON:   `{"reason":"seat_conflict"}`,
            })
            return finalizeResult{Applied: true, Booking: b}, nil
        }

        if err := store.MarkPaymentSuccess(ctx, p.ID, res.GatewayTxnID, res.Raw, now); err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to mark payment", err)
        }
        if err := store.MarkBookingPaid(ctx, b.ID, now); err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to mark booking paid", err)
        }
        if _, err := store.MarkSeatsSold(ctx, b.ID); err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to mark seats sold", err)
        }
        if err := store.CompleteDiscountUsage(ctx, b.ID); err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to complete discount usage", err)
        }
        if err := store.AppendHistory(ctx, &model.BookingHistory{
            BookingID:   &b.ID,
            BookingCode: b.BookingCode,
            Action:      model.ActionPaymentSucceeded,
            SeatsJSON:   seatIDsJSON(seatIDs),
        }); err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to record history", err)
        }
        return finalizeResult{Applied: true, Paid: true, Booking: b}, nil

    default: // gateway.OutcomeFailed
        if err := store.MarkPaymentFailed(ctx, p.ID, res.Raw); err != nil {
            return finalizeResult{}, Wrap(KindConsistency, "failed to mark payment", err)
        }
        if b.Status == model.BookingPending {
            if err := store.SetBookingStatus(ctx, b.ID, model.BookingCancelled); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to cancel booking", err)
            }
            if _, err := store.ReleaseSeats(ctx, b.ID); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to release seats", err)
            }
            if err := store.CancelDiscountUsage(ctx, b.ID); err != nil {
                return finalizeResult{}, Wrap(KindConsistency, "failed to cancel discount usage", err)
            }
        }
        _ = store.AppendHistory(ctx, &model.BookingHistory{
            BookingID:   &b.ID,
            BookingCode: b.BookingCode,
            Action:      model.ActionPaymentFailed,
        })
        return finalizeResult{Applied: true, Booking: b}, nil
    }
}
