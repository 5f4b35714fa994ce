// Package sweep runs the background maintenance loops: seat-hold expiry,
// booking expiry and payment reconciliation.  The sweeps are safety nets;
// every request path also performs its own lazy cleanup, so a paused sweeper
// degrades freshness, never correctness.
package sweep

import (
    "context"
    "log"
    "time"

    "github.com/iliyamo/theater-ticket-booking/internal/service"
)

const sweepBatchSize = 200

// Sweeper owns the three maintenance tickers.
type Sweeper struct {
    reservations *service.ReservationService
    bookings     *service.BookingService
    payments     *service.PaymentService

    holdInterval    time.Duration
    bookingInterval time.Duration
    paymentInterval time.Duration
    expireBuffer    time.Duration
}

// New builds a Sweeper.
func New(
    reservations *service.ReservationService,
    bookings *service.BookingService,
    payments *service.PaymentService,
    holdInterval, bookingInterval, paymentInterval, expireBuffer time.Duration,
) *Sweeper {
    return &Sweeper{
        reservations:    reservations,
        bookings:        bookings,
        payments:        payments,
        holdInterval:    holdInterval,
        bookingInterval: bookingInterval,
        paymentInterval: paymentInterval,
        expireBuffer:    expireBuffer,
    }
}

// Run starts all three loops and blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
    go s.loop(ctx, s.holdInterval, s.sweepHolds)
    go s.loop(ctx, s.bookingInterval, s.sweepBookings)
    go s.loop(ctx, s.paymentInterval, s.syncPayments)
    <-ctx.Done()
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            fn(ctx)
        }
    }
}

func (s *Sweeper) sweepHolds(ctx context.Context) {
    n, err := s.reservations.SweepExpiredHolds(ctx)
    if err != nil {
        log.Printf("hold-sweep: %v", err)
        return
    }
    if n > 0 {
        log.Printf("hold-sweep: released %d stale holds", n)
    }
}

func (s *Sweeper) sweepBookings(ctx context.Context) {
    n, err := s.bookings.ExpireStale(ctx, s.expireBuffer, sweepBatchSize)
    if err != nil {
        log.Printf("booking-sweep: %v", err)
        return
    }
    if n > 0 {
        log.Printf("booking-sweep: expired %d bookings", n)
    }
}

func (s *Sweeper) syncPayments(ctx context.Context) {
    // Only look at attempts old enough that the customer has plausibly
    // finished or abandoned the portal.
    cutoff := time.Now().UTC().Add(-s.paymentInterval)
    n, err := s.payments.SyncPending(ctx, cutoff, sweepBatchSize)
    if err != nil {
        log.Printf("payment-sync: %v", err)
        return
    }
    if n > 0 {
        log.Printf("payment-sync: settled %d payments", n)
    }
}
