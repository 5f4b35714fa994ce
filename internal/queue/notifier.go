package queue

import (
    "fmt"
    "os"
    "path/filepath"
    "strings"
)

// Notifier delivers the booking confirmation for a paid booking.  The
// consumer retries through this interface, so implementations should return
// an error for transient failures rather than retrying internally.
type Notifier interface {
    SendBookingConfirmation(ev BookingPaidEvent) error
}

// LogNotifier appends confirmation "emails" to logs/emails.log.  It stands
// in for a real mail provider in development and doubles as a delivery
// audit trail in production setups that front a separate mailer.
type LogNotifier struct {
    Dir string // directory for the log file; defaults to "logs"
}

// SendBookingConfirmation writes a single-line record of the confirmation.
func (n *LogNotifier) SendBookingConfirmation(ev BookingPaidEvent) error {
    dir := n.Dir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    fpath := filepath.Join(dir, "emails.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    seats := "[]"
    if len(ev.SeatLabels) > 0 {
        seats = fmt.Sprintf("[%s]", strings.Join(ev.SeatLabels, ","))
    }

    line := fmt.Sprintf("[%s] Booking confirmed | code=%s | to=%s | name=%q | performance=%q | starts_at=%s | total=%d | seats=%s\n",
        ev.PaidAt, ev.BookingCode, ev.CustomerEmail, ev.CustomerName, ev.PerformanceTitle, ev.StartsAt, ev.FinalAmount, seats)

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
