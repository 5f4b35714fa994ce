package queue

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLogNotifierWritesConfirmation(t *testing.T) {
    dir := t.TempDir()
    n := &LogNotifier{Dir: dir}

    err := n.SendBookingConfirmation(BookingPaidEvent{
        BookingCode:      "BKTEST42",
        CustomerName:     "Dana Roe",
        CustomerEmail:    "dana@example.com",
        PerformanceTitle: "Hamlet",
        StartsAt:         "2026-09-01T19:30:00Z",
        SeatLabels:       []string{"A-1", "A-2"},
        FinalAmount:      5000,
        PaidAt:           "2026-08-31T12:00:00Z",
    })
    require.NoError(t, err)

    data, err := os.ReadFile(filepath.Join(dir, "emails.log"))
    require.NoError(t, err)
    line := string(data)
    assert.Contains(t, line, "BKTEST42")
    assert.Contains(t, line, "dana@example.com")
    assert.Contains(t, line, "[A-1,A-2]")
    assert.Contains(t, line, "Hamlet")
}

func TestLogNotifierAppends(t *testing.T) {
    dir := t.TempDir()
    n := &LogNotifier{Dir: dir}

    require.NoError(t, n.SendBookingConfirmation(BookingPaidEvent{BookingCode: "BKAAA111"}))
    require.NoError(t, n.SendBookingConfirmation(BookingPaidEvent{BookingCode: "BKBBB222"}))

    data, err := os.ReadFile(filepath.Join(dir, "emails.log"))
    require.NoError(t, err)
    assert.Contains(t, string(data), "BKAAA111")
    assert.Contains(t, string(data), "BKBBB222")
}
