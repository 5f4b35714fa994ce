package service

import (
    "context"
    "strings"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/theater-ticket-booking/internal/cache"
    "github.com/iliyamo/theater-ticket-booking/internal/config"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

func TestGenerateBookingCode(t *testing.T) {
    seen := map[string]struct{}{}
    for i := 0; i < 100; i++ {
        code, err := generateBookingCode()
        require.NoError(t, err)
        require.Len(t, code, 8)
        require.True(t, strings.HasPrefix(code, "BK"))
        for _, r := range code[2:] {
            assert.Contains(t, bookingCodeCharset, string(r))
        }
        seen[code] = struct{}{}
    }
    // 100 draws from a 32^6 space colliding would point at broken entropy.
    assert.Greater(t, len(seen), 95)
}

func TestValidateCustomer(t *testing.T) {
    base := CreateBookingRequest{
        CustomerName:  "Dana Roe",
        CustomerPhone: "0912345678",
        CustomerEmail: "dana@example.com",
        ShippingTime:  model.ShippingBusinessHours,
    }

    req := base
    assert.NoError(t, validateCustomer(&req))

    req = base
    req.CustomerName = "   "
    assert.Error(t, validateCustomer(&req))

    req = base
    req.CustomerPhone = ""
    assert.Error(t, validateCustomer(&req))

    req = base
    req.CustomerEmail = "not-an-email"
    assert.Error(t, validateCustomer(&req))

    req = base
    req.CustomerEmail = "" // email is optional
    assert.NoError(t, validateCustomer(&req))

    req = base
    req.ShippingTime = "midnight"
    assert.Error(t, validateCustomer(&req))
}

func TestValidateCustomerTrims(t *testing.T) {
    req := CreateBookingRequest{
        CustomerName:  "  Dana Roe  ",
        CustomerPhone: " 0912345678 ",
    }
    require.NoError(t, validateCustomer(&req))
    assert.Equal(t, "Dana Roe", req.CustomerName)
    assert.Equal(t, "0912345678", req.CustomerPhone)
}

func TestSeatIDsJSON(t *testing.T) {
    assert.Equal(t, "[]", seatIDsJSON(nil))
    assert.Equal(t, "[7]", seatIDsJSON([]uint64{7}))
    assert.Equal(t, "[1,2,3]", seatIDsJSON([]uint64{1, 2, 3}))
}

func TestDedupe(t *testing.T) {
    assert.Equal(t, []uint64{3, 1, 2}, dedupe([]uint64{3, 1, 3, 2, 1}))
    assert.Empty(t, dedupe(nil))
}

func TestSeatLabels(t *testing.T) {
    assert.Equal(t, []string{"A-1", "A-3"}, seatLabels("A", []string{"3", "1"}))
}

var bookingColumnsForTest = []string{
    "id", "booking_code", "performance_id", "customer_name", "customer_email",
    "customer_phone", "customer_id_number", "customer_address", "shipping_time",
    "status", "total_amount", "service_fee", "shipping_fee", "discount_amount",
    "final_amount", "session_id", "discount_id", "expires_at", "paid_at",
    "notes", "created_at", "updated_at",
}

// mockBookingRows builds a one-row result set in the bookings column order.
func mockBookingRows(id uint64, code, status, sessionID string, expiresAt time.Time) *sqlmock.Rows {
    created := expiresAt.Add(-15 * time.Minute)
    return sqlmock.NewRows(bookingColumnsForTest).AddRow(
        id, code, uint64(3), "Dana Vo", "dana@example.com", "0900000001",
        "", "", model.ShippingBusinessHours, status,
        int64(5000), int64(500), int64(0), int64(0), int64(5500),
        sessionID, nil, expiresAt, nil, "", created, created)
}

func bookingServiceForTest(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    svc := NewBookingService(
        repository.NewCatalogRepo(db),
        repository.NewSeatReservationRepo(db),
        repository.NewBookingRepo(db),
        repository.NewPaymentRepo(db),
        NewDiscountService(repository.NewDiscountRepo(db)),
        repository.NewHistoryRepo(db),
        cache.NewSeatMap(nil, config.SeatMapCacheConfig{}),
        15*time.Minute,
    )
    svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
    return svc, mock
}

// A stale booking with a payment attempt still pending is left alone: the
// payment-sync sweep owns its outcome, so no expiry transaction may open.
func TestExpireStaleSkipsBookingWithPendingPayment(t *testing.T) {
    svc, mock := bookingServiceForTest(t)
    now := time.Unix(1700000000, 0).UTC()

    mock.ExpectQuery(`FROM bookings WHERE status = 'pending' AND expires_at < \?`).
        WithArgs(now.Add(-time.Minute), 50).
        WillReturnRows(mockBookingRows(7, "BKTEST42", model.BookingPending, "session-a", now.Add(-10*time.Minute)))
    mock.ExpectQuery(`SELECT 1 FROM payments WHERE booking_id = \? AND status = 'pending'`).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

    expired, err := svc.ExpireStale(context.Background(), time.Minute, 50)
    require.NoError(t, err)
    assert.Zero(t, expired)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireStaleExpiresBookingWithoutPendingPayment(t *testing.T) {
    svc, mock := bookingServiceForTest(t)
    now := time.Unix(1700000000, 0).UTC()
    deadline := now.Add(-10 * time.Minute)

    mock.ExpectQuery(`FROM bookings WHERE status = 'pending' AND expires_at < \?`).
        WithArgs(now.Add(-time.Minute), 50).
        WillReturnRows(mockBookingRows(7, "BKTEST42", model.BookingPending, "session-a", deadline))
    mock.ExpectQuery(`SELECT 1 FROM payments WHERE booking_id = \? AND status = 'pending'`).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}))

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).
        WithArgs(uint64(7)).
        WillReturnRows(mockBookingRows(7, "BKTEST42", model.BookingPending, "session-a", deadline))
    mock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
        WithArgs(model.BookingExpired, uint64(7)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`UPDATE seat_reservations`).
        WithArgs(uint64(7)).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec(`UPDATE discount_usages SET status = 'CANCELLED'`).
        WithArgs(uint64(7)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectExec(`INSERT INTO booking_history`).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectCommit()

    expired, err := svc.ExpireStale(context.Background(), time.Minute, 50)
    require.NoError(t, err)
    assert.Equal(t, 1, expired)
    require.NoError(t, mock.ExpectationsWereMet())
}
