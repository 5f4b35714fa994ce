package service

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/theater-ticket-booking/internal/cache"
    "github.com/iliyamo/theater-ticket-booking/internal/config"
    "github.com/iliyamo/theater-ticket-booking/internal/gateway"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

func paymentServiceForTest(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    svc := NewPaymentService(
        repository.NewCatalogRepo(db),
        repository.NewBookingRepo(db),
        repository.NewPaymentRepo(db),
        repository.NewSeatReservationRepo(db),
        repository.NewDiscountRepo(db),
        repository.NewHistoryRepo(db),
        cache.NewSeatMap(nil, config.SeatMapCacheConfig{}),
        gateway.NewClient("merchant-1", "secret-1", "checksum-1", "https://pay.example"),
        "https://shop.example/return",
        "https://shop.example/success",
        "https://shop.example/failure",
        "",
    )
    svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
    return svc, mock
}

func TestStartCreatesPaymentUnderBookingLock(t *testing.T) {
    svc, mock := paymentServiceForTest(t)
    now := time.Unix(1700000000, 0).UTC()

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM bookings WHERE booking_code = \? FOR UPDATE`).
        WithArgs("BKTEST42").
        WillReturnRows(mockBookingRows(7, "BKTEST42", model.BookingPending, "session-a", now.Add(10*time.Minute)))
    mock.ExpectExec(`INSERT INTO payments`).
        WithArgs(uint64(7), sqlmock.AnyArg(), model.MethodNinePay, int64(5500), model.PaymentPending).
        WillReturnResult(sqlmock.NewResult(10, 1))
    mock.ExpectCommit()

    res, err := svc.Start(context.Background(), "BKTEST42", "session-a", model.MethodNinePay)
    require.NoError(t, err)
    assert.Len(t, res.TransactionID, 32)
    assert.Contains(t, res.PayURL, "/portal?")
    require.NoError(t, mock.ExpectationsWereMet())
}

// A cancel that lands first wins: the status check runs on the locked row,
// so no payment row is ever created for a cancelled booking.
func TestStartRejectsCancelledBookingUnderLock(t *testing.T) {
    svc, mock := paymentServiceForTest(t)
    now := time.Unix(1700000000, 0).UTC()

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM bookings WHERE booking_code = \? FOR UPDATE`).
        WithArgs("BKTEST42").
        WillReturnRows(mockBookingRows(7, "BKTEST42", model.BookingCancelled, "session-a", now.Add(10*time.Minute)))
    mock.ExpectRollback()

    _, err := svc.Start(context.Background(), "BKTEST42", "session-a", model.MethodNinePay)
    var se *Error
    require.ErrorAs(t, err, &se)
    assert.Equal(t, KindValidation, se.Kind)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRejectsExpiredDeadline(t *testing.T) {
    svc, mock := paymentServiceForTest(t)
    now := time.Unix(1700000000, 0).UTC()

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM bookings WHERE booking_code = \? FOR UPDATE`).
        WithArgs("BKTEST42").
        WillReturnRows(mockBookingRows(7, "BKTEST42", model.BookingPending, "session-a", now.Add(-time.Minute)))
    mock.ExpectRollback()

    _, err := svc.Start(context.Background(), "BKTEST42", "session-a", model.MethodNinePay)
    var se *Error
    require.ErrorAs(t, err, &se)
    assert.Equal(t, KindConflict, se.Kind)
    require.NoError(t, mock.ExpectationsWereMet())
}
