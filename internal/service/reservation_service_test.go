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
    "github.com/iliyamo/theater-ticket-booking/internal/model"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
)

func holds(seatIDs ...uint64) []model.SeatReservation {
    out := make([]model.SeatReservation, 0, len(seatIDs))
    for _, id := range seatIDs {
        out = append(out, model.SeatReservation{SeatID: id})
    }
    return out
}

func TestSelectionSizeUnion(t *testing.T) {
    cases := []struct {
        name     string
        existing []model.SeatReservation
        request  []uint64
        want     int
    }{
        {"fresh selection", nil, []uint64{1, 2, 3}, 3},
        {"disjoint extension", holds(1, 2), []uint64{3, 4}, 4},
        {"re-request counts once", holds(1, 2), []uint64{1, 2}, 2},
        {"partial overlap", holds(1, 2), []uint64{2, 3}, 3},
        {"empty request keeps holds", holds(1, 2), nil, 2},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, selectionSize(tc.existing, tc.request))
        })
    }
}

func reservationServiceForTest(t *testing.T) (*ReservationService, sqlmock.Sqlmock) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    svc := NewReservationService(
        repository.NewCatalogRepo(db),
        repository.NewSeatReservationRepo(db),
        repository.NewHistoryRepo(db),
        cache.NewSeatMap(nil, config.SeatMapCacheConfig{}),
        5*time.Minute,
        8,
    )
    svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
    return svc, mock
}

// The release endpoint names a performance; only that performance's ledger
// rows may move, even if the same seat ids exist elsewhere.
func TestReleasePassesPerformanceScope(t *testing.T) {
    svc, mock := reservationServiceForTest(t)

    mock.ExpectExec(`UPDATE seat_reservations SET status = 'available', session_id = '', expires_at = NULL, client_ip = '' WHERE performance_id = \? AND session_id = \?`).
        WithArgs(uint64(3), "session-a", uint64(101)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`INSERT INTO booking_history`).
        WillReturnResult(sqlmock.NewResult(1, 1))

    n, err := svc.Release(context.Background(), 3, "session-a", "203.0.113.7", []uint64{101})
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)
    require.NoError(t, mock.ExpectationsWereMet())
}
