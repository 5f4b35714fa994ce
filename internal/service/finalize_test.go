package service

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/iliyamo/theater-ticket-booking/internal/gateway"
    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// fakeStore is an in-memory finalizeStore that records which transitions
// finalizePayment asked for.
type fakeStore struct {
    payment *model.Payment
    booking *model.Booking

    seatIDs   []uint64
    conflicts []uint64

    seatsSold      bool
    seatsReleased  bool
    usageCompleted bool
    usageCancelled bool
    history        []model.BookingHistory
}

func (f *fakeStore) LockPayment(_ context.Context, id uint64) (*model.Payment, error) {
    return f.payment, nil
}

func (f *fakeStore) LockBooking(_ context.Context, id uint64) (*model.Booking, error) {
    return f.booking, nil
}

func (f *fakeStore) MarkPaymentSuccess(_ context.Context, _ uint64, gatewayTxnID, raw string, paidAt time.Time) error {
    f.payment.Status = model.PaymentSuccess
    f.payment.GatewayTxnID = gatewayTxnID
    f.payment.GatewayRaw = raw
    f.payment.PaidAt = &paidAt
    return nil
}

func (f *fakeStore) MarkPaymentFailed(_ context.Context, _ uint64, raw string) error {
    f.payment.Status = model.PaymentFailed
    f.payment.GatewayRaw = raw
    return nil
}

func (f *fakeStore) MarkBookingPaid(_ context.Context, _ uint64, paidAt time.Time) error {
    f.booking.Status = model.BookingPaid
    f.booking.PaidAt = &paidAt
    f.booking.SessionID = ""
    return nil
}

func (f *fakeStore) SetBookingStatus(_ context.Context, _ uint64, status string) error {
    f.booking.Status = status
    return nil
}

func (f *fakeStore) BookingSeatIDs(_ context.Context, _ uint64) ([]uint64, error) {
    return f.seatIDs, nil
}

func (f *fakeStore) ClaimedElsewhere(_ context.Context, _ uint64, _ []uint64, _ uint64) ([]uint64, error) {
    return f.conflicts, nil
}

func (f *fakeStore) MarkSeatsSold(_ context.Context, _ uint64) (int64, error) {
    f.seatsSold = true
    return int64(len(f.seatIDs)), nil
}

func (f *fakeStore) ReleaseSeats(_ context.Context, _ uint64) (int64, error) {
    f.seatsReleased = true
    return int64(len(f.seatIDs)), nil
}

func (f *fakeStore) CompleteDiscountUsage(_ context.Context, _ uint64) error {
    f.usageCompleted = true
    return nil
}

func (f *fakeStore) CancelDiscountUsage(_ context.Context, _ uint64) error {
    f.usageCancelled = true
    return nil
}

func (f *fakeStore) AppendHistory(_ context.Context, h *model.BookingHistory) error {
    f.history = append(f.history, *h)
    return nil
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        payment: &model.Payment{ID: 10, BookingID: 7, Status: model.PaymentPending, Amount: 5000},
        booking: &model.Booking{ID: 7, BookingCode: "BKTEST42", PerformanceID: 3,
            Status: model.BookingPending, SessionID: "sess-1", FinalAmount: 5000},
        seatIDs: []uint64{101, 102},
    }
}

func successVerdict() gateway.StatusResult {
    return gateway.StatusResult{Status: 5, ErrorCode: "000", GatewayTxnID: "9P123", Raw: `{"status":5}`}
}

func failedVerdict() gateway.StatusResult {
    return gateway.StatusResult{Status: 6, Raw: `{"status":6}`}
}

func TestFinalizeSuccessMarksEverything(t *testing.T) {
    st := newFakeStore()
    now := time.Now().UTC()

    res, err := finalizePayment(context.Background(), st, 10, successVerdict(), now)
    require.NoError(t, err)
    require.True(t, res.Applied)
    require.True(t, res.Paid)

    require.Equal(t, model.PaymentSuccess, st.payment.Status)
    require.Equal(t, "9P123", st.payment.GatewayTxnID)
    require.Equal(t, model.BookingPaid, st.booking.Status)
    require.Empty(t, st.booking.SessionID)
    require.True(t, st.seatsSold)
    require.False(t, st.seatsReleased)
    require.True(t, st.usageCompleted)
    require.Len(t, st.history, 1)
    require.Equal(t, model.ActionPaymentSucceeded, st.history[0].Action)
}

func TestFinalizeIsIdempotent(t *testing.T) {
    st := newFakeStore()
    st.payment.Status = model.PaymentSuccess

    res, err := finalizePayment(context.Background(), st, 10, successVerdict(), time.Now().UTC())
    require.NoError(t, err)
    require.False(t, res.Applied)
    require.False(t, st.seatsSold)
    require.Empty(t, st.history)
}

func TestFinalizeProcessingDecidesNothing(t *testing.T) {
    st := newFakeStore()

    res, err := finalizePayment(context.Background(), st, 10,
        gateway.StatusResult{Status: 2}, time.Now().UTC())
    require.NoError(t, err)
    require.False(t, res.Applied)
    require.Equal(t, model.PaymentPending, st.payment.Status)
    require.Equal(t, model.BookingPending, st.booking.Status)
}

func TestFinalizeFailureReleasesSeats(t *testing.T) {
    st := newFakeStore()

    res, err := finalizePayment(context.Background(), st, 10, failedVerdict(), time.Now().UTC())
    require.NoError(t, err)
    require.True(t, res.Applied)
    require.False(t, res.Paid)

    require.Equal(t, model.PaymentFailed, st.payment.Status)
    require.Equal(t, model.BookingCancelled, st.booking.Status)
    require.True(t, st.seatsReleased)
    require.True(t, st.usageCancelled)
    require.False(t, st.seatsSold)
}

func TestFinalizeSeatConflictNeverReleases(t *testing.T) {
    st := newFakeStore()
    st.conflicts = []uint64{101}

    res, err := finalizePayment(context.Background(), st, 10, successVerdict(), time.Now().UTC())
    require.NoError(t, err)
    require.True(t, res.Applied)
    require.False(t, res.Paid)

    require.Equal(t, model.PaymentFailed, st.payment.Status)
    require.Equal(t, model.BookingCancelled, st.booking.Status)
    // The seats belong to another booking now; releasing them would free
    // someone else's claim.
    require.False(t, st.seatsReleased)
    require.False(t, st.seatsSold)
    require.True(t, st.usageCancelled)
}

func TestFinalizeSuccessOnSettledBookingFailsPayment(t *testing.T) {
    st := newFakeStore()
    st.booking.Status = model.BookingCancelled

    res, err := finalizePayment(context.Background(), st, 10, successVerdict(), time.Now().UTC())
    require.NoError(t, err)
    require.True(t, res.Applied)
    require.False(t, res.Paid)

    require.Equal(t, model.PaymentFailed, st.payment.Status)
    require.Equal(t, model.BookingCancelled, st.booking.Status)
    require.False(t, st.seatsSold)
    require.False(t, st.seatsReleased)
}

func TestFinalizeFailureOnPaidBookingOnlyFailsPayment(t *testing.T) {
    st := newFakeStore()
    st.booking.Status = model.BookingPaid

    res, err := finalizePayment(context.Background(), st, 10, failedVerdict(), time.Now().UTC())
    require.NoError(t, err)
    require.True(t, res.Applied)

    require.Equal(t, model.PaymentFailed, st.payment.Status)
    require.Equal(t, model.BookingPaid, st.booking.Status)
    require.False(t, st.seatsReleased)
}
