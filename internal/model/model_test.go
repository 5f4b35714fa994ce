package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestPerformanceOnSale(t *testing.T) {
    now := time.Now().UTC()
    p := Performance{Status: PerformanceOnSale, StartsAt: now.Add(time.Hour)}
    assert.True(t, p.OnSale(now))

    p.Status = PerformanceScheduled
    assert.False(t, p.OnSale(now))

    // A performance in the past is never on sale.
    p.Status = PerformanceOnSale
    p.StartsAt = now.Add(-time.Hour)
    assert.False(t, p.OnSale(now))
}

func TestSeatEffectivePrice(t *testing.T) {
    row := &SeatRow{DefaultPrice: 1000}
    override := int64(1500)
    perfPrice := int64(2000)

    s := Seat{}
    assert.Equal(t, int64(1000), s.EffectivePrice(row, nil))

    s.PriceOverride = &override
    assert.Equal(t, int64(1500), s.EffectivePrice(row, nil))

    // A per-performance price wins over everything.
    assert.Equal(t, int64(2000), s.EffectivePrice(row, &perfPrice))
}

func TestSeatReservationExpired(t *testing.T) {
    now := time.Now().UTC()
    past := now.Add(-time.Minute)
    future := now.Add(time.Minute)

    r := SeatReservation{Status: SeatReserved, ExpiresAt: &past}
    assert.True(t, r.Expired(now))

    r.ExpiresAt = &future
    assert.False(t, r.Expired(now))

    // Sold rows never expire even with a stale deadline on them.
    r = SeatReservation{Status: SeatSold, ExpiresAt: &past}
    assert.False(t, r.Expired(now))
}

func TestBookingSecondsRemaining(t *testing.T) {
    now := time.Now().UTC()
    b := Booking{ExpiresAt: now.Add(90 * time.Second)}
    assert.Equal(t, int64(90), b.SecondsRemaining(now))

    b.ExpiresAt = now.Add(-time.Minute)
    assert.Equal(t, int64(0), b.SecondsRemaining(now))
}

func TestDiscountEligibleFor(t *testing.T) {
    now := time.Now().UTC()
    d := Discount{
        IsActive:  true,
        ValidFrom: now.Add(-time.Hour),
        AllUsers:  true,
    }
    ok, reason := d.EligibleFor(now, "", "")
    assert.True(t, ok)
    assert.Empty(t, reason)

    d.IsActive = false
    ok, _ = d.EligibleFor(now, "", "")
    assert.False(t, ok)
}

func TestDiscountEligibleForWindow(t *testing.T) {
    now := time.Now().UTC()
    future := now.Add(time.Hour)
    past := now.Add(-time.Hour)

    d := Discount{IsActive: true, ValidFrom: future, AllUsers: true}
    ok, reason := d.EligibleFor(now, "", "")
    assert.False(t, ok)
    assert.Contains(t, reason, "not yet valid")

    d = Discount{IsActive: true, ValidFrom: past.Add(-time.Hour), ValidTo: &past, AllUsers: true}
    ok, reason = d.EligibleFor(now, "", "")
    assert.False(t, ok)
    assert.Contains(t, reason, "expired")
}

func TestDiscountEligibleForAllowlist(t *testing.T) {
    now := time.Now().UTC()
    d := Discount{
        IsActive:     true,
        ValidFrom:    now.Add(-time.Hour),
        AllUsers:     false,
        AllowedUsers: "vip@example.com, 0912345678",
    }

    ok, _ := d.EligibleFor(now, "vip@example.com", "")
    assert.True(t, ok)

    ok, _ = d.EligibleFor(now, "", "0912345678")
    assert.True(t, ok)

    ok, reason := d.EligibleFor(now, "nobody@example.com", "000")
    assert.False(t, ok)
    assert.Contains(t, reason, "not eligible")

    ok, reason = d.EligibleFor(now, "", "")
    assert.False(t, ok)
    assert.Contains(t, reason, "required")
}
