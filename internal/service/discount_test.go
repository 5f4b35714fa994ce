package service

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

func TestDiscountAmountPercentageRounds(t *testing.T) {
    d := &model.Discount{Type: model.DiscountPercentage, Value: 15}
    // 15% of 333 = 49.95, rounds to 50.
    assert.Equal(t, int64(50), discountAmount(d, 333))

    d.Value = 10
    assert.Equal(t, int64(33), discountAmount(d, 334)) // 33.4 rounds down
}

func TestDiscountAmountFixed(t *testing.T) {
    d := &model.Discount{Type: model.DiscountFixedAmount, Value: 2000}
    assert.Equal(t, int64(2000), discountAmount(d, 5000))
}

func TestDiscountAmountCappedAtTicketTotal(t *testing.T) {
    d := &model.Discount{Type: model.DiscountFixedAmount, Value: 9000}
    // The discount never touches fees: it is capped at the ticket total.
    assert.Equal(t, int64(5000), discountAmount(d, 5000))

    d = &model.Discount{Type: model.DiscountPercentage, Value: 150}
    assert.Equal(t, int64(5000), discountAmount(d, 5000))
}

func TestDiscountAmountNeverNegative(t *testing.T) {
    d := &model.Discount{Type: model.DiscountFixedAmount, Value: -100}
    assert.Equal(t, int64(0), discountAmount(d, 5000))
}

func TestDiscountAmountUnknownTypeIsZero(t *testing.T) {
    d := &model.Discount{Type: "MYSTERY", Value: 50}
    assert.Equal(t, int64(0), discountAmount(d, 5000))
}
