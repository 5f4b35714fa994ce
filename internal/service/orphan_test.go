package service

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

func row(n int) []model.Seat {
    seats := make([]model.Seat, n)
    for i := range seats {
        seats[i] = model.Seat{ID: uint64(i + 1), Position: uint32(i + 1), Label: string(rune('1' + i))}
    }
    return seats
}

func set(ids ...uint64) map[uint64]struct{} {
    m := make(map[uint64]struct{}, len(ids))
    for _, id := range ids {
        m[id] = struct{}{}
    }
    return m
}

func TestOrphanSeatsMiddleGap(t *testing.T) {
    // Picking seats 1 and 3 strands seat 2 between them.
    stranded := orphanSeats(row(5), set(), set(1, 3))
    assert.Equal(t, []string{"2"}, stranded)
}

func TestOrphanSeatsEdgeGapAllowed(t *testing.T) {
    // Picking 2..5 leaves seat 1 free at the aisle end; that is fine.
    stranded := orphanSeats(row(5), set(), set(2, 3, 4, 5))
    assert.Empty(t, stranded)
}

func TestOrphanSeatsAgainstExistingOccupancy(t *testing.T) {
    // Seat 5 is already taken; picking seat 3 strands seat 4.
    stranded := orphanSeats(row(5), set(5), set(3))
    assert.Equal(t, []string{"4"}, stranded)
}

func TestOrphanSeatsContiguousPick(t *testing.T) {
    stranded := orphanSeats(row(5), set(), set(2, 3))
    assert.Empty(t, stranded)
}

func TestOrphanSeatsMultipleStranded(t *testing.T) {
    // 7-seat row, picking 1 3 5 strands 2 and 4.
    stranded := orphanSeats(row(7), set(), set(1, 3, 5))
    assert.Equal(t, []string{"2", "4"}, stranded)
}

func TestOrphanSeatsEmptyRowUntouched(t *testing.T) {
    assert.Empty(t, orphanSeats(row(5), set(), set()))
}
