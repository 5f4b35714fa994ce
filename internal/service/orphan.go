package service

import (
    "sort"
    "strconv"
    "strings"

    "github.com/iliyamo/theater-ticket-booking/internal/model"
)

// orphanSeats simulates the occupancy of one row after a proposed selection
// and returns the labels of seats that would be left stranded: an empty seat
// with occupied seats strictly on both sides.  Gaps at either end of the row
// are fine; a lone empty seat in the middle is what the rule forbids.
//
// rowSeats must be the row's active seats ordered by position.  occupied is
// the current occupancy (reserved, sold, blocked), picked is the selection
// being added.
func orphanSeats(rowSeats []model.Seat, occupied, picked map[uint64]struct{}) []string {
    taken := make([]bool, len(rowSeats))
    for i, s := range rowSeats {
        if _, ok := occupied[s.ID]; ok {
            taken[i] = true
        }
        if _, ok := picked[s.ID]; ok {
            taken[i] = true
        }
    }

    var out []string
    for i := range rowSeats {
        if taken[i] {
            continue
        }
        leftTaken := i > 0 && taken[i-1]
        rightTaken := i+1 < len(rowSeats) && taken[i+1]
        if leftTaken && rightTaken {
            out = append(out, rowSeats[i].Label)
        }
    }
    return out
}

// seatLabels renders "RowLabel-SeatLabel" names for error messages, sorted
// for stable output.
func seatLabels(rowLabel string, labels []string) []string {
    out := make([]string, len(labels))
    for i, l := range labels {
        out[i] = rowLabel + "-" + l
    }
    sort.Strings(out)
    return out
}

// seatIDsJSON renders a seat id list as a compact JSON array for the audit
// trail without pulling in a struct type.
func seatIDsJSON(ids []uint64) string {
    if len(ids) == 0 {
        return "[]"
    }
    var b strings.Builder
    b.WriteByte('[')
    for i, id := range ids {
        if i > 0 {
            b.WriteByte(',')
        }
        b.WriteString(strconv.FormatUint(id, 10))
    }
    b.WriteByte(']')
    return b.String()
}
