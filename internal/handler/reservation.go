package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/theater-ticket-booking/internal/middleware"
    "github.com/iliyamo/theater-ticket-booking/internal/service"
)

// ReservationHandler exposes the seat map and the session hold endpoints.
type ReservationHandler struct {
    reservations *service.ReservationService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
    return &ReservationHandler{reservations: reservations}
}

// SeatMap handles GET /v1/performances/:id/seats.  Public: guests browse the
// map before starting a session.
func (h *ReservationHandler) SeatMap(c echo.Context) error {
    performanceID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
    }
    payload, err := h.reservations.SeatMapJSON(c.Request().Context(), performanceID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSONBlob(http.StatusOK, payload)
}

// Reserve handles POST /v1/performances/:id/reserve.  The request body must
// contain a "seat_ids" array; all requested seats are held atomically or the
// call fails with 409.
func (h *ReservationHandler) Reserve(c echo.Context) error {
    performanceID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
    }
    var body struct {
        SeatIDs []uint64 `json:"seat_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    result, err := h.reservations.Reserve(c.Request().Context(), service.ReserveRequest{
        PerformanceID: performanceID,
        SeatIDs:       body.SeatIDs,
        SessionID:     middleware.SessionID(c),
        ClientIP:      c.RealIP(),
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, result)
}

// Release handles DELETE /v1/performances/:id/reserve.  Only booking-less
// holds owned by the calling session are freed; the call is idempotent.
func (h *ReservationHandler) Release(c echo.Context) error {
    performanceID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
    }
    var body struct {
        SeatIDs []uint64 `json:"seat_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    released, err := h.reservations.Release(c.Request().Context(), performanceID,
        middleware.SessionID(c), c.RealIP(), body.SeatIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// MySelection handles GET /v1/performances/:id/my-selection.  It restores a
// session's live holds after a page reload.
func (h *ReservationHandler) MySelection(c echo.Context) error {
    performanceID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
    }
    seats, err := h.reservations.SessionSelection(c.Request().Context(), performanceID, middleware.SessionID(c))
    if err != nil {
        return respondError(c, err)
    }
    out := make([]echo.Map, 0, len(seats))
    for _, s := range seats {
        out = append(out, echo.Map{
            "seat_id":    s.SeatID,
            "row":        s.RowLabel,
            "label":      s.SeatLabel,
            "section":    s.SectionName,
            "price":      s.Price,
            "expires_at": s.ExpiresAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"seats": out})
}

// paramID parses a positive uint64 path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, echo.ErrBadRequest
    }
    return id, nil
}
