package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/theater-ticket-booking/internal/middleware"
    "github.com/iliyamo/theater-ticket-booking/internal/service"
)

// BookingHandler exposes booking creation, lookup, cancellation and the
// box-office search.
type BookingHandler struct {
    bookings *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
    return &BookingHandler{bookings: bookings}
}

// Create handles POST /v1/bookings.  It turns the session's seat holds into
// a pending booking with a payment deadline.
func (h *BookingHandler) Create(c echo.Context) error {
    var body struct {
        PerformanceID uint64   `json:"performance_id"`
        SeatIDs       []uint64 `json:"seat_ids"`
        CustomerName  string   `json:"customer_name"`
        CustomerEmail string   `json:"customer_email"`
        CustomerPhone string   `json:"customer_phone"`
        CustomerIDNo  string   `json:"customer_id_number"`
        CustomerAddr  string   `json:"customer_address"`
        ShippingTime  string   `json:"shipping_time"`
        DiscountCode  string   `json:"discount_code"`
        Notes         string   `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PerformanceID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "performance_id is required"})
    }

    view, err := h.bookings.Create(c.Request().Context(), service.CreateBookingRequest{
        PerformanceID: body.PerformanceID,
        SeatIDs:       body.SeatIDs,
        SessionID:     middleware.SessionID(c),
        ClientIP:      c.RealIP(),
        CustomerName:  body.CustomerName,
        CustomerEmail: body.CustomerEmail,
        CustomerPhone: body.CustomerPhone,
        CustomerIDNo:  body.CustomerIDNo,
        CustomerAddr:  body.CustomerAddr,
        ShippingTime:  body.ShippingTime,
        DiscountCode:  body.DiscountCode,
        Notes:         body.Notes,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, view)
}

// Get handles GET /v1/bookings/:code.  The booking code works as a
// capability: whoever holds it may view the booking.
func (h *BookingHandler) Get(c echo.Context) error {
    code := c.Param("code")
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking code is required"})
    }
    view, err := h.bookings.GetByCode(c.Request().Context(), code)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// Cancel handles DELETE /v1/bookings/:code.  Only the creating session may
// cancel, and only while the booking is pending with no payment in flight.
func (h *BookingHandler) Cancel(c echo.Context) error {
    code := c.Param("code")
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking code is required"})
    }
    if err := h.bookings.Cancel(c.Request().Context(), code, middleware.SessionID(c), c.RealIP()); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Search handles GET /v1/search/bookings?q=...  It finds paid bookings by
// exact booking code or customer phone across upcoming performances.
func (h *BookingHandler) Search(c echo.Context) error {
    query := c.QueryParam("q")
    since := time.Now().UTC().Truncate(24 * time.Hour)
    found, err := h.bookings.Search(c.Request().Context(), query, since)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": found})
}
