package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/theater-ticket-booking/internal/middleware"
    "github.com/iliyamo/theater-ticket-booking/internal/service"
)

// PaymentHandler exposes payment start, the gateway return endpoint and
// status polling.
type PaymentHandler struct {
    payments *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
    return &PaymentHandler{payments: payments}
}

// Start handles POST /v1/bookings/:code/payments.  It creates a payment
// attempt and returns the gateway portal URL the client should redirect to.
func (h *PaymentHandler) Start(c echo.Context) error {
    code := c.Param("code")
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking code is required"})
    }
    var body struct {
        Method string `json:"method"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    result, err := h.payments.Start(c.Request().Context(), code, middleware.SessionID(c), body.Method)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, result)
}

// Return handles GET /v1/payments/return, the browser's way back from the
// gateway portal.  Whatever happens, the customer ends up on a frontend
// page; errors only change which one.
func (h *PaymentHandler) Return(c echo.Context) error {
    redirect, err := h.payments.HandleReturn(c.Request().Context(),
        c.QueryParam("result"), c.QueryParam("checksum"))
    if err != nil {
        c.Logger().Warnf("payment return: %v", err)
    }
    return c.Redirect(http.StatusFound, redirect)
}

// Status handles GET /v1/payments/:transaction_id for client polling while
// the gateway settles.
func (h *PaymentHandler) Status(c echo.Context) error {
    transactionID := c.Param("transaction_id")
    if transactionID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction id is required"})
    }
    p, err := h.payments.Status(c.Request().Context(), transactionID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "transaction_id": p.TransactionID,
        "status":         p.Status,
        "amount":         p.Amount,
        "paid_at":        p.PaidAt,
    })
}
