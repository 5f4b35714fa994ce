package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/theater-ticket-booking/internal/handler"
    "github.com/iliyamo/theater-ticket-booking/internal/middleware"
)

// RegisterPublic registers routes that do not require a session token.
// Guests browse the seat map, look up bookings by code and receive the
// gateway's browser return here.
func RegisterPublic(e *echo.Echo, s *handler.SessionHandler, r *handler.ReservationHandler,
    b *handler.BookingHandler, p *handler.PaymentHandler) {
    // Health check for load balancers and monitoring.
    e.GET("/healthz", handler.Health)

    // Mint an anonymous browsing session.
    e.POST("/v1/sessions", s.Create)

    // Seat availability for one performance.
    e.GET("/v1/performances/:id/seats", r.SeatMap)

    // Booking lookup and box-office search.  The booking code acts as the
    // capability; no session is needed to view.
    e.GET("/v1/bookings/:code", b.Get)
    e.GET("/v1/search/bookings", b.Search)

    // Gateway endpoints.  The browser returns from the portal without our
    // session header, so these cannot sit behind SessionAuth.
    e.GET("/v1/payments/return", p.Return)
    e.GET("/v1/payments/:transaction_id", p.Status)
}

// RegisterSession registers endpoints that mutate state on behalf of a
// session.  All of them require a valid Bearer session token; the session
// identifier is what ties holds and bookings to the caller.
func RegisterSession(e *echo.Echo, sessionSecret string, r *handler.ReservationHandler,
    b *handler.BookingHandler, p *handler.PaymentHandler) {
    g := e.Group("/v1", middleware.SessionAuth(sessionSecret))

    // Seat holds.
    g.POST("/performances/:id/reserve", r.Reserve)
    g.DELETE("/performances/:id/reserve", r.Release)
    g.GET("/performances/:id/my-selection", r.MySelection)

    // Booking lifecycle.
    g.POST("/bookings", b.Create)
    g.DELETE("/bookings/:code", b.Cancel)

    // Payment start.
    g.POST("/bookings/:code/payments", p.Start)
}
