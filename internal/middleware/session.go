package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/theater-ticket-booking/internal/utils"
)

// SessionAuth returns an Echo middleware that validates a Bearer session
// token and injects the session identifier into the request context.  The
// session is anonymous: it identifies a browsing visitor, not an account.
// Handlers read it via c.Get("session_id").
func SessionAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            sid := utils.ParseSessionID(secret, raw)
            if sid == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
            }

            c.Set("session_id", sid)
            return next(c)
        }
    }
}

// SessionID reads the session identifier a SessionAuth middleware stored on
// the context.
func SessionID(c echo.Context) string {
    if v, ok := c.Get("session_id").(string); ok {
        return v
    }
    return ""
}
