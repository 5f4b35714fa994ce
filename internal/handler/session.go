package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/theater-ticket-booking/internal/config"
    "github.com/iliyamo/theater-ticket-booking/internal/utils"
)

// SessionHandler issues anonymous browsing sessions.  A session token is the
// only credential in the system: it marks seat-hold ownership, nothing else.
type SessionHandler struct {
    cfg config.Config
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(cfg config.Config) *SessionHandler {
    return &SessionHandler{cfg: cfg}
}

// Create handles POST /v1/sessions.  It mints a fresh signed session token
// and returns it with its expiry; the client presents it as a Bearer token
// on every stateful call.
func (h *SessionHandler) Create(c echo.Context) error {
    tok, err := utils.NewSessionToken(h.cfg.SessionSecret, h.cfg.SessionTTL)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "session_token": tok.Token,
        "expires_at":    tok.Exp,
    })
}
