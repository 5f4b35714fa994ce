package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/theater-ticket-booking/internal/utils"
)

func runSession(t *testing.T, secret, header string) (*httptest.ResponseRecorder, string) {
    t.Helper()
    e := echo.New()
    var gotSID string
    h := SessionAuth(secret)(func(c echo.Context) error {
        gotSID = SessionID(c)
        return c.NoContent(http.StatusOK)
    })

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    if header != "" {
        req.Header.Set("Authorization", header)
    }
    rec := httptest.NewRecorder()
    require.NoError(t, h(e.NewContext(req, rec)))
    return rec, gotSID
}

func TestSessionAuthAcceptsValidToken(t *testing.T) {
    tok, err := utils.NewSessionToken("secret", time.Hour)
    require.NoError(t, err)

    rec, sid := runSession(t, "secret", "Bearer "+tok.Token)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, tok.SessionID, sid)
}

func TestSessionAuthRejectsMissingHeader(t *testing.T) {
    rec, _ := runSession(t, "secret", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRejectsWrongSecret(t *testing.T) {
    tok, err := utils.NewSessionToken("other", time.Hour)
    require.NoError(t, err)

    rec, _ := runSession(t, "secret", "Bearer "+tok.Token)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRejectsExpiredToken(t *testing.T) {
    tok, err := utils.NewSessionToken("secret", -time.Minute)
    require.NoError(t, err)

    rec, _ := runSession(t, "secret", "Bearer "+tok.Token)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
