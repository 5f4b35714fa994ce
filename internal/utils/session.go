package utils // package utils provides helper functions for session token creation

import (
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // random session identifiers
)

// SessionToken is an anonymous browsing-session credential.  The Token field
// contains the signed JWT handed to the client; SessionID is the random
// identifier embedded in it, which the seat ledger uses as the hold owner.
type SessionToken struct {
    Token     string    // the serialized JWT string
    SessionID string    // the session identifier carried in the "sid" claim
    Exp       time.Time // the UTC expiration time
}

// NewSessionToken mints a fresh session: a random UUID wrapped in a signed
// HS256 JWT with standard exp/iat claims.  No account is involved; the
// token only proves continuity of the same anonymous visitor.
func NewSessionToken(secret string, ttl time.Duration) (SessionToken, error) {
    sid := uuid.NewString()
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sid": sid,
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, SessionID: sid, Exp: exp}, nil
}

// ParseSessionID validates a session token and returns the embedded session
// identifier.  An empty string means the token is missing, malformed,
// expired or signed with the wrong key.
func ParseSessionID(secret, raw string) string {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, jwt.ErrSignatureInvalid
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return ""
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return ""
    }
    sid, _ := claims["sid"].(string)
    return sid
}
