package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
    tok, err := NewSessionToken("top-secret", time.Hour)
    require.NoError(t, err)
    require.NotEmpty(t, tok.Token)
    require.NotEmpty(t, tok.SessionID)

    sid := ParseSessionID("top-secret", tok.Token)
    assert.Equal(t, tok.SessionID, sid)
}

func TestSessionTokenWrongSecret(t *testing.T) {
    tok, err := NewSessionToken("top-secret", time.Hour)
    require.NoError(t, err)

    assert.Empty(t, ParseSessionID("other-secret", tok.Token))
}

func TestSessionTokenExpired(t *testing.T) {
    tok, err := NewSessionToken("top-secret", -time.Minute)
    require.NoError(t, err)

    assert.Empty(t, ParseSessionID("top-secret", tok.Token))
}

func TestSessionTokenGarbage(t *testing.T) {
    assert.Empty(t, ParseSessionID("top-secret", "not.a.token"))
}

func TestSessionIDsAreUnique(t *testing.T) {
    a, err := NewSessionToken("top-secret", time.Hour)
    require.NoError(t, err)
    b, err := NewSessionToken("top-secret", time.Hour)
    require.NoError(t, err)
    assert.NotEqual(t, a.SessionID, b.SessionID)
}
