package cache

import (
    "context"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/theater-ticket-booking/internal/config"
)

func testCfg() config.SeatMapCacheConfig {
    return config.SeatMapCacheConfig{Enabled: true, TTL: 30 * time.Second, Prefix: "seatmap"}
}

func TestSeatMapGetHit(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    c := NewSeatMap(rdb, testCfg())

    mock.ExpectGet("seatmap:7").SetVal(`{"performance_id":7}`)

    payload, ok := c.Get(context.Background(), 7)
    require.True(t, ok)
    assert.JSONEq(t, `{"performance_id":7}`, string(payload))
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapGetMiss(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    c := NewSeatMap(rdb, testCfg())

    mock.ExpectGet("seatmap:7").RedisNil()

    _, ok := c.Get(context.Background(), 7)
    assert.False(t, ok)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapSetAndInvalidate(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    c := NewSeatMap(rdb, testCfg())

    payload := []byte(`{"performance_id":7}`)
    mock.ExpectSet("seatmap:7", payload, 30*time.Second).SetVal("OK")
    mock.ExpectDel("seatmap:7").SetVal(1)

    c.Set(context.Background(), 7, payload)
    c.Invalidate(context.Background(), 7)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapDisabledIsNoop(t *testing.T) {
    cfg := testCfg()
    cfg.Enabled = false
    rdb, mock := redismock.NewClientMock()
    c := NewSeatMap(rdb, cfg)

    _, ok := c.Get(context.Background(), 7)
    assert.False(t, ok)
    c.Set(context.Background(), 7, []byte("x"))
    c.Invalidate(context.Background(), 7)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapNilClientIsNoop(t *testing.T) {
    c := NewSeatMap(nil, testCfg())
    _, ok := c.Get(context.Background(), 7)
    assert.False(t, ok)
    c.Set(context.Background(), 7, []byte("x"))
    c.Invalidate(context.Background(), 7)
}
