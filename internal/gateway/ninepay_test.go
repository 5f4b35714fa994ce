package gateway

import (
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
    c := NewClient("merchant-1", "secret-1", "checksum-1", baseURL)
    c.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
    return c
}

func TestOutcomeMapping(t *testing.T) {
    cases := []struct {
        status    int
        errorCode string
        want      Outcome
    }{
        {5, "000", OutcomeSuccess},
        {5, "999", OutcomeFailed}, // status 5 without the ok code is not a success
        {6, "", OutcomeFailed},
        {8, "", OutcomeFailed},
        {2, "", OutcomeProcessing},
        {3, "", OutcomeProcessing},
        {42, "", OutcomeProcessing}, // unknown statuses decide nothing
    }
    for _, tc := range cases {
        got := StatusResult{Status: tc.status, ErrorCode: tc.errorCode}.Outcome()
        assert.Equal(t, tc.want, got, "status=%d error=%q", tc.status, tc.errorCode)
    }
}

func TestVerifyReturn(t *testing.T) {
    c := testClient("https://pay.example")
    result := "eyJpbnZvaWNlX25vIjoiQUJDIn0"

    sum := sha256.Sum256([]byte(result + "checksum-1"))
    checksum := strings.ToUpper(hex.EncodeToString(sum[:]))

    assert.True(t, c.VerifyReturn(result, checksum))
    assert.True(t, c.VerifyReturn(result, strings.ToLower(checksum)))
    assert.False(t, c.VerifyReturn(result, "DEADBEEF"))
    assert.False(t, c.VerifyReturn(result+"x", checksum))
}

func TestParseReturnRestoresPadding(t *testing.T) {
    c := testClient("https://pay.example")
    payload := `{"invoice_no":"INV42","payment_no":"9P77","amount":"5000","status":5,"error_code":"000"}`
    encoded := strings.TrimRight(base64.StdEncoding.EncodeToString([]byte(payload)), "=")

    res, err := c.ParseReturn(encoded)
    require.NoError(t, err)
    assert.Equal(t, "INV42", res.InvoiceNo)
    assert.Equal(t, "9P77", res.GatewayTxnID)
    assert.Equal(t, int64(5000), res.Amount)
    assert.Equal(t, 5, res.Status)
    assert.Equal(t, OutcomeSuccess, res.Outcome())
}

func TestParseReturnRejectsGarbage(t *testing.T) {
    c := testClient("https://pay.example")
    _, err := c.ParseReturn("!!!not-base64!!!")
    assert.Error(t, err)
}

func TestPaymentURLSignsCanonicalMessage(t *testing.T) {
    c := testClient("https://pay.example")

    payURL, err := c.PaymentURL(PaymentRequest{
        InvoiceNo:   "INV42",
        Amount:      5000,
        Description: "Tickets BKTEST42",
        BackURL:     "https://shop.example/return",
        ReturnURL:   "https://shop.example/return",
    })
    require.NoError(t, err)

    u, err := url.Parse(payURL)
    require.NoError(t, err)
    assert.Equal(t, "/portal", u.Path)

    q := u.Query()
    decoded, err := base64.StdEncoding.DecodeString(q.Get("baseEncode"))
    require.NoError(t, err)
    var params map[string]string
    require.NoError(t, json.Unmarshal(decoded, &params))
    assert.Equal(t, "merchant-1", params["merchantKey"])
    assert.Equal(t, "INV42", params["invoice_no"])
    assert.Equal(t, "5000", params["amount"])
    assert.Equal(t, "1700000000", params["time"])

    message := "POST\nhttps://pay.example/payments/create\n1700000000\n" + sortedQuery(params)
    mac := hmac.New(sha256.New, []byte("secret-1"))
    mac.Write([]byte(message))
    want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
    assert.Equal(t, want, q.Get("signature"))
}

func TestSortedQueryOrdersKeys(t *testing.T) {
    got := sortedQuery(map[string]string{"b": "2", "a": "1", "c": "x y"})
    assert.Equal(t, "a=1&b=2&c=x+y", got)
}

func TestQueryStatusSignsAndDecodes(t *testing.T) {
    var gotAuth, gotPath string
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotAuth = r.Header.Get("Authorization")
        gotPath = r.URL.Path
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "invoice_no": "INV42",
            "payment_no": "9P77",
            "amount":     5000,
            "status":     6,
        })
    }))
    defer srv.Close()

    c := testClient(srv.URL)
    res, err := c.QueryStatus(context.Background(), "INV42")
    require.NoError(t, err)

    assert.Equal(t, "/v2/payments/INV42/inquire", gotPath)

    // The gateway verifies HMAC-SHA256 over exactly "GET\n{url}\n{ts}", so
    // the header is checked against an independently computed signature.
    mac := hmac.New(sha256.New, []byte("secret-1"))
    mac.Write([]byte("GET\n" + srv.URL + "/v2/payments/INV42/inquire\n1700000000"))
    want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
    assert.Equal(t,
        "Signature Algorithm=HS256,Credential=merchant-1,SignedHeaders=,Signature="+want,
        gotAuth)
    assert.Equal(t, "INV42", res.InvoiceNo)
    assert.Equal(t, int64(5000), res.Amount)
    assert.Equal(t, OutcomeFailed, res.Outcome())
}

func TestQueryStatusGatewayError(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusBadGateway)
    }))
    defer srv.Close()

    c := testClient(srv.URL)
    _, err := c.QueryStatus(context.Background(), "INV42")
    assert.Error(t, err)
}
