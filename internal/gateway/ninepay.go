// Package gateway implements the 9Pay payment gateway client: hosted-portal
// URL construction, server-to-server status inquiry and return-payload
// verification.  Nothing here touches the database; callers decide what a
// gateway answer means for a booking.
package gateway

import (
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "crypto/subtle"
    "encoding/base64"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "sort"
    "strconv"
    "strings"
    "time"
)

// Outcome is the tri-state verdict derived from a gateway status answer.
type Outcome int

const (
    OutcomeProcessing Outcome = iota // still in flight, decide nothing
    OutcomeSuccess                   // funds captured
    OutcomeFailed                    // failed or cancelled at the gateway
)

// Gateway payment statuses as documented by 9Pay.
const (
    statusProcessing1 = 2
    statusProcessing2 = 3
    statusSuccess     = 5
    statusFailed      = 6
    statusCancelled   = 8
)

// errorCodeOK is the error code accompanying a genuinely successful payment.
const errorCodeOK = "000"

// StatusResult is the decoded answer of a status inquiry or return payload.
type StatusResult struct {
    InvoiceNo    string // our transaction id, echoed back
    GatewayTxnID string // 9Pay's own payment number
    Amount       int64
    Status       int
    ErrorCode    string
    Raw          string // raw JSON body for the audit column
}

// Outcome maps the gateway status/error-code pair to a verdict.  Status 5 is
// only a success when the error code agrees; anything unrecognized counts as
// still processing so no booking is ever finalized on a guess.
func (r StatusResult) Outcome() Outcome {
    switch r.Status {
    case statusSuccess:
        if r.ErrorCode == errorCodeOK {
            return OutcomeSuccess
        }
        return OutcomeFailed
    case statusFailed, statusCancelled:
        return OutcomeFailed
    case statusProcessing1, statusProcessing2:
        return OutcomeProcessing
    default:
        return OutcomeProcessing
    }
}

// Client talks to the 9Pay HTTP API.  All requests are signed with HMAC-SHA256
// over a canonical message of method, URL, timestamp and sorted parameters.
type Client struct {
    merchantKey string
    secretKey   string
    checksumKey string
    baseURL     string
    httpClient  *http.Client
    now         func() time.Time
}

// NewClient builds a 9Pay client.  baseURL must not end with a slash.
func NewClient(merchantKey, secretKey, checksumKey, baseURL string) *Client {
    return &Client{
        merchantKey: merchantKey,
        secretKey:   secretKey,
        checksumKey: checksumKey,
        baseURL:     strings.TrimRight(baseURL, "/"),
        httpClient:  &http.Client{Timeout: 15 * time.Second},
        now:         time.Now,
    }
}

// PaymentRequest carries the fields of one hosted-portal payment.
type PaymentRequest struct {
    InvoiceNo   string // our unique transaction id
    Amount      int64  // smallest currency unit
    Description string
    BackURL     string // where the browser returns after the portal
    ReturnURL   string // server-to-server notify URL
}

// PaymentURL builds the hosted-portal redirect URL for a payment.  The
// browser is sent here; no HTTP request to the gateway happens in this call,
// so it is safe to invoke after the local payment row has been committed.
func (c *Client) PaymentURL(req PaymentRequest) (string, error) {
    ts := strconv.FormatInt(c.now().UTC().Unix(), 10)
    params := map[string]string{
        "merchantKey": c.merchantKey,
        "time":        ts,
        "invoice_no":  req.InvoiceNo,
        "amount":      strconv.FormatInt(req.Amount, 10),
        "description": req.Description,
        "back_url":    req.BackURL,
        "return_url":  req.ReturnURL,
    }

    message := "POST" + "\n" + c.baseURL + "/payments/create" + "\n" + ts + "\n" + sortedQuery(params)
    signature := c.sign(message)

    body, err := json.Marshal(params)
    if err != nil {
        return "", fmt.Errorf("marshal payment params: %w", err)
    }
    baseEncode := base64.StdEncoding.EncodeToString(body)

    q := url.Values{}
    q.Set("baseEncode", baseEncode)
    q.Set("signature", signature)
    return c.baseURL + "/portal?" + q.Encode(), nil
}

// QueryStatus asks the gateway for the current state of an invoice.  This is
// the authoritative answer used by the payment-sync sweep and by return
// handling, which never trusts browser-delivered parameters alone.
func (c *Client) QueryStatus(ctx context.Context, invoiceNo string) (StatusResult, error) {
    endpoint := c.baseURL + "/v2/payments/" + url.PathEscape(invoiceNo) + "/inquire"
    ts := strconv.FormatInt(c.now().UTC().Unix(), 10)

    message := "GET" + "\n" + endpoint + "\n" + ts
    signature := c.sign(message)

    httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
    if err != nil {
        return StatusResult{}, fmt.Errorf("build inquire request: %w", err)
    }
    httpReq.Header.Set("Date", ts)
    httpReq.Header.Set("Authorization",
        fmt.Sprintf("Signature Algorithm=HS256,Credential=%s,SignedHeaders=,Signature=%s",
            c.merchantKey, signature))

    resp, err := c.httpClient.Do(httpReq)
    if err != nil {
        return StatusResult{}, fmt.Errorf("inquire %s: %w", invoiceNo, err)
    }
    defer resp.Body.Close()

    raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
    if err != nil {
        return StatusResult{}, fmt.Errorf("read inquire response: %w", err)
    }
    if resp.StatusCode != http.StatusOK {
        return StatusResult{}, fmt.Errorf("inquire %s: gateway returned %d", invoiceNo, resp.StatusCode)
    }
    return decodeStatus(raw)
}

// VerifyReturn checks the checksum the gateway attached to a browser return:
// upper-case hex SHA-256 over the result payload concatenated with the
// checksum key, compared in constant time.
func (c *Client) VerifyReturn(result, checksum string) bool {
    sum := sha256.Sum256([]byte(result + c.checksumKey))
    want := strings.ToUpper(hex.EncodeToString(sum[:]))
    return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToUpper(checksum))) == 1
}

// ParseReturn decodes the base64 result payload of a browser return.  The
// gateway strips base64 padding, so it is restored before decoding.
func (c *Client) ParseReturn(result string) (StatusResult, error) {
    if m := len(result) % 4; m != 0 {
        result += strings.Repeat("=", 4-m)
    }
    raw, err := base64.StdEncoding.DecodeString(result)
    if err != nil {
        return StatusResult{}, fmt.Errorf("decode return payload: %w", err)
    }
    return decodeStatus(raw)
}

// decodeStatus unpacks the gateway's JSON answer.  Amount may arrive as a
// number or a numeric string depending on the endpoint.
func decodeStatus(raw []byte) (StatusResult, error) {
    var body struct {
        InvoiceNo string          `json:"invoice_no"`
        PaymentNo string          `json:"payment_no"`
        Amount    json.RawMessage `json:"amount"`
        Status    int             `json:"status"`
        ErrorCode string          `json:"error_code"`
    }
    if err := json.Unmarshal(raw, &body); err != nil {
        return StatusResult{}, fmt.Errorf("unmarshal gateway response: %w", err)
    }
    res := StatusResult{
        InvoiceNo:    body.InvoiceNo,
        GatewayTxnID: body.PaymentNo,
        Status:       body.Status,
        ErrorCode:    body.ErrorCode,
        Raw:          string(raw),
    }
    if len(body.Amount) > 0 {
        s := strings.Trim(string(body.Amount), `"`)
        if n, err := strconv.ParseInt(s, 10, 64); err == nil {
            res.Amount = n
        }
    }
    return res, nil
}

// sign computes the base64 HMAC-SHA256 of message under the secret key.
func (c *Client) sign(message string) string {
    mac := hmac.New(sha256.New, []byte(c.secretKey))
    mac.Write([]byte(message))
    return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// sortedQuery renders params as a query string with keys in ascending order,
// the canonical form the gateway signs.
func sortedQuery(params map[string]string) string {
    keys := make([]string, 0, len(params))
    for k := range params {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    var b strings.Builder
    for i, k := range keys {
        if i > 0 {
            b.WriteByte('&')
        }
        b.WriteString(k)
        b.WriteByte('=')
        b.WriteString(url.QueryEscape(params[k]))
    }
    return b.String()
}
