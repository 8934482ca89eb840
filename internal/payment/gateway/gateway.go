// Package gateway signs outbound payment-gateway requests and authenticates
// inbound callbacks before anything touches persisted state.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"go.uber.org/fx"
)

const (
	SignatureHeader  = "X-Gateway-Signature"
	defaultTolerance = 5 * time.Minute
)

var (
	ErrInvalidSignature = apperr.Unauthorized("invalid_gateway_signature")
	ErrNotConfigured    = apperr.Unauthorized("gateway_not_configured")
	ErrInvalidPayload   = apperr.Validation("invalid_gateway_payload")
)

// Callback is the body the gateway posts once a payment attempt settles.
type Callback struct {
	OrderID       string          `json:"orderId"`
	TransactionID string          `json:"transactionId"`
	ResultCode    json.RawMessage `json:"resultCode"`
	Amount        int64           `json:"amount"`
	Message       string          `json:"message"`
}

// Code returns the result code as text whether the gateway sent it as a
// number or a string.
func (c Callback) Code() string {
	return strings.Trim(strings.TrimSpace(string(c.ResultCode)), `"`)
}

type Params struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
}

type Verifier struct {
	secret      []byte
	successCode string
	tolerance   time.Duration
	clock       clock.Clock
}

func NewVerifier(p Params) *Verifier {
	return &Verifier{
		secret:      []byte(strings.TrimSpace(p.Config.Gateway.Secret)),
		successCode: p.Config.Gateway.SuccessCode,
		tolerance:   defaultTolerance,
		clock:       p.Clock,
	}
}

func (v *Verifier) SuccessCode() string {
	return v.successCode
}

// Sign returns the header value for body signed at ts.
func (v *Verifier) Sign(ts time.Time, body []byte) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, v.mac(timestamp, body))
}

// SignRequest attaches a signature to an outbound gateway request.
func (v *Verifier) SignRequest(req *http.Request, body []byte) {
	req.Header.Set(SignatureHeader, v.Sign(v.clock.Now(), body))
}

// Verify authenticates a callback and decodes it.
func (v *Verifier) Verify(ctx context.Context, body []byte, headers http.Header) (*Callback, error) {
	if len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}
	timestamp, signatures, err := parseSignature(headers.Get(SignatureHeader))
	if err != nil {
		return nil, ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if age := v.clock.Now().Sub(time.Unix(unix, 0)); age > v.tolerance || age < -v.tolerance {
		return nil, ErrInvalidSignature
	}

	expected := v.mac(timestamp, body)
	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrInvalidSignature
	}

	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, ErrInvalidPayload
	}
	cb.OrderID = strings.TrimSpace(cb.OrderID)
	cb.TransactionID = strings.TrimSpace(cb.TransactionID)
	if cb.OrderID == "" || cb.Code() == "" {
		return nil, ErrInvalidPayload
	}
	return &cb, nil
}

func (v *Verifier) mac(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(timestamp + "." + string(body)))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignature(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		keyValue := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		switch strings.TrimSpace(keyValue[0]) {
		case "t":
			timestamp = strings.TrimSpace(keyValue[1])
		case "v1":
			signatures = append(signatures, strings.TrimSpace(keyValue[1]))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}
