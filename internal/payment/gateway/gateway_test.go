package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(secret string, fc clock.Clock) *Verifier {
	cfg := config.Config{}
	cfg.Gateway.Secret = secret
	cfg.Gateway.SuccessCode = "0"
	return NewVerifier(Params{Config: cfg, Clock: fc})
}

func TestVerifyAcceptsSignedCallback(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	v := newVerifier("whsec_test", fc)
	body := []byte(`{"orderId":"INV-01J","transactionId":"tx-1","resultCode":0,"amount":16000000}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, v.Sign(fc.Now(), body))

	cb, err := v.Verify(context.Background(), body, headers)
	require.NoError(t, err)
	assert.Equal(t, "INV-01J", cb.OrderID)
	assert.Equal(t, "tx-1", cb.TransactionID)
	assert.Equal(t, "0", cb.Code())
	assert.Equal(t, int64(16_000_000), cb.Amount)
}

func TestVerifyRejectsTampering(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	v := newVerifier("whsec_test", fc)
	body := []byte(`{"orderId":"INV-01J","resultCode":"0"}`)
	signed := v.Sign(fc.Now(), body)

	headers := http.Header{}
	headers.Set(SignatureHeader, signed)
	_, err := v.Verify(context.Background(), []byte(`{"orderId":"INV-OTHER","resultCode":"0"}`), headers)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = v.Verify(context.Background(), body, http.Header{})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	other := newVerifier("another", fc)
	_, err = other.Verify(context.Background(), body, headers)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	fc.Advance(10 * time.Minute)
	_, err = v.Verify(context.Background(), body, headers)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWithoutSecret(t *testing.T) {
	v := newVerifier("", clock.New())
	_, err := v.Verify(context.Background(), []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifyRejectsMalformedBody(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	v := newVerifier("whsec_test", fc)
	body := []byte(`{"transactionId":"tx"}`)
	headers := http.Header{}
	headers.Set(SignatureHeader, v.Sign(fc.Now(), body))

	_, err := v.Verify(context.Background(), body, headers)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
