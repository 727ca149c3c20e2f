package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signedWebhookRequest(secret string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/goodid", bytes.NewReader(body))
	req.Header.Set("X-GoodID-Signature", signBody(secret, body))
	return req
}

func TestGoodIDWebhookConfirmsVerification(t *testing.T) {
	f := newProtocolFixture()
	webhookHandler := NewWebhookHandler(f.score)

	os.Setenv("GOODID_WEBHOOK_SECRET", "test-webhook-secret")
	defer os.Unsetenv("GOODID_WEBHOOK_SECRET")

	_, err := f.score.Register(context.Background(), "0xalice")
	require.NoError(t, err)

	body := []byte(`{"type": "verification.completed", "data": {"wallet_address": "0xalice", "provider": "goodid"}}`)
	rr := httptest.NewRecorder()

	webhookHandler.HandleGoodIDWebhook(rr, signedWebhookRequest("test-webhook-secret", body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, f.score.IsVerified("0xalice"))
	assert.Equal(t, uint64(100), f.score.GetScore("0xalice"))
}

func TestGoodIDWebhookRejectsBadSignature(t *testing.T) {
	f := newProtocolFixture()
	webhookHandler := NewWebhookHandler(f.score)

	os.Setenv("GOODID_WEBHOOK_SECRET", "test-webhook-secret")
	defer os.Unsetenv("GOODID_WEBHOOK_SECRET")

	_, err := f.score.Register(context.Background(), "0xalice")
	require.NoError(t, err)

	body := []byte(`{"type": "verification.completed", "data": {"wallet_address": "0xalice"}}`)

	// Wrong signature.
	rr := httptest.NewRecorder()
	webhookHandler.HandleGoodIDWebhook(rr, signedWebhookRequest("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, f.score.IsVerified("0xalice"))

	// Missing signature header.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/goodid", bytes.NewReader(body))
	rr = httptest.NewRecorder()

	webhookHandler.HandleGoodIDWebhook(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, f.score.IsVerified("0xalice"))
	assert.Zero(t, f.score.GetScore("0xalice"), "an unsigned callback must not grant the verification bonus")
}

func TestGoodIDWebhookUnregisteredUser(t *testing.T) {
	f := newProtocolFixture()
	webhookHandler := NewWebhookHandler(f.score)

	os.Setenv("GOODID_WEBHOOK_SECRET", "test-webhook-secret")
	defer os.Unsetenv("GOODID_WEBHOOK_SECRET")

	body := []byte(`{"type": "verification.completed", "data": {"wallet_address": "0xghost"}}`)
	rr := httptest.NewRecorder()

	webhookHandler.HandleGoodIDWebhook(rr, signedWebhookRequest("test-webhook-secret", body))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGoodIDWebhookIgnoresUnknownEventTypes(t *testing.T) {
	f := newProtocolFixture()
	webhookHandler := NewWebhookHandler(f.score)

	os.Setenv("GOODID_WEBHOOK_SECRET", "test-webhook-secret")
	defer os.Unsetenv("GOODID_WEBHOOK_SECRET")

	body := []byte(`{"type": "verification.started", "data": {"wallet_address": "0xalice"}}`)
	rr := httptest.NewRecorder()

	webhookHandler.HandleGoodIDWebhook(rr, signedWebhookRequest("test-webhook-secret", body))
	assert.Equal(t, http.StatusOK, rr.Code, "unknown event types are acknowledged, not errors")
}
