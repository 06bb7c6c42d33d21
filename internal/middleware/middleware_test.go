package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDIsSetAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		WriteAPISuccess(w, r, map[string]string{"ok": "yes"})
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, seen, resp.RequestID)
	assert.Empty(t, resp.Declined)
}

func TestErrorHandlingRecoversPanics(t *testing.T) {
	h := APIMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/ui/close", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "internal_error", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestWriteAPIDeclined(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIDeclined(rec, httptest.NewRequest(http.MethodPost, "/", nil), "cart_full", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "cart_full", resp.Declined)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "budgets are per client")

	h := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		WriteAPISuccess(w, r, nil)
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "1.2.3.4:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("same"))
	}
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("x"))
}

func TestParseJSONRequest(t *testing.T) {
	var body struct {
		ItemName string `json:"itemName"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"itemName":"weapon_bat"}`))
	req.Header.Set("Content-Type", "application/json")
	require.NoError(t, ParseJSONRequest(req, &body))
	assert.Equal(t, "weapon_bat", body.ItemName)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"itemName":"x","extra":1}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Error(t, ParseJSONRequest(req, &body), "unknown fields are rejected")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`itemName=x`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Error(t, ParseJSONRequest(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, ParseJSONRequest(req, &body), "empty body is allowed")
}
