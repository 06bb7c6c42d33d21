package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"blackmarket/internal/logger"
)

// Request context keys
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
)

// Standard API error response
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id"`
}

// Standard API success response
type APIResponse struct {
	Success   bool        `json:"success"`
	Declined  string      `json:"declined,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id"`
}

// Middleware chain for host-facing endpoints
func APIMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return RequestID(
		Logging(
			ErrorHandling(next),
		),
	)
}

// UIMiddleware adds per-client rate limiting in front of the API chain.
func UIMiddleware(limiter *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return RequestID(
		Logging(
			limiter.Limit(
				ErrorHandling(next),
			),
		),
	)
}

// RequestID middleware adds a unique request ID to each request
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Logging middleware logs all API requests with consistent format
func Logging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := GetRequestID(r.Context())

		logger.LogDebug("API request started: request_id=%s method=%s path=%s client_ip=%s",
			requestID, r.Method, r.URL.Path, logger.GetClientIP(r))

		// Create a response writer that captures status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.LogInfo("API request completed: request_id=%s %s %s status=%d took=%s",
			requestID, r.Method, r.URL.Path, rw.statusCode, duration)
	}
}

// ErrorHandling middleware provides panic recovery and consistent error responses
func ErrorHandling(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.LogError("Panic in API handler: request_id=%s %s %s: %v",
					GetRequestID(r.Context()), r.Method, r.URL.Path, err)
				WriteAPIError(w, r, http.StatusInternalServerError, "internal_error",
					"An internal error occurred", "")
			}
		}()
		next.ServeHTTP(w, r)
	}
}

// =============================================================================
// RATE LIMITING
// =============================================================================

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter allows rps sustained requests with bursts of burst per
// client. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Allow reports whether the client at key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil || rl.rps <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	for k, other := range rl.visitors {
		if now.Sub(other.lastSeen) > rl.idle {
			delete(rl.visitors, k)
		}
	}
	return v.limiter.Allow()
}

// Limit rejects requests over the client's budget with 429.
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(logger.GetClientIP(r)) {
			WriteAPIError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded",
				"Too many requests. Please wait before trying again.", "")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// GetRequestID returns the request id stored by RequestID.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WriteAPIError writes a standardized error response
func WriteAPIError(w http.ResponseWriter, r *http.Request, statusCode int, code, message, details string) {
	response := APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: GetRequestID(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// WriteAPISuccess writes a standardized success response
func WriteAPISuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeSuccess(w, r, "", data)
}

// WriteAPIDeclined writes a success envelope for an action the storefront
// accepted but chose not to apply.
func WriteAPIDeclined(w http.ResponseWriter, r *http.Request, code string, data interface{}) {
	writeSuccess(w, r, code, data)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, declined string, data interface{}) {
	response := APIResponse{
		Success:   true,
		Declined:  declined,
		Data:      data,
		RequestID: GetRequestID(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// ParseJSONRequest parses JSON request body into the provided struct. An
// empty body leaves v untouched.
func ParseJSONRequest(r *http.Request, v interface{}) error {
	if r.ContentLength == 0 {
		return nil
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return fmt.Errorf("content-type must be application/json")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields() // Strict parsing
	return decoder.Decode(v)
}
