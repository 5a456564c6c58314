package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	cashierIDKey contextKey = "cashier_id"
	requestIDKey contextKey = "request_id"
)

// CashierAuthMiddleware resolves the operating cashier from the terminal
// header. Real deployments validate a badge token here; the register refuses
// anonymous requests either way because every fiscal record names a cashier.
func CashierAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cashierID := r.Header.Get("X-Cashier-ID")
		if cashierID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing cashier identification")
			return
		}
		ctx := context.WithValue(r.Context(), cashierIDKey, cashierID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getCashierID(ctx context.Context) string {
	id, _ := ctx.Value(cashierIDKey).(string)
	return id
}
