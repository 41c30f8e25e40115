package middleware

import (
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"sketchsync/pkg/response"
)

// ChaosMiddleware delays each request by a random amount up to maxDelay and
// then fails a failureRate fraction of them with 503. Random delays make
// concurrent flushes complete out of order.
func ChaosMiddleware(failureRate float64, maxDelay time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return chaos(failureRate, maxDelay, rand.Float64, logger)
}

func chaos(failureRate float64, maxDelay time.Duration, roll func() float64, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxDelay > 0 {
				delay := time.Duration(roll() * float64(maxDelay))
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}

			if failureRate > 0 && roll() < failureRate {
				logger.Debug("chaos: failing request", "method", r.Method, "path", r.URL.Path)
				response.ServiceUnavailable(w, "injected failure")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
