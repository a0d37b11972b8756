package middleware

import (
	"net/http"
	"strconv"

	"github.com/glowspace/glowspace-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

// Chat history rate limit: per user, 30 req/min, burst 20.
// Prevents 429 from rapid conversation switching while blocking scraping.
const (
	chatHistoryRPS   = 0.5
	chatHistoryBurst = 20
)

var chatHistoryLimiters = newLimiterSet(rate.Limit(chatHistoryRPS), chatHistoryBurst, limiterTTL)

// ChatHistoryRateLimit limits GET requests on the routes it wraps. It must run
// after RequireAuth so the bucket is keyed by user.
func ChatHistoryRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		limiter := chatHistoryLimiters.get(clientip.Key(r, UserIDFromContext(r.Context())))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(chatHistoryBurst))
		if !limiter.Allow() {
			w.Header().Set("X-RateLimit-Remaining", "0")
			tooManyRequests(w, "Too many chat history requests. Please slow down.")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		next.ServeHTTP(w, r)
	})
}
