package httpadapter

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Paths that must stay reachable when a client has exhausted its budget.
var admissionExemptPaths = map[string]struct{}{
	"/pdf/health": {},
	"/healthz":    {},
	"/metrics":    {},
}

// admissionMiddleware checks the per-client token bucket before any work
// happens. Every admission-controlled response carries the X-RateLimit-*
// headers; a rejection adds Retry-After and a structured 429 body.
func (rt *Router) admissionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, exempt := admissionExemptPaths[r.URL.Path]; exempt {
			next.ServeHTTP(w, r)
			return
		}

		decision := rt.admission.Admit(clientKey(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			rt.metrics.RecordAdmissionRejected("api", r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "Rate Limit Exceeded",
				"message":     fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
				"retry_after": retryAfter,
				"type":        "rate_limit_error",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware bounds concurrent in-flight requests on the wrapped
// handler. A request that cannot claim a slot within wait is answered 503 so
// clients fail fast instead of queueing behind slow uploads.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	slots := make(chan struct{}, maxInFlight)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error":   "server overloaded",
				"message": "too many concurrent uploads, retry shortly",
			})
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "request cancelled while queued",
			})
		}
	})
}
