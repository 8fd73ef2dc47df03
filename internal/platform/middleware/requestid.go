package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"avatar-gateway/pkg/requestcontext"
)

// RequestID assigns a correlation ID to every request and pins the request
// time so all pipeline stages observe one clock reading. An inbound
// X-Request-ID is honored for cross-service tracing.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientIP(ctx, r.RemoteAddr)
		ctx = requestcontext.WithUserAgent(ctx, r.UserAgent())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
