package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header a client may use to supply its own request id.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a unique id, honouring one supplied by the
// client, and echoes it back on the response so callers can correlate logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(SetRequestID(r.Context(), id)))
	})
}
