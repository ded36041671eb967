package http

import (
	"net/http"
	"strconv"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps an error kind to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case shared.IsInvalidSubmission(err):
		return http.StatusBadRequest, "invalid_submission"
	case shared.IsInvalidQuery(err):
		return http.StatusBadRequest, "invalid_query"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case shared.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, "store_unavailable"
	}
	return http.StatusInternalServerError, "internal_server_error"
}

// writeError writes err as a JSON error. Server-side failures are logged
// with the request logger and never expose their cause to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := shared.Message(err)

	switch status {
	case http.StatusServiceUnavailable:
		secs := int(s.config.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		message = "service temporarily unavailable, please retry"
	case http.StatusInternalServerError:
		message = "an unexpected error occurred"
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Err(err),
		)
	}
	writeJSONError(w, status, code, message)
}
