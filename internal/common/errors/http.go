// internal/common/errors/http.go
package errors

import (
	"net/http"
	"time"
)

// HTTPStatus maps an error code to the response status the pipeline's
// HTTP surface returns for it. Unknown codes fall back to 500.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeWebhookSignature:
		return http.StatusUnauthorized
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeAuditMissing:
		return http.StatusConflict
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamProvider, ErrCodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StatusFor resolves any error to an HTTP status. A *StandardError that
// carries the upstream provider's status propagates it verbatim.
func StatusFor(err error) int {
	if stdErr, ok := err.(*StandardError); ok {
		if stdErr.Code == ErrCodeUpstreamProvider && stdErr.ProviderStatus >= 400 {
			return stdErr.ProviderStatus
		}
		return HTTPStatus(stdErr.Code)
	}
	return http.StatusInternalServerError
}

// Normalize ensures an error is a *StandardError so handlers can encode
// a stable shape.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
