// Package errors provides the standardized error taxonomy for the
// outreach pipeline and its HTTP surface.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigMissing     ErrorCode = "CONFIG_MISSING"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeResourceNotFound  ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	ErrCodeUpstreamProvider ErrorCode = "UPSTREAM_PROVIDER_ERROR"
	ErrCodeAuditMissing     ErrorCode = "AUDIT_MISSING"
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWebhookSignature       ErrorCode = "WEBHOOK_SIGNATURE_INVALID"

	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code           ErrorCode              `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	ProviderStatus int                    `json:"providerStatus,omitempty"` // original upstream HTTP status
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigMissingError creates a fatal configuration error.
func NewConfigMissingError(what string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigMissing,
		Message:   "Required configuration is missing",
		Details:   what,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable request validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResourceNotFoundError creates a non-retryable not-found error.
func NewResourceNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitExceededError creates a rate-limit error with a reason string.
func NewRateLimitExceededError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   "Rate limit exceeded",
		Details:   reason,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamProviderError propagates a provider failure with its
// original HTTP status and payload excerpt.
func NewUpstreamProviderError(provider string, status int, payload string) *StandardError {
	return &StandardError{
		Code:           ErrCodeUpstreamProvider,
		Message:        fmt.Sprintf("Provider '%s' request failed", provider),
		Details:        payload,
		Retryable:      true,
		Timestamp:      time.Now().UTC(),
		ProviderStatus: status,
	}
}

// NewAuditMissingError signals that a lead has no audit to draft from.
func NewAuditMissingError(leadID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditMissing,
		Message:   "No site audit exists for lead",
		Details:   fmt.Sprintf("leadId: %s", leadID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates an email generation error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Email generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookSignatureError creates a non-retryable signature error.
func NewWebhookSignatureError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookSignature,
		Message:   "Webhook signature verification failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseQueryFailedError creates a retryable query error.
func NewDatabaseQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
