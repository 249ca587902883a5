// internal/webhooks/unsubscribe/handler.go
package unsubscribe

import (
	"context"
	"strings"

	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/mailer"
	"outreach-pipeline/internal/models"
)

type Store interface {
	InsertSuppression(ctx context.Context, email, reason string) (inserted bool, err error)
}

type Handler struct {
	store  Store
	secret string
	logger logger.Logger
}

func NewHandler(st Store, secret string, log logger.Logger) *Handler {
	return &Handler{
		store:  st,
		secret: secret,
		logger: log.WithFields(map[string]interface{}{"component": "unsubscribe"}),
	}
}

// Output is the unsubscribe response body.
type Output struct {
	Success           bool `json:"success"`
	AlreadySuppressed bool `json:"already_suppressed,omitempty"`
}

// Execute validates the per-recipient token and records the opt-out.
// Clicking an old link twice is a 200 both times.
func (h *Handler) Execute(ctx context.Context, email, token string) (*Output, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.NewValidationFailedError("email is required")
	}
	if !mailer.VerifyUnsubscribeToken(h.secret, email, token) {
		return nil, errors.NewValidationFailedError("invalid unsubscribe token")
	}

	inserted, err := h.store.InsertSuppression(ctx, email, models.SuppressionReasonUnsubscribe)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	h.logger.Info("address unsubscribed", map[string]interface{}{
		"alreadySuppressed": !inserted,
	})
	return &Output{Success: true, AlreadySuppressed: !inserted}, nil
}
