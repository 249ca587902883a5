// internal/server/respond.go
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"outreach-pipeline/internal/common/errors"

	"github.com/go-playground/validator/v10"
)

// errorBody is the stable JSON error shape for every endpoint.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	status := errors.StatusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	} else {
		s.logger.Warn("request rejected", map[string]interface{}{
			"code":    string(stdErr.Code),
			"status":  status,
			"details": stdErr.Details,
		})
	}
	s.writeJSON(w, status, errorBody{
		Error:   stdErr.Message,
		Details: stdErr.Details,
		Code:    string(stdErr.Code),
	})
}

// decode unmarshals and validates a request body in one step.
func (s *Server) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationFailedError(fmt.Sprintf("malformed request body: %v", err))
	}
	if err := s.validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return errors.NewValidationFailedError(fmt.Sprintf(
				"field %s failed %s validation", verrs[0].Field(), verrs[0].Tag()))
		}
		return errors.NewValidationFailedError(err.Error())
	}
	return nil
}
