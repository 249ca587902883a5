// internal/server/handlers.go
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"outreach-pipeline/internal/common/errors"
	"outreach-pipeline/internal/monitor/notify"
	"outreach-pipeline/internal/monitor/report"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/orchestrator"
	"outreach-pipeline/internal/stages/queue"
	"outreach-pipeline/internal/stages/send"
)

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var input audit.Input
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.handlers.Audit.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var input struct {
		LeadID string `json:"lead_id" validate:"required,uuid4"`
	}
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	// Best-effort by contract: the response is always 200, with the
	// skipped variant carrying the reason.
	s.writeJSON(w, http.StatusOK, s.handlers.Insights.Execute(r.Context(), input.LeadID))
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var input draft.Input
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.handlers.Draft.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var input send.Input
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.handlers.Send.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var input queue.EnqueueInput
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.handlers.Queue.Enqueue(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleQueueProcess(w http.ResponseWriter, r *http.Request) {
	// No body: the scheduler just ticks the endpoint.
	out, err := s.handlers.Queue.Process(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProcessLead(w http.ResponseWriter, r *http.Request) {
	var input orchestrator.Input
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.handlers.Orchestrator.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, out.HTTPStatus(), out)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var input notify.Input
	if err := s.decode(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.handlers.Notify.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	input := report.Input{}
	if r.ContentLength > 0 {
		if err := s.decode(r, &input); err != nil {
			s.writeError(w, err)
			return
		}
	}
	out, err := s.handlers.Report.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSchedulingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, errors.NewValidationFailedError("unreadable request body"))
		return
	}
	out, err := s.handlers.Scheduling.Execute(r.Context(), r.Header.Get(SignatureHeader), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.handlers.Unsubscribe.Execute(r.Context(), q.Get("email"), q.Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, backend := range s.backends {
		if err := backend.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}
	s.writeJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
