// internal/server/server.go
//
// HTTP surface for the pipeline. Every stage stays independently
// invocable for cron and webhook triggers, but handlers call each
// other as plain functions, never over the network.
package server

import (
	"context"
	"net/http"

	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/monitor/notify"
	"outreach-pipeline/internal/monitor/report"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/insights"
	"outreach-pipeline/internal/stages/orchestrator"
	"outreach-pipeline/internal/stages/queue"
	"outreach-pipeline/internal/stages/send"
	"outreach-pipeline/internal/webhooks/scheduling"
	"outreach-pipeline/internal/webhooks/unsubscribe"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SignatureHeader carries the scheduling webhook signature.
const SignatureHeader = "Webhook-Signature"

// Pinger is a health-checkable backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers bundles every endpoint's backing handler.
type Handlers struct {
	Audit        *audit.Handler
	Insights     *insights.Handler
	Draft        *draft.Handler
	Send         *send.Handler
	Queue        *queue.Handler
	Orchestrator *orchestrator.Handler
	Notify       *notify.Handler
	Report       *report.Handler
	Scheduling   *scheduling.Handler
	Unsubscribe  *unsubscribe.Handler
}

type Server struct {
	handlers Handlers
	backends map[string]Pinger
	validate *validator.Validate
	logger   logger.Logger
	router   chi.Router
}

func New(h Handlers, backends map[string]Pinger, log logger.Logger) *Server {
	s := &Server{
		handlers: h,
		backends: backends,
		validate: validator.New(),
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/stages", func(r chi.Router) {
		r.Post("/audit", s.handleAudit)
		r.Post("/insights", s.handleInsights)
		r.Post("/draft", s.handleDraft)
		r.Post("/send", s.handleSend)
		r.Post("/queue", s.handleEnqueue)
		r.Post("/queue/process", s.handleQueueProcess)
		r.Post("/process-lead", s.handleProcessLead)
	})
	r.Route("/monitor", func(r chi.Router) {
		r.Post("/incidents/notify", s.handleNotify)
		r.Post("/reports/monthly", s.handleMonthlyReport)
	})
	r.Post("/webhooks/scheduling", s.handleSchedulingWebhook)
	r.Get("/unsubscribe", s.handleUnsubscribe)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// corsMiddleware keeps the surface permissive: endpoints are invoked
// by cron, webhooks, and internal tools, never by browsers with
// credentials.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SignatureHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
