package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HeaderCallerID carries the authenticated caller identity, set by the
// fronting gateway after verifying the request.
const HeaderCallerID = "X-Caller-ID"

const maxBodyBytes = 1 << 16

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// PolicyService is the engine surface exposed over HTTP.
type PolicyService interface {
	ReadinessChecker
	Register(ctx context.Context, caller string, reg domain.Registration) error
	EvaluateAndPay(ctx context.Context) (domain.Evaluation, error)
	Policy(ctx context.Context) (domain.Policy, domain.State, error)
}

// Server exposes the policy API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        PolicyService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/policy, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, svc PolicyService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/policy", s.handleGetPolicy)
	mux.HandleFunc("POST /v1/policy", s.handleRegister)
	mux.HandleFunc("POST /v1/policy/evaluate", s.handleEvaluate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// policyView is the public representation of the stored policy.
type policyView struct {
	State        domain.State `json:"state"`
	Beneficiary  string       `json:"beneficiary"`
	Location     string       `json:"location"`
	ThresholdMm  float64      `json:"threshold_mm"`
	PayoutAmount uint64       `json:"payout_amount"`
	PaidOut      bool         `json:"paid_out"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	p, state, err := s.svc.Policy(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if state == domain.StateUnset {
		s.writeError(w, r, domain.ErrNotRegistered)
		return
	}
	writeJSON(w, http.StatusOK, policyView{
		State:        state,
		Beneficiary:  p.Beneficiary,
		Location:     p.Location,
		ThresholdMm:  p.ThresholdMm,
		PayoutAmount: p.PayoutAmount,
		PaidOut:      p.PaidOut,
		UpdatedAt:    p.UpdatedAt,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(HeaderCallerID)
	if caller == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderCallerID + " header"})
		return
	}

	var reg domain.Registration
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	if err := s.svc.Register(r.Context(), caller, reg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered", "beneficiary": caller})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	eval, err := s.svc.EvaluateAndPay(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case domain.IsValidation(err):
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAlreadySettled):
		return http.StatusConflict, "already_settled"
	case errors.Is(err, domain.ErrThresholdTooLow):
		return http.StatusUnprocessableEntity, "threshold_too_low"
	case errors.Is(err, domain.ErrPayoutTooHigh):
		return http.StatusUnprocessableEntity, "payout_too_high"
	case errors.Is(err, domain.ErrNotRegistered):
		return http.StatusNotFound, "not_registered"
	case errors.Is(err, domain.ErrDataSource):
		return http.StatusBadGateway, "data_source_error"
	case errors.Is(err, domain.ErrPayout):
		return http.StatusBadGateway, "payout_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
