package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/liamcoop/ivfsuccess/formulas"
	"github.com/liamcoop/ivfsuccess/internal/bootstrap"
	"github.com/liamcoop/ivfsuccess/internal/config"
	"github.com/liamcoop/ivfsuccess/internal/logger"
	"github.com/liamcoop/ivfsuccess/scoring"
)

// maxBodyBytes caps the calculate request body
const maxBodyBytes = 64 << 10

type Server struct {
	cfg    *config.Config
	engine *scoring.Engine
	router *chi.Mux
}

// NewServer loads the formula table named by cfg and builds the router
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	engine, err := bootstrap.NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithEngine(cfg, engine), nil
}

// NewServerWithEngine builds a server around an existing engine
func NewServerWithEngine(cfg *config.Config, engine *scoring.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/metrics", s.handleMetrics)
	r.Get("/api/v1/formulas", s.handleListFormulas)
	r.Post("/api/v1/calculate", s.handleCalculate)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:         "healthy",
		FormulasLoaded: s.engine.Table().Len(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, logger.Snapshot())
}

func (s *Server) handleListFormulas(w http.ResponseWriter, r *http.Request) {
	resp := FormulasListResponse{Formulas: []FormulaResponse{}}
	for _, key := range s.engine.Table().Keys() {
		rec, err := s.engine.Record(key)
		if err != nil {
			s.respondCalculationError(w, err)
			return
		}
		resp.Formulas = append(resp.Formulas, FormulaResponse{
			UsingOwnEggs: string(key.UsingOwnEggs),
			PreviousIVF:  string(key.PreviousIVF),
			ReasonKnown:  string(key.ReasonKnown),
			Formula:      rec.Formula,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		logger.WarnHttp4xx(http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sreq, err := req.ToScoring()
	if err != nil {
		s.respondCalculationError(w, err)
		return
	}

	result, err := s.engine.Calculate(sreq)
	if err != nil {
		s.respondCalculationError(w, err)
		return
	}
	logger.CountCalculation()

	calculationID := uuid.NewString()
	logger.Debug("calculation completed",
		"calculationId", calculationID,
		"requestId", middleware.GetReqID(r.Context()),
		"formula", result.Formula,
		"successRate", result.SuccessRate,
	)

	respondJSON(w, http.StatusOK, CalculateResponse{
		CalculationID:   calculationID,
		Result:          result.SuccessRate,
		BMI:             result.BMI,
		Formula:         result.Formula,
		LinearPredictor: result.LinearPredictor,
		Message:         req.Message(),
	})
}

// respondCalculationError maps engine errors onto HTTP statuses
func (s *Server) respondCalculationError(w http.ResponseWriter, err error) {
	var invalidErr *scoring.InvalidInputError
	var notFound *formulas.FormulaNotFoundError

	switch {
	case errors.As(err, &invalidErr):
		logger.CountInvalidInput()
		logger.WarnHttp4xx(http.StatusBadRequest)
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      "invalid input",
			Details:    invalidErr.Error(),
			Field:      invalidErr.Field,
			Violations: invalidErr.Violations,
		})
	case errors.As(err, &notFound):
		logger.CountFormulaMiss()
		logger.WarnHttp4xx(http.StatusNotFound)
		respondError(w, http.StatusNotFound, "formula not found", err)
	case errors.Is(err, formulas.ErrDataIntegrity):
		logger.CountDataIntegrity()
		logger.ErrorHttp5xx()
		logger.Error("formula table data integrity error", "error", err)
		respondError(w, http.StatusInternalServerError, "formula data error", err)
	default:
		logger.ErrorHttp5xx()
		logger.Error("calculation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "calculation failed", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	server, err := NewServer(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "formulaSource", cfg.FormulaSource)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
