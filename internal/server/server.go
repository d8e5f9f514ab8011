// Package server exposes the audit engine over HTTP: upload a census
// workbook, download the comparison report.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/census-audit/internal/audit"
	"github.com/sells-group/census-audit/internal/config"
	"github.com/sells-group/census-audit/internal/ingest"
	"github.com/sells-group/census-audit/internal/report"
	"github.com/sells-group/census-audit/internal/rules"
)

// Server handles workbook uploads and returns report workbooks.
type Server struct {
	cfg      *config.Config
	runner   *audit.Runner
	limiter  *rate.Limiter
	maxBytes int64
}

// New creates a Server. The rule set is fixed at startup; per-run input
// comes entirely from the uploaded workbook. Zero-valued limits fall back
// to the config defaults.
func New(cfg *config.Config, r *rules.Rules) *Server {
	perMinute := cfg.Server.AuditsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	maxMB := cfg.Server.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 32
	}
	return &Server{
		cfg:      cfg,
		runner:   audit.NewRunner(r),
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		maxBytes: int64(maxMB) << 20,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/audit", s.handleAudit)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAudit runs one audit: multipart "workbook" in, xlsx report out.
// Fail-fast audit errors map to 422 with a JSON body naming the offender.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many audit requests"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)

	file, _, err := r.FormFile("workbook")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field \"workbook\" is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
		return
	}

	log := zap.L().With(
		zap.String("component", "server"),
		zap.String("audit_id", uuid.NewString()),
	)

	wb, err := ingest.LoadBytes(data, ingest.Options{
		SecondarySheet:         s.cfg.Audit.SecondarySheet,
		TruthSheet:             s.cfg.Audit.TruthSheet,
		MappingSheet:           s.cfg.Audit.MappingSheet,
		MappingSecondaryColumn: s.cfg.Audit.MappingSecondaryColumn,
		MappingTruthColumn:     s.cfg.Audit.MappingTruthColumn,
	})
	if err != nil {
		log.Warn("ingest failed", zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.runner.Run(audit.Input{
		Secondary:         wb.Secondary,
		Truth:             wb.Truth,
		Mappings:          wb.Mappings,
		SecondaryIDColumn: s.cfg.Audit.SecondaryIDColumn,
		TruthIDColumn:     s.cfg.Audit.TruthIDColumn,
	})
	if err != nil {
		var cfgErr *audit.ConfigurationError
		var emptyErr *audit.EmptyDatasetError
		if errors.As(err, &cfgErr) || errors.As(err, &emptyErr) {
			log.Warn("audit rejected", zap.Error(err))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		log.Error("audit failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	filename := fmt.Sprintf("census_audit_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.WriteTo(result, w); err != nil {
		log.Error("write report", zap.Error(err))
		return
	}

	log.Info("audit served",
		zap.Int("matched", result.Dataset.Matched),
		zap.Int("detail_rows", len(result.Details)),
	)
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
