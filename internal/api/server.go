package api

import (
	"log"
	"net/http"
	"time"

	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProcessFunc hands a raw discovery payload to the pipeline orchestrator.
type ProcessFunc func(ruleID string, payload []byte) error

// NewServer wires the admin HTTP surface: rule CRUD, validation, bulk
// import, a payload-ingest endpoint, health checks, and Prometheus
// metrics, behind the body-size-limit middleware and a request logger.
func NewServer(store catalog.AdminStore, process ProcessFunc, tracer trace.Tracer, maxBodyBytes int64) http.Handler {
	handlers := NewRuleHandlers(store, tracer)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /rules", handlers.GetRules)
	mux.HandleFunc("POST /rules", handlers.CreateRule)
	mux.HandleFunc("GET /rules/{id}", handlers.GetRuleByID)
	mux.HandleFunc("PUT /rules/{id}", handlers.UpdateRule)
	mux.HandleFunc("DELETE /rules/{id}", handlers.DeleteRule)
	mux.HandleFunc("POST /rules/validate", handlers.ValidateRule)
	mux.HandleFunc("POST /rules/import", handlers.ImportRules)

	mux.HandleFunc("POST /rules/{id}/process", handleProcess(process))

	handler := withLogging(tracer, middleware.BodyLimitMiddleware(maxBodyBytes)(mux))
	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleProcess handles POST /rules/{id}/process: the ingest entry point
// simulating process(rule_id, value, timestamp) for a wire payload
// delivered over HTTP instead of whatever transport a deployment's
// collector actually uses.
func handleProcess(process ProcessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			respondError(w, http.StatusBadRequest, "missing rule id")
			return
		}

		payload, err := readAll(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read payload: "+err.Error())
			return
		}

		if err := process(id, payload); err != nil {
			respondError(w, http.StatusInternalServerError, "processing failed: "+err.Error())
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "processed"})
	}
}

// withLogging logs every request and, when a tracer is configured, wraps
// it in a span carrying the HTTP method, path, and resulting status.
func withLogging(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		var span trace.Span
		if tracer != nil {
			ctx, span = tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.url", r.URL.Path),
				),
			)
			r = r.WithContext(ctx)
		}

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if span != nil {
			span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))
			span.End()
		}

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
