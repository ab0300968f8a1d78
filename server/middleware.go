package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hubenschmidt/go-docrag/monitor"
)

type statusRecorder struct {
	http.ResponseWriter
	status    int
	tokensIn  int
	tokensOut int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// noteTokens attaches model usage to the request's metrics.
func noteTokens(w http.ResponseWriter, in, out int) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.tokensIn += in
		rec.tokensOut += out
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" || route == "/" {
			route = r.Method + " " + r.URL.Path
		}
		if r.Method == http.MethodOptions {
			route = "OPTIONS"
		}
		s.metrics.Record(monitor.RequestMetrics{
			Route:     route,
			Status:    rec.status,
			Duration:  elapsed,
			TokensIn:  rec.tokensIn,
			TokensOut: rec.tokensOut,
		})
		log.Printf("[http] %s %s %d %s id=%s", r.Method, r.URL.Path, rec.status, elapsed.Round(time.Millisecond), id)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && (s.anyOrigin || s.origins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
