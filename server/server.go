package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/hubenschmidt/go-docrag/extract"
	"github.com/hubenschmidt/go-docrag/llm"
	"github.com/hubenschmidt/go-docrag/monitor"
	"github.com/hubenschmidt/go-docrag/rag"
)

const DefaultMaxFileSize = 10 << 20

// Config configures a new Server instance.
type Config struct {
	Service   *rag.Service
	Completer llm.Completer // Optional: chat answers 503 without it

	AllowedOrigins []string
	MaxFileSize    int64
	UploadDir      string
	Extensions     []string // Optional: defaults to the built-in extractors

	Metrics monitor.Collector // Optional: defaults to an in-memory collector
}

// Server is the HTTP front end for ingestion and retrieval.
type Server struct {
	svc        *rag.Service
	completer  llm.Completer
	origins    map[string]bool
	anyOrigin  bool
	maxFile    int64
	uploadDir  string
	extensions map[string]bool
	metrics    monitor.Collector
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("server: service is required")
	}

	maxFile := cfg.MaxFileSize
	if maxFile <= 0 {
		maxFile = DefaultMaxFileSize
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "./data/documents"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = extract.NewRegistry().Extensions()
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[e] = true
	}

	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	anyOrigin := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = true
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = monitor.NewInMemoryCollector()
	}

	if cfg.Completer == nil {
		log.Printf("[init] No language model configured; /api/chat will be unavailable")
	}

	return &Server{
		svc:        cfg.Service,
		completer:  cfg.Completer,
		origins:    origins,
		anyOrigin:  anyOrigin,
		maxFile:    maxFile,
		uploadDir:  uploadDir,
		extensions: extSet,
		metrics:    metrics,
	}, nil
}

// Handler returns an http.Handler for all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/documents", s.handleDocumentList)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDocumentDelete)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/metrics/summary", s.handleMetricsSummary)
	mux.HandleFunc("/", s.handleNotFound)

	return s.requestLogger(s.corsMiddleware(mux))
}

func (s *Server) modelName() string {
	if s.completer == nil {
		return ""
	}
	return s.completer.ModelName()
}
