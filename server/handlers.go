package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hubenschmidt/go-docrag/core"
	"github.com/hubenschmidt/go-docrag/rag"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "Document retrieval API is running",
		Services: map[string]string{
			"chunker":      "ready",
			"embedder":     "ready",
			"vector_store": "ready",
			"llm":          readiness(s.completer != nil),
		},
	})
}

func readiness(ok bool) string {
	if ok {
		return "ready"
	}
	return "unavailable"
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFile)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxFile>>20))
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "No file provided")
		default:
			writeError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !s.allowedFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "Invalid file type. Allowed: "+strings.Join(s.allowedList(), ", "))
		return
	}

	filename := secureFilename(header.Filename)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "Invalid file name")
		return
	}
	path := filepath.Join(s.uploadDir, filename)

	if err := saveUpload(path, file); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxFile>>20))
			return
		}
		log.Printf("[http] save upload %s: %v", filename, err)
		writeError(w, http.StatusInternalServerError, "Could not save file")
		return
	}

	log.Printf("[ingest] Processing document: %s", filename)
	res, err := s.svc.IngestFile(r.Context(), path, filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if res.AlreadyExists {
		writeJSON(w, http.StatusOK, UploadResponse{
			Success:       true,
			Message:       "Document already exists in database",
			DocumentID:    res.DocumentID,
			AlreadyExists: true,
		})
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Success:       true,
		Message:       "Document uploaded and processed successfully",
		DocumentID:    res.DocumentID,
		DocumentName:  res.DocumentName,
		ChunksCreated: res.ChunksCreated,
		Warning:       res.PersistWarning,
	})
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == nil {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if strings.TrimSpace(*req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question cannot be empty")
		return
	}
	if s.completer == nil {
		writeError(w, http.StatusServiceUnavailable, "No language model configured")
		return
	}

	ans, err := s.svc.Answer(r.Context(), s.completer, rag.AnswerRequest{
		Question:    *req.Question,
		TopK:        intOr(req.TopK, 5),
		Temperature: floatOr(req.Temperature, defaultTemperature),
		MaxTokens:   intOr(req.MaxTokens, defaultMaxTokens),
		Filter:      req.Filter,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ChatResponse{
		Success: true,
		Answer:  ans.Answer,
		Sources: toSources(ans.Sources, false),
	}
	if len(ans.Sources) > 0 {
		resp.TokensUsed = toTokensUsed(ans.Usage)
		resp.Model = ans.Model
		noteTokens(w, ans.Usage.PromptTokens, ans.Usage.CompletionTokens)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == nil {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	found, err := s.svc.Search(r.Context(), *req.Query, intOr(req.TopK, 5), req.Filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Success: true,
		Query:   *req.Query,
		Results: toSources(found.Results, true),
		Count:   found.Count,
	})
}

func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Stats()
	writeJSON(w, http.StatusOK, DocumentListResponse{
		Success:        true,
		Documents:      s.svc.Documents(),
		TotalDocuments: stats.TotalDocuments,
		TotalChunks:    stats.TotalChunks,
	})
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if m.Count == 0 {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	resp := DeleteResponse{
		Success:       true,
		Message:       "Document deleted successfully",
		DocumentID:    id,
		ChunksDeleted: m.Count,
	}
	if m.PersistErr != nil {
		resp.Warning = m.PersistErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Stats()
	ch := s.svc.Chunker()
	writeJSON(w, http.StatusOK, StatsResponse{
		Success: true,
		Stats: StatsInfo{
			TotalDocuments:   st.TotalDocuments,
			TotalChunks:      st.TotalChunks,
			CollectionName:   st.CollectionName,
			PersistDirectory: st.PersistLocation,
			Dimension:        st.Dimension,
			EmbeddingModel:   s.svc.EmbeddingModel(),
			LLMModel:         s.modelName(),
			ChunkSize:        ch.Size(),
			ChunkOverlap:     ch.Overlap(),
		},
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
		writeError(w, http.StatusBadRequest, `Reset requires {"confirm": true}`)
		return
	}

	m, err := s.svc.Reset(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("[http] Collection reset, %d chunks removed", m.Count)

	resp := ResetResponse{Success: true, Message: "Collection reset", ChunksDeleted: m.Count}
	if m.PersistErr != nil {
		resp.Warning = m.PersistErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MetricsResponse{Success: true, Metrics: s.metrics.Summary()})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (s *Server) allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return ext != "" && s.extensions[ext]
}

func (s *Server) allowedList() []string {
	out := make([]string, 0, len(s.extensions))
	for e := range s.extensions {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// secureFilename reduces an uploaded name to a flat, ASCII-safe base name.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// writeServiceError maps error classes to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrExtraction):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrEmbedding), errors.Is(err, core.ErrCompletion):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		log.Printf("[http] %v", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
