package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mkravets/pdf-extract-service/internal/config"
	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/core/ports"
	"github.com/mkravets/pdf-extract-service/internal/core/usecase"
	"github.com/mkravets/pdf-extract-service/internal/observability/metrics"
	"github.com/mkravets/pdf-extract-service/internal/ratelimit"
)

const multipartMemoryLimit = 32 << 20

type Router struct {
	cfg       config.Config
	service   ports.DocumentProcessor
	admission *ratelimit.Admission
	metrics   *metrics.ServerMetrics
}

func NewRouter(
	cfg config.Config,
	service ports.DocumentProcessor,
	admission *ratelimit.Admission,
	m *metrics.ServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		service:   service,
		admission: admission,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/pdf/health", rt.pdfHealth)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.Handle("/pdf/upload", backpressureMiddleware(
		http.HandlerFunc(rt.uploadPDF), rt.cfg.UploadMaxInFlight, rt.cfg.UploadQueueWait()))
	mux.Handle("/pdf/batch-upload", backpressureMiddleware(
		http.HandlerFunc(rt.batchUpload), rt.cfg.UploadMaxInFlight, rt.cfg.UploadQueueWait()))
	mux.HandleFunc("/pdf/search", rt.searchResults)

	handler := rt.admissionMiddleware(mux)
	handler = rt.metrics.Middleware("api", handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) pdfHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"max_batch_size":     rt.cfg.BatchSize,
		"max_file_size":      rt.cfg.MaxFileSize,
		"allowed_file_types": rt.cfg.AllowedTypes(),
	})
}

func (rt *Router) uploadPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, rt.cfg.MaxFileSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
		return
	}

	doc, err := rt.service.ProcessFile(r.Context(), clientKey(r), domain.FileTask{
		Filename: fileHeader.Filename,
		Payload:  payload,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) batchUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	tasks := make([]domain.FileTask, 0, len(headers))
	for i, fileHeader := range headers {
		file, err := fileHeader.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
			return
		}
		payload, err := io.ReadAll(io.LimitReader(file, rt.cfg.MaxFileSize+1))
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload: " + err.Error()})
			return
		}
		tasks = append(tasks, domain.FileTask{
			Index:    i,
			Filename: fileHeader.Filename,
			Payload:  payload,
		})
	}

	report, err := rt.service.ProcessBatch(r.Context(), clientKey(r), tasks)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.ObserveBatchSize("api", report.TotalFiles)
	writeJSON(w, http.StatusOK, batchResponse(report))
}

// batchResponse flattens a report into the wire shape: successful documents
// and failed outcomes in separate lists, both in submission order.
func batchResponse(report *domain.BatchReport) map[string]any {
	successful := make([]*domain.ExtractedDocument, 0, len(report.Results))
	failed := make([]domain.FileFailure, 0)
	for _, result := range report.Results {
		if result.Succeeded() {
			successful = append(successful, result.Document)
			continue
		}
		failed = append(failed, domain.FileFailure{
			Filename:  result.Filename,
			Error:     result.Err.Error(),
			ErrorType: domain.KindLabel(result.Err),
		})
	}

	return map[string]any{
		"batch_id":     report.BatchID,
		"processed_at": report.ProcessedAt,
		"total_files":  report.TotalFiles,
		"successful":   successful,
		"failed":       failed,
		"summary":      report.Summary,
	}
}

func (rt *Router) searchResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Results domain.ExtractedDocument `json:"results"`
		Query   string                   `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	writeJSON(w, http.StatusOK, usecase.SearchPages(req.Results.Pages, req.Query))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
