package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkravets/pdf-extract-service/internal/config"
	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/core/ports"
	"github.com/mkravets/pdf-extract-service/internal/observability/metrics"
	"github.com/mkravets/pdf-extract-service/internal/ratelimit"
)

type processorFake struct {
	doc      *domain.ExtractedDocument
	docErr   error
	report   *domain.BatchReport
	batchErr error

	lastKey   string
	lastTask  domain.FileTask
	lastFiles []domain.FileTask
}

func (f *processorFake) ProcessFile(_ context.Context, clientKey string, task domain.FileTask) (*domain.ExtractedDocument, error) {
	f.lastKey = clientKey
	f.lastTask = task
	return f.doc, f.docErr
}

func (f *processorFake) ProcessBatch(_ context.Context, clientKey string, files []domain.FileTask) (*domain.BatchReport, error) {
	f.lastKey = clientKey
	f.lastFiles = files
	return f.report, f.batchErr
}

var _ ports.DocumentProcessor = (*processorFake)(nil)

func newTestHandler(t *testing.T, capacity int, fake ports.DocumentProcessor) http.Handler {
	t.Helper()
	cfg := config.Config{
		BatchSize:              10,
		MaxFileSize:            1 << 20,
		AllowedFileTypes:       ".pdf",
		RateLimitRequests:      capacity,
		RateLimitWindowSeconds: 60,
		UploadMaxInFlight:      8,
		UploadQueueWaitMS:      50,
	}
	store := ratelimit.NewStore(cfg.RateLimitRequests, cfg.RateLimitWindow(), cfg.RateLimitBurst)
	admission := ratelimit.NewAdmission(store)
	return NewRouter(cfg, fake, admission, metrics.NewServerMetrics("api")).Handler()
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, payload := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadReturnsDocument(t *testing.T) {
	fake := &processorFake{doc: &domain.ExtractedDocument{
		Filename:   "report.pdf",
		TotalPages: 3,
		Status:     "success",
	}}
	handler := newTestHandler(t, 100, fake)

	body, contentType := multipartBody(t, "file", map[string][]byte{"report.pdf": []byte("%PDF-1.4 data")})
	req := httptest.NewRequest(http.MethodPost, "/pdf/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("X-RateLimit-Limit") == "" || res.Header().Get("X-RateLimit-Remaining") == "" {
		t.Fatal("expected rate limit headers on admitted request")
	}

	var doc domain.ExtractedDocument
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.Filename != "report.pdf" || doc.TotalPages != 3 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if fake.lastTask.Filename != "report.pdf" {
		t.Errorf("processor saw filename %q", fake.lastTask.Filename)
	}
	if string(fake.lastTask.Payload) != "%PDF-1.4 data" {
		t.Errorf("processor saw payload %q", fake.lastTask.Payload)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	handler := newTestHandler(t, 100, &processorFake{})

	req := httptest.NewRequest(http.MethodPost, "/pdf/upload", bytes.NewBufferString("not multipart"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadMapsProcessingErrorTo422(t *testing.T) {
	fake := &processorFake{docErr: domain.WrapError(domain.ErrPDFProcessing, "extract document", errors.New("corrupt xref"))}
	handler := newTestHandler(t, 100, fake)

	body, contentType := multipartBody(t, "file", map[string][]byte{"bad.pdf": []byte("junk")})
	req := httptest.NewRequest(http.MethodPost, "/pdf/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["type"] != "pdf_processing_error" {
		t.Errorf("error type = %q", resp["type"])
	}
}

func TestUploadMapsValidationErrorTo400(t *testing.T) {
	fake := &processorFake{docErr: domain.WrapError(domain.ErrFileValidation, "validate file", errors.New("file type .exe is not allowed"))}
	handler := newTestHandler(t, 100, fake)

	body, contentType := multipartBody(t, "file", map[string][]byte{"tool.exe": []byte("MZ")})
	req := httptest.NewRequest(http.MethodPost, "/pdf/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestBatchUploadSplitsMixedOutcomes(t *testing.T) {
	processedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &processorFake{report: &domain.BatchReport{
		BatchID:     "batch-42",
		ProcessedAt: processedAt,
		TotalFiles:  2,
		Results: []domain.FileResult{
			{Index: 0, Filename: "a.pdf", Document: &domain.ExtractedDocument{Filename: "a.pdf", TotalPages: 2, Status: "success"}},
			{Index: 1, Filename: "b.pdf", Err: domain.WrapError(domain.ErrPDFProcessing, "extract document", errors.New("corrupt"))},
		},
		Summary: domain.BatchSummary{SuccessCount: 1, ErrorCount: 1, TotalPages: 2},
	}}
	handler := newTestHandler(t, 100, fake)

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"a.pdf": []byte("aa"),
		"b.pdf": []byte("bb"),
	})
	req := httptest.NewRequest(http.MethodPost, "/pdf/batch-upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for mixed batch, got %d: %s", res.Code, res.Body.String())
	}

	var resp struct {
		BatchID    string                     `json:"batch_id"`
		TotalFiles int                        `json:"total_files"`
		Successful []domain.ExtractedDocument `json:"successful"`
		Failed     []domain.FileFailure       `json:"failed"`
		Summary    domain.BatchSummary        `json:"summary"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BatchID != "batch-42" || resp.TotalFiles != 2 {
		t.Errorf("batch identity wrong: %+v", resp)
	}
	if len(resp.Successful) != 1 || resp.Successful[0].Filename != "a.pdf" {
		t.Errorf("successful = %+v", resp.Successful)
	}
	if len(resp.Failed) != 1 || resp.Failed[0].Filename != "b.pdf" {
		t.Fatalf("failed = %+v", resp.Failed)
	}
	if resp.Failed[0].ErrorType != "pdf_processing_error" {
		t.Errorf("error type = %q", resp.Failed[0].ErrorType)
	}
	if resp.Summary.SuccessCount != 1 || resp.Summary.ErrorCount != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if len(fake.lastFiles) != 2 {
		t.Errorf("processor saw %d files", len(fake.lastFiles))
	}
}

func TestBatchUploadValidationFailureIs400(t *testing.T) {
	fake := &processorFake{batchErr: domain.WrapError(domain.ErrBatchValidation, "validate batch", errors.New("batch size 11 exceeds limit 10"))}
	handler := newTestHandler(t, 100, fake)

	body, contentType := multipartBody(t, "files", map[string][]byte{"a.pdf": []byte("aa")})
	req := httptest.NewRequest(http.MethodPost, "/pdf/batch-upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["type"] != "batch_validation_error" {
		t.Errorf("error type = %q", resp["type"])
	}
}

func TestBatchUploadRequiresFilesField(t *testing.T) {
	handler := newTestHandler(t, 100, &processorFake{})

	body, contentType := multipartBody(t, "other", map[string][]byte{"a.pdf": []byte("aa")})
	req := httptest.NewRequest(http.MethodPost, "/pdf/batch-upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSearchReturnsMatchReport(t *testing.T) {
	handler := newTestHandler(t, 100, &processorFake{})

	payload := map[string]any{
		"results": map[string]any{
			"pages": []map[string]any{
				{"page_number": 1, "text": "the patient was discharged; the notes follow"},
			},
		},
		"query": "the",
	}
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/pdf/search", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp struct {
		TotalMatches     int `json:"total_matches"`
		PagesWithMatches int `json:"pages_with_matches"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalMatches != 2 || resp.PagesWithMatches != 1 {
		t.Errorf("unexpected report: %+v", resp)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler := newTestHandler(t, 100, &processorFake{})

	req := httptest.NewRequest(http.MethodPost, "/pdf/search", bytes.NewBufferString(`{"results":{"pages":[]}}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestPDFHealthReportsLimits(t *testing.T) {
	handler := newTestHandler(t, 100, &processorFake{})

	req := httptest.NewRequest(http.MethodGet, "/pdf/health", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Status           string   `json:"status"`
		MaxBatchSize     int      `json:"max_batch_size"`
		MaxFileSize      int64    `json:"max_file_size"`
		AllowedFileTypes []string `json:"allowed_file_types"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.MaxBatchSize != 10 || resp.MaxFileSize != 1<<20 {
		t.Errorf("unexpected health payload: %+v", resp)
	}
	if len(resp.AllowedFileTypes) != 1 || resp.AllowedFileTypes[0] != ".pdf" {
		t.Errorf("allowed types = %v", resp.AllowedFileTypes)
	}
}
