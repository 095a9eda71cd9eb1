// Package ocr is the client for the hosted fallback parser used when native
// extraction finds no text (image-only PDFs).
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// Enabled reports whether the fallback is configured. A disabled client is
// still safe to wire; callers check Enabled before parsing.
func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type parseResponse struct {
	Pages []struct {
		PageNumber int    `json:"page_number"`
		Text       string `json:"text"`
	} `json:"pages"`
	Metadata map[string]string `json:"metadata"`
}

func (c *Client) Parse(ctx context.Context, filename string, payload []byte) (*domain.ExtractedDocument, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ocr fallback is not configured")
	}

	var parsed parseResponse
	call := func(ctx context.Context) error {
		var err error
		parsed, err = c.parseOnce(ctx, filename, payload)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ocr.parse", call, isRetryable)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrPDFProcessing, "ocr fallback parse", err)
	}

	return c.toDocument(filename, int64(len(payload)), parsed), nil
}

func (c *Client) parseOnce(ctx context.Context, filename string, payload []byte) (parseResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return parseResponse{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return parseResponse{}, fmt.Errorf("write multipart payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return parseResponse{}, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", &body)
	if err != nil {
		return parseResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return parseResponse{}, retryableError{fmt.Errorf("ocr request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		err := fmt.Errorf("ocr service returned %d: %s", res.StatusCode, bytes.TrimSpace(raw))
		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			return parseResponse{}, retryableError{err}
		}
		return parseResponse{}, err
	}

	var parsed parseResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return parseResponse{}, fmt.Errorf("decode ocr response: %w", err)
	}
	return parsed, nil
}

func (c *Client) toDocument(filename string, size int64, parsed parseResponse) *domain.ExtractedDocument {
	doc := &domain.ExtractedDocument{
		Filename:    filename,
		FileSize:    size,
		ProcessedAt: time.Now().UTC(),
		Pages:       make([]domain.PageContent, 0, len(parsed.Pages)),
		Metadata:    map[string]string{"extraction_method": "ocr_fallback"},
		Status:      "success",
	}
	for i, page := range parsed.Pages {
		number := page.PageNumber
		if number == 0 {
			number = i + 1
		}
		doc.Pages = append(doc.Pages, domain.PageContent{
			PageNumber: number,
			Text:       page.Text,
			TextLength: len(page.Text),
		})
		doc.TotalTextLength += len(page.Text)
	}
	doc.TotalPages = len(doc.Pages)
	for key, value := range parsed.Metadata {
		if key != "extraction_method" {
			doc.Metadata[key] = value
		}
	}
	return doc
}

type retryableError struct{ error }

func (e retryableError) Unwrap() error { return e.error }

func isRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}
