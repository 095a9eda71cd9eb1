// Package pdftext extracts page text and metadata from PDF payloads.
package pdftext

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/core/ports"
)

// Extractor parses PDFs natively and consults the fallback parser when a
// document yields no text at all (image-only scans).
type Extractor struct {
	fallback ports.FallbackParser
}

func New(fallback ports.FallbackParser) *Extractor {
	return &Extractor{fallback: fallback}
}

func (e *Extractor) Extract(ctx context.Context, task domain.FileTask) (*domain.ExtractedDocument, error) {
	doc, err := e.extractNative(task)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPDFProcessing, "parse pdf", err)
	}

	if doc.TotalTextLength == 0 && e.fallback != nil && e.fallback.Enabled() {
		fallbackDoc, fallbackErr := e.fallback.Parse(ctx, task.Filename, task.Payload)
		if fallbackErr != nil {
			slog.Warn("ocr_fallback_failed", "filename", task.Filename, "error", fallbackErr)
		} else {
			fallbackDoc.FileHash = doc.FileHash
			fallbackDoc.FileSize = task.SizeBytes()
			attachClinicalData(fallbackDoc)
			return fallbackDoc, nil
		}
	}

	attachClinicalData(doc)
	return doc, nil
}

// extractNative recovers parser panics itself: ledongthuc/pdf is known to
// panic on malformed cross-reference tables.
func (e *Extractor) extractNative(task domain.FileTask) (doc *domain.ExtractedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(task.Payload), task.SizeBytes())
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	hash := sha256.Sum256(task.Payload)
	doc = &domain.ExtractedDocument{
		Filename:    task.Filename,
		FileSize:    task.SizeBytes(),
		ProcessedAt: time.Now().UTC(),
		Metadata:    documentMetadata(reader),
		FileHash:    hex.EncodeToString(hash[:]),
		Status:      "success",
	}

	total := reader.NumPage()
	doc.TotalPages = total
	doc.Pages = make([]domain.PageContent, 0, total)

	for number := 1; number <= total; number++ {
		page := domain.PageContent{PageNumber: number}
		text, pageErr := extractPageText(reader, number)
		if pageErr != nil {
			page.Error = pageErr.Error()
		} else {
			page.Text = text
			page.TextLength = len(text)
			doc.TotalTextLength += len(text)
		}
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

// extractPageText tolerates per-page failures so one broken page does not
// lose the rest of the document.
func extractPageText(reader *pdf.Reader, number int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: parser panic: %v", number, r)
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", number)
	}
	return page.GetPlainText(nil)
}

func documentMetadata(reader *pdf.Reader) map[string]string {
	meta := map[string]string{"extraction_method": "native"}

	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return meta
	}
	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer"} {
		if value := info.Key(key).Text(); value != "" {
			meta[strings.ToLower(key)] = value
		}
	}
	return meta
}

func attachClinicalData(doc *domain.ExtractedDocument) {
	if len(doc.Pages) < 2 {
		return
	}
	text := doc.Pages[1].Text
	if strings.TrimSpace(text) == "" {
		return
	}
	data := domain.ExtractClinicalData(text)
	doc.ClinicalData = &data
}
