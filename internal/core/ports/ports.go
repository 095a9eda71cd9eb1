package ports

import (
	"context"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
)

// DocumentProcessor is the inbound contract for single-file and batch
// extraction orchestration.
type DocumentProcessor interface {
	ProcessFile(ctx context.Context, clientKey string, task domain.FileTask) (*domain.ExtractedDocument, error)
	ProcessBatch(ctx context.Context, clientKey string, files []domain.FileTask) (*domain.BatchReport, error)
}

// PageExtractor turns raw PDF bytes into structured page content. One corrupt
// input must surface as an error, never as a panic reaching the caller.
type PageExtractor interface {
	Extract(ctx context.Context, task domain.FileTask) (*domain.ExtractedDocument, error)
}

// FallbackParser is a remote parsing service used when native extraction
// yields no text (image-only documents).
type FallbackParser interface {
	Enabled() bool
	Parse(ctx context.Context, filename string, payload []byte) (*domain.ExtractedDocument, error)
}

// ActivityPublisher emits activity events. Implementations are best-effort:
// callers log failures and continue.
type ActivityPublisher interface {
	Publish(ctx context.Context, event domain.ActivityEvent) error
}
