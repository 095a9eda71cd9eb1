package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/core/ports"
)

// ExtractionGateway wraps the parser with a per-call timeout. Parser errors
// and panics come back as captured failure outcomes; nothing escapes to the
// orchestrator, so one corrupt file can never abort its siblings.
type ExtractionGateway struct {
	extractor ports.PageExtractor
	timeout   time.Duration
}

func NewExtractionGateway(extractor ports.PageExtractor, timeout time.Duration) *ExtractionGateway {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExtractionGateway{
		extractor: extractor,
		timeout:   timeout,
	}
}

type extraction struct {
	doc *domain.ExtractedDocument
	err error
}

// Extract runs one extraction under its own deadline, independent of other
// in-flight calls.
func (g *ExtractionGateway) Extract(ctx context.Context, task domain.FileTask) domain.FileResult {
	result := domain.FileResult{Index: task.Index, Filename: task.Filename}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan extraction, 1)
	go func() {
		doc, err := g.safeExtract(ctx, task)
		done <- extraction{doc: doc, err: err}
	}()

	// The parse may be CPU-bound and ignore ctx; return at the deadline so
	// the caller can release its slot instead of leaking it.
	select {
	case <-ctx.Done():
		// An extraction that finished right at the deadline still counts.
		select {
		case out := <-done:
			return g.resolve(result, out)
		default:
		}
		kind := domain.ErrTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			kind = domain.ErrCancelled
		}
		result.Err = domain.WrapError(kind, "extract document", ctx.Err())
	case out := <-done:
		return g.resolve(result, out)
	}
	return result
}

func (g *ExtractionGateway) resolve(result domain.FileResult, out extraction) domain.FileResult {
	if out.err != nil {
		result.Err = classifyExtractionError(out.err)
	} else {
		result.Document = out.doc
	}
	return result
}

func (g *ExtractionGateway) safeExtract(ctx context.Context, task domain.FileTask) (doc *domain.ExtractedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = domain.WrapError(domain.ErrPDFProcessing, "extract document", fmt.Errorf("parser panic: %v", r))
		}
	}()
	return g.extractor.Extract(ctx, task)
}

func classifyExtractionError(err error) error {
	switch {
	case domain.IsKind(err, domain.ErrTimeout),
		domain.IsKind(err, domain.ErrCancelled),
		domain.IsKind(err, domain.ErrPDFProcessing),
		domain.IsKind(err, domain.ErrFileValidation):
		return err
	case domain.IsKind(err, context.DeadlineExceeded):
		return domain.WrapError(domain.ErrTimeout, "extract document", err)
	case domain.IsKind(err, context.Canceled):
		return domain.WrapError(domain.ErrCancelled, "extract document", err)
	default:
		return domain.WrapError(domain.ErrPDFProcessing, "extract document", err)
	}
}
