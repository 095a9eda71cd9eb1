package usecase

import (
	"errors"
	"testing"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
)

func TestSummarizeSumsOnlySuccessfulOutcomes(t *testing.T) {
	results := []domain.FileResult{
		{Index: 0, Document: &domain.ExtractedDocument{TotalPages: 3, TotalTextLength: 120}},
		{Index: 1, Err: errors.New("broken")},
		{Index: 2, Document: &domain.ExtractedDocument{TotalPages: 5, TotalTextLength: 300}},
	}

	summary := Summarize(results)

	if summary.SuccessCount != 2 || summary.ErrorCount != 1 {
		t.Fatalf("unexpected partition: %+v", summary)
	}
	if summary.TotalPages != 8 {
		t.Fatalf("expected 8 total pages, got %d", summary.TotalPages)
	}
	if summary.TotalTextLength != 420 {
		t.Fatalf("expected 420 total text length, got %d", summary.TotalTextLength)
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	results := []domain.FileResult{
		{Index: 0, Document: &domain.ExtractedDocument{TotalPages: 1, TotalTextLength: 10}},
		{Index: 1, Err: errors.New("broken")},
	}

	first := Summarize(results)
	second := Summarize(results)

	if first != second {
		t.Fatalf("re-running Summarize changed the summary: %+v vs %+v", first, second)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	if summary := Summarize(nil); summary != (domain.BatchSummary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}
