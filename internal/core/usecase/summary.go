package usecase

import "github.com/mkravets/pdf-extract-service/internal/core/domain"

// Summarize folds a result sequence into its batch summary. Pure: recomputing
// over the same sequence always yields the same summary.
func Summarize(results []domain.FileResult) domain.BatchSummary {
	var summary domain.BatchSummary
	for _, result := range results {
		if !result.Succeeded() {
			summary.ErrorCount++
			continue
		}
		summary.SuccessCount++
		if result.Document != nil {
			summary.TotalPages += result.Document.TotalPages
			summary.TotalTextLength += result.Document.TotalTextLength
		}
	}
	return summary
}
