package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/core/ports"
)

// ProcessService is the inbound entry point: it stamps batch identity, runs
// the orchestrator, aggregates outcomes, and emits best-effort activity
// events.
type ProcessService struct {
	orchestrator *Orchestrator
	activity     ports.ActivityPublisher
	newBatchID   func() string
	now          func() time.Time
}

func NewProcessService(orchestrator *Orchestrator, activity ports.ActivityPublisher) *ProcessService {
	return &ProcessService{
		orchestrator: orchestrator,
		activity:     activity,
		newBatchID:   uuid.NewString,
		now:          time.Now,
	}
}

func (s *ProcessService) ProcessFile(ctx context.Context, clientKey string, task domain.FileTask) (*domain.ExtractedDocument, error) {
	doc, err := s.orchestrator.RunSingle(ctx, task)
	if err != nil {
		return nil, err
	}

	s.publishActivity(ctx, domain.ActivityEvent{
		ClientKey:    clientKey,
		ActivityType: domain.ActivityPDFUpload,
		Description:  fmt.Sprintf("Uploaded PDF: %s", task.Filename),
		Details: map[string]any{
			"filename":    task.Filename,
			"file_size":   doc.FileSize,
			"total_pages": doc.TotalPages,
		},
		OccurredAt: s.now().UTC(),
	})
	return doc, nil
}

func (s *ProcessService) ProcessBatch(ctx context.Context, clientKey string, files []domain.FileTask) (*domain.BatchReport, error) {
	job := domain.BatchJob{
		BatchID:     s.newBatchID(),
		SubmittedBy: clientKey,
		Files:       files,
		CreatedAt:   s.now().UTC(),
	}

	results, err := s.orchestrator.Run(ctx, job)
	if err != nil {
		return nil, err
	}

	report := &domain.BatchReport{
		BatchID:     job.BatchID,
		ProcessedAt: s.now().UTC(),
		TotalFiles:  len(files),
		Results:     results,
		Summary:     Summarize(results),
	}

	s.publishActivity(ctx, domain.ActivityEvent{
		ClientKey:    clientKey,
		ActivityType: domain.ActivityPDFBatchUpload,
		Description:  fmt.Sprintf("Batch uploaded %d PDF files", len(files)),
		Details: map[string]any{
			"batch_id":      report.BatchID,
			"file_count":    report.TotalFiles,
			"success_count": report.Summary.SuccessCount,
			"error_count":   report.Summary.ErrorCount,
		},
		OccurredAt: s.now().UTC(),
	})
	return report, nil
}

func (s *ProcessService) publishActivity(ctx context.Context, event domain.ActivityEvent) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Publish(ctx, event); err != nil {
		slog.Warn("activity_publish_failed", "activity_type", event.ActivityType, "error", err)
	}
}
