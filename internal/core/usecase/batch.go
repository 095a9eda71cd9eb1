package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mkravets/pdf-extract-service/internal/concurrency"
	"github.com/mkravets/pdf-extract-service/internal/core/domain"
)

// Orchestrator fans a batch of file tasks out to the extraction gateway under
// the shared slot ceiling and fans the outcomes back in. The returned sequence
// preserves submission order regardless of completion order: each worker
// writes into the pre-sized result slice at its task's position.
type Orchestrator struct {
	gateway      *ExtractionGateway
	slots        *concurrency.Slots
	maxBatchSize int
	maxFileSize  int64
	allowedTypes []string
}

func NewOrchestrator(
	gateway *ExtractionGateway,
	slots *concurrency.Slots,
	maxBatchSize int,
	maxFileSize int64,
	allowedTypes []string,
) *Orchestrator {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	types := make([]string, 0, len(allowedTypes))
	for _, t := range allowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		types = append(types, t)
	}
	return &Orchestrator{
		gateway:      gateway,
		slots:        slots,
		maxBatchSize: maxBatchSize,
		maxFileSize:  maxFileSize,
		allowedTypes: types,
	}
}

// Run processes every file of the job and returns one outcome per task, in
// submission order. Validation failures reject the whole batch before any
// extraction work starts; after that point a failing file never aborts or
// blocks its siblings.
func (o *Orchestrator) Run(ctx context.Context, job domain.BatchJob) ([]domain.FileResult, error) {
	if err := o.validateBatch(job); err != nil {
		return nil, err
	}

	results := make([]domain.FileResult, len(job.Files))
	var wg sync.WaitGroup
	for i := range job.Files {
		task := job.Files[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[task.Index] = o.runTask(ctx, task)
		}()
	}
	wg.Wait()

	return results, nil
}

// RunSingle processes one task through the same slot gate and gateway as
// batch work.
func (o *Orchestrator) RunSingle(ctx context.Context, task domain.FileTask) (*domain.ExtractedDocument, error) {
	if err := o.ValidateFile(task); err != nil {
		return nil, err
	}
	result := o.runTask(ctx, task)
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Document, nil
}

func (o *Orchestrator) runTask(ctx context.Context, task domain.FileTask) domain.FileResult {
	if err := o.slots.Acquire(ctx); err != nil {
		kind := domain.ErrTimeout
		if errors.Is(err, context.Canceled) {
			kind = domain.ErrCancelled
		}
		return domain.FileResult{
			Index:    task.Index,
			Filename: task.Filename,
			Err:      domain.WrapError(kind, "acquire extraction slot", err),
		}
	}
	defer o.slots.Release()

	return o.gateway.Extract(ctx, task)
}

func (o *Orchestrator) validateBatch(job domain.BatchJob) error {
	if len(job.Files) > o.maxBatchSize {
		return domain.WrapError(
			domain.ErrBatchValidation,
			"validate batch",
			fmt.Errorf("%d files exceeds maximum batch size of %d", len(job.Files), o.maxBatchSize),
		)
	}
	for _, task := range job.Files {
		if err := o.ValidateFile(task); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFile runs the cheap synchronous checks shared by the single-file
// and batch paths.
func (o *Orchestrator) ValidateFile(task domain.FileTask) error {
	if o.maxFileSize > 0 && task.SizeBytes() > o.maxFileSize {
		return domain.WrapError(
			domain.ErrFileValidation,
			"validate file",
			fmt.Errorf("file %q exceeds maximum allowed size of %d bytes", task.Filename, o.maxFileSize),
		)
	}
	if len(o.allowedTypes) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(task.Filename))
	for _, allowed := range o.allowedTypes {
		if ext == allowed {
			return nil
		}
	}
	return domain.WrapError(
		domain.ErrFileValidation,
		"validate file",
		fmt.Errorf("file type %q not allowed for %q, allowed types: %s", ext, task.Filename, strings.Join(o.allowedTypes, ", ")),
	)
}
