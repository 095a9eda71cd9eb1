package domain

import "time"

// PageContent is the extracted content of a single PDF page. A page that fails
// to parse keeps its slot with an error note so page numbering stays intact.
type PageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	TextLength int    `json:"text_length"`
	Error      string `json:"error,omitempty"`
}

// ExtractedDocument is the full extraction result for one file.
type ExtractedDocument struct {
	Filename        string            `json:"filename"`
	FileSize        int64             `json:"file_size"`
	ProcessedAt     time.Time         `json:"processed_at"`
	Pages           []PageContent     `json:"pages"`
	TotalPages      int               `json:"total_pages"`
	TotalTextLength int               `json:"total_text_length"`
	Metadata        map[string]string `json:"metadata"`
	ClinicalData    *ClinicalData     `json:"clinical_data,omitempty"`
	FileHash        string            `json:"file_hash"`
	Status          string            `json:"status"`
}

// FileTask is one file within a batch submission. Identity is positional:
// Index points into the owning BatchJob's file sequence, so duplicate
// filenames are allowed.
type FileTask struct {
	Index    int
	Filename string
	Payload  []byte
}

func (t FileTask) SizeBytes() int64 { return int64(len(t.Payload)) }

// BatchJob is a single batch submission. It lives for one request/response
// cycle; nothing persists it.
type BatchJob struct {
	BatchID     string
	SubmittedBy string
	Files       []FileTask
	CreatedAt   time.Time
}

// FileResult is the outcome for one FileTask, produced exactly once. Either
// Document or Err is set.
type FileResult struct {
	Index    int
	Filename string
	Document *ExtractedDocument
	Err      error
}

func (r FileResult) Succeeded() bool { return r.Err == nil }

// FileFailure is the wire shape of a failed outcome in a batch response.
type FileFailure struct {
	Filename  string `json:"filename"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// BatchSummary aggregates the outcomes of one batch. It is derived from the
// result sequence and never mutated independently.
type BatchSummary struct {
	SuccessCount    int `json:"success_count"`
	ErrorCount      int `json:"error_count"`
	TotalPages      int `json:"total_pages"`
	TotalTextLength int `json:"total_text_length"`
}

// BatchReport is the complete response payload for one processed batch.
type BatchReport struct {
	BatchID     string
	ProcessedAt time.Time
	TotalFiles  int
	Results     []FileResult
	Summary     BatchSummary
}

// ActivityEvent records a user-visible action for the best-effort activity
// stream. Publishing failures never fail the request that produced the event.
type ActivityEvent struct {
	ClientKey    string         `json:"client_key"`
	ActivityType string         `json:"activity_type"`
	Description  string         `json:"description"`
	Details      map[string]any `json:"details,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

const (
	ActivityPDFUpload      = "pdf_upload"
	ActivityPDFBatchUpload = "pdf_batch_upload"
)
