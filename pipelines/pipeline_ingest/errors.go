package pipeline_ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/database"
)

type Kind int

const (
	KindValidation Kind = iota
	KindCountMismatch
	KindExtraction
	KindDuplicate
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCountMismatch:
		return "count_mismatch"
	case KindExtraction:
		return "extraction"
	case KindDuplicate:
		return "duplicate"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// IngestError is the only error type returned by the ingestor for a failed ingestion. Fields is
// set for validation failures (field name to messages), Existing for duplicates.
type IngestError struct {
	Kind     Kind
	Fields   map[string][]string
	Files    int
	Metadata int
	Existing *database.DbSample
	Err      error
}

func (e *IngestError) Error() string {
	switch e.Kind {
	case KindValidation:
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
		}
		return "validation failed: " + strings.Join(parts, "; ")
	case KindCountMismatch:
		return fmt.Sprintf("%s: %d files, %d metadata objects", common.ErrCountMismatch.Error(), e.Files, e.Metadata)
	case KindDuplicate:
		if e.Existing != nil {
			return fmt.Sprintf("%s: %s", common.ErrDuplicateExists.Error(), e.Existing.Sha256Digest)
		}
		return common.ErrDuplicateExists.Error()
	}
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can use errors.Is with the common
// package sentinels.
func (e *IngestError) Is(target error) bool {
	switch e.Kind {
	case KindCountMismatch:
		return target == common.ErrCountMismatch
	case KindExtraction:
		return target == common.ErrExtractionFailed
	case KindDuplicate:
		return target == common.ErrDuplicateExists
	case KindStorage:
		return target == common.ErrStorageFailed
	}
	return false
}

func ValidationError(fields map[string][]string, err error) *IngestError {
	return &IngestError{Kind: KindValidation, Fields: fields, Err: err}
}

func CountMismatch(files int, metadata int) *IngestError {
	return &IngestError{Kind: KindCountMismatch, Files: files, Metadata: metadata}
}

func ExtractionFailed(err error) *IngestError {
	return &IngestError{Kind: KindExtraction, Err: err}
}

func DuplicateExists(existing *database.DbSample) *IngestError {
	return &IngestError{Kind: KindDuplicate, Existing: existing}
}

func StorageError(err error) *IngestError {
	return &IngestError{Kind: KindStorage, Err: err}
}

// ItemError names the batch item which failed the batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
