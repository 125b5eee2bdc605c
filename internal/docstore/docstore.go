package docstore

import (
	"context"
	"errors"
)

// ErrDocumentNotFound reports an unknown document id.
var ErrDocumentNotFound = errors.New("document not found")

// Document is the slice of the external document entity the pipeline needs:
// where the file lives, how to interpret it, and which scope it belongs to.
// The surrounding CRUD system owns the rest.
type Document struct {
	ID       int64
	Title    string
	FilePath string
	MimeType string
	OfficeID int64
	CaseID   *int64
	FolderID *int64

	// Lifecycle flags written back by the pipeline.
	OCRProcessed bool
	Indexed      bool
	LastError    string
}

// FlagUpdate is a partial update of a document's processing flags. Nil
// fields are left unchanged. Error is the empty string to clear a prior
// error.
type FlagUpdate struct {
	OCRProcessed *bool
	Indexed      *bool
	Error        *string
}

// Store is the consumed document-store boundary.
type Store interface {
	GetDocument(ctx context.Context, id int64) (Document, error)
	SetFlags(ctx context.Context, id int64, update FlagUpdate) error
}

// Bool returns a pointer for use in FlagUpdate literals.
func Bool(v bool) *bool { return &v }

// String returns a pointer for use in FlagUpdate literals.
func String(v string) *string { return &v }
