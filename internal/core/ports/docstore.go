package ports

import (
	"context"
	"errors"
)

// DefaultMaxBatchOps is the store's hard ceiling on operations per atomic
// batch. The BatchWriter flushes automatically when it is reached.
const DefaultMaxBatchOps = 500

// Transport error kinds. Adapters wrap every backend failure into one of
// these so callers can distinguish retryable outages from permanent
// failures.
var ErrNotFound = errors.New("document not found")
var ErrUnavailable = errors.New("document store unavailable")
var ErrPermissionDenied = errors.New("permission denied")

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value. Adapters replace it at commit
// time with their server-assigned clock value; engine code never writes a
// local wall-clock timestamp into a document.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// deleteField is the sentinel type behind DeleteField.
type deleteField struct{}

// DeleteField is a sentinel field value instructing the adapter to remove
// the field from the document instead of writing a value.
var DeleteField any = deleteField{}

// IsDeleteField reports whether v is the DeleteField sentinel.
func IsDeleteField(v any) bool {
	_, ok := v.(deleteField)
	return ok
}

// Document is one stored document: its full hierarchical path, the final
// path segment as id, and the loosely-typed field bag. Typed decoding
// happens in the engine's codec layer, never in adapters.
type Document struct {
	Path   string
	ID     string
	Fields map[string]any
}

// Batch is a handle onto one atomic unit of writes. Commit applies all
// staged operations or none of them; there is no atomicity across batches.
type Batch interface {
	// Set creates or replaces the document at path. With merge, existing
	// fields not present in fields are preserved (upsert-merge semantics).
	Set(path string, fields map[string]any, merge bool)
	// Update patches the given fields on an existing document.
	Update(path string, fields map[string]any)
	Delete(path string)
	// Len returns the number of staged operations.
	Len() int
	// Commit applies the batch as a unit. Transport failures are wrapped
	// into one of the error kinds above.
	Commit(ctx context.Context) error
}

// DocumentStore is the narrow contract the engine consumes from the
// hierarchical document backend.
type DocumentStore interface {
	// Get returns the document at path, or an ErrNotFound-wrapped error
	// when it is absent.
	Get(ctx context.Context, path string) (*Document, error)
	// List returns all documents directly inside a collection path.
	List(ctx context.Context, collectionPath string) ([]Document, error)
	// NewBatch opens a fresh write batch.
	NewBatch() Batch
}
