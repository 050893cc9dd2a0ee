package service

import (
	"context"

	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// BatchWriter wraps the store's batch primitive with automatic flushing at
// the store's operation ceiling. Callers stage writes and must call Flush
// at the end of every logical unit of work; a flush triggered by the
// ceiling is synchronous and its failure surfaces from the staging call.
//
// There is no retry anywhere in here: a commit failure propagates verbatim
// and the caller decides whether to re-run the whole (idempotent) unit of
// work.
type BatchWriter struct {
	store  ports.DocumentStore
	maxOps int
	batch  ports.Batch
}

// NewBatchWriter creates a writer with the given per-batch operation
// ceiling. A non-positive ceiling falls back to ports.DefaultMaxBatchOps.
func NewBatchWriter(store ports.DocumentStore, maxOps int) *BatchWriter {
	if maxOps <= 0 {
		maxOps = ports.DefaultMaxBatchOps
	}
	return &BatchWriter{store: store, maxOps: maxOps}
}

// Set stages a create-or-replace (merge=false) or upsert-merge (merge=true)
// of the document at path.
func (w *BatchWriter) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	w.ensureBatch()
	w.batch.Set(path, fields, merge)
	return w.flushIfFull(ctx)
}

// Update stages a partial update of an existing document.
func (w *BatchWriter) Update(ctx context.Context, path string, fields map[string]any) error {
	w.ensureBatch()
	w.batch.Update(path, fields)
	return w.flushIfFull(ctx)
}

// Delete stages a document deletion.
func (w *BatchWriter) Delete(ctx context.Context, path string) error {
	w.ensureBatch()
	w.batch.Delete(path)
	return w.flushIfFull(ctx)
}

// Pending returns the number of staged, uncommitted operations.
func (w *BatchWriter) Pending() int {
	if w.batch == nil {
		return 0
	}
	return w.batch.Len()
}

// Flush commits all staged operations. Flushing with nothing staged is a
// no-op; an empty batch is never committed.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if w.batch == nil || w.batch.Len() == 0 {
		return nil
	}
	batch := w.batch
	w.batch = nil
	return batch.Commit(ctx)
}

func (w *BatchWriter) ensureBatch() {
	if w.batch == nil {
		w.batch = w.store.NewBatch()
	}
}

func (w *BatchWriter) flushIfFull(ctx context.Context) error {
	if w.batch.Len() >= w.maxOps {
		return w.Flush(ctx)
	}
	return nil
}
