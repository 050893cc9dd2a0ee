package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/checklisthq/schema-engine/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory DocumentStore fake shared by the service tests
// ---------------------------------------------------------------------------

// memStore implements ports.DocumentStore on a path-keyed map. Commits are
// all-or-nothing and recorded so tests can assert batch sizes; the server
// clock is a deterministic monotonic counter.
type memStore struct {
	docs map[string]map[string]any

	// commits records the operation count of every committed batch.
	commits []int

	// commitErr fails the next Commit (consumed once).
	commitErr error
	// getErr / listErr fail every Get / List while set.
	getErr  error
	listErr error

	base time.Time
	seq  int
}

func newMemStore() *memStore {
	return &memStore{
		docs: make(map[string]map[string]any),
		base: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// put seeds a document directly, bypassing batches.
func (s *memStore) put(path string, fields map[string]any) {
	s.docs[path] = cloneFields(fields)
}

// now advances the fake server clock by one second per call.
func (s *memStore) now() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq) * time.Second)
}

func (s *memStore) Get(_ context.Context, path string) (*ports.Document, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	fields, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, path)
	}
	return &ports.Document{Path: path, ID: lastSegment(path), Fields: cloneFields(fields)}, nil
}

func (s *memStore) List(_ context.Context, collectionPath string) ([]ports.Document, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var paths []string
	for path := range s.docs {
		if parentOf(path) == collectionPath {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	docs := make([]ports.Document, 0, len(paths))
	for _, path := range paths {
		docs = append(docs, ports.Document{Path: path, ID: lastSegment(path), Fields: cloneFields(s.docs[path])})
	}
	return docs, nil
}

func (s *memStore) NewBatch() ports.Batch {
	return &memBatch{store: s}
}

type memOp struct {
	kind   string // "set", "merge", "update", "delete"
	path   string
	fields map[string]any
}

type memBatch struct {
	store *memStore
	ops   []memOp
}

func (b *memBatch) Set(path string, fields map[string]any, merge bool) {
	kind := "set"
	if merge {
		kind = "merge"
	}
	b.ops = append(b.ops, memOp{kind: kind, path: path, fields: fields})
}

func (b *memBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, memOp{kind: "update", path: path, fields: fields})
}

func (b *memBatch) Delete(path string) {
	b.ops = append(b.ops, memOp{kind: "delete", path: path})
}

func (b *memBatch) Len() int {
	return len(b.ops)
}

func (b *memBatch) Commit(_ context.Context) error {
	if b.store.commitErr != nil {
		err := b.store.commitErr
		b.store.commitErr = nil
		return err
	}

	now := b.store.now()
	for _, op := range b.ops {
		switch op.kind {
		case "set":
			b.store.docs[op.path] = resolveMemFields(nil, op.fields, now)
		case "merge", "update":
			if op.kind == "update" {
				if _, ok := b.store.docs[op.path]; !ok {
					return fmt.Errorf("%w: update of missing document %s", ports.ErrUnavailable, op.path)
				}
			}
			b.store.docs[op.path] = resolveMemFields(b.store.docs[op.path], op.fields, now)
		case "delete":
			delete(b.store.docs, op.path)
		}
	}
	b.store.commits = append(b.store.commits, len(b.ops))
	b.ops = nil
	return nil
}

// resolveMemFields merges fields over base, substituting the sentinels the
// way a real adapter would.
func resolveMemFields(base, fields map[string]any, now time.Time) map[string]any {
	out := cloneFields(base)
	if out == nil {
		out = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if ports.IsDeleteField(v) {
			delete(out, k)
			continue
		}
		if ports.IsServerTimestamp(v) {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Seeding helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var seedTime = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// seedPreferences writes a well-formed preferences document.
func seedPreferences(s *memStore, tenantID string, selectedYearID string) {
	fields := map[string]any{
		"userId":    tenantID,
		"createdAt": seedTime,
		"updatedAt": seedTime,
	}
	if selectedYearID != "" {
		fields["selectedYearId"] = selectedYearID
	}
	s.put("tenants/"+tenantID+"/preferences/main", fields)
}

// seedYear writes a well-formed year document.
func seedYear(s *memStore, tenantID, yearID, name string) {
	s.put("tenants/"+tenantID+"/years/"+yearID, map[string]any{
		"userId":    tenantID,
		"name":      name,
		"createdAt": seedTime,
		"updatedAt": seedTime,
	})
}

// seedContact writes a well-formed contact document; extra overrides or
// adds fields.
func seedContact(s *memStore, tenantID, yearID, contactID, first, last, enterprise string, extra map[string]any) {
	fields := map[string]any{
		"userId":      tenantID,
		"yearId":      yearID,
		"firstName":   first,
		"lastName":    last,
		"enterprise":  enterprise,
		"delivered":   false,
		"deliveredAt": nil,
		"createdAt":   seedTime,
		"updatedAt":   seedTime,
	}
	for k, v := range extra {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	s.put("tenants/"+tenantID+"/years/"+yearID+"/contacts/"+contactID, fields)
}

func lastSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}
