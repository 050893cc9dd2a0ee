package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/checklisthq/schema-engine/internal/core/ports"
)

const collectionDocuments = "documents"

// DocStore implements ports.DocumentStore on MongoDB. Every hierarchical
// document lives as one row in a single collection, keyed by its full path;
// the parent collection path is stored alongside for List queries. Batch
// commits run inside a Mongo transaction, which requires the deployment to
// be a replica set.
type DocStore struct {
	client *mongo.Client
	col    *mongo.Collection
	maxOps int
}

// NewDocStore creates a DocStore with the given per-batch operation
// ceiling. A non-positive ceiling falls back to ports.DefaultMaxBatchOps.
func NewDocStore(client *mongo.Client, db *mongo.Database, maxOps int) *DocStore {
	if maxOps <= 0 {
		maxOps = ports.DefaultMaxBatchOps
	}
	return &DocStore{client: client, col: db.Collection(collectionDocuments), maxOps: maxOps}
}

// storedDoc is the raw row shape in the documents collection.
type storedDoc struct {
	Path       string `bson:"_id"`
	Collection string `bson:"collection"`
	Fields     bson.M `bson:"fields"`
}

// EnsureIndexes creates the collection-path index backing List queries.
func (s *DocStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "collection", Value: 1}},
	})
	if err != nil {
		return wrapTransportErr("create indexes", err)
	}
	return nil
}

func (s *DocStore) Get(ctx context.Context, path string) (*ports.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row storedDoc
	err := s.col.FindOne(ctx, bson.M{"_id": path}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, path)
		}
		return nil, wrapTransportErr("get "+path, err)
	}
	return toDocument(&row), nil
}

func (s *DocStore) List(ctx context.Context, collectionPath string) ([]ports.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{"collection": collectionPath})
	if err != nil {
		return nil, wrapTransportErr("list "+collectionPath, err)
	}
	defer cursor.Close(ctx)

	var docs []ports.Document
	for cursor.Next(ctx) {
		var row storedDoc
		if err := cursor.Decode(&row); err != nil {
			return nil, wrapTransportErr("decode "+collectionPath, err)
		}
		docs = append(docs, *toDocument(&row))
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapTransportErr("list "+collectionPath, err)
	}
	return docs, nil
}

func (s *DocStore) NewBatch() ports.Batch {
	return &docBatch{store: s}
}

func toDocument(row *storedDoc) *ports.Document {
	fields := make(map[string]any, len(row.Fields))
	for k, v := range row.Fields {
		// Mongo round-trips time values as primitive.DateTime via the
		// bson.M decoder; normalize to time.Time for the engine.
		if dt, ok := v.(interface{ Time() time.Time }); ok {
			fields[k] = dt.Time().UTC()
			continue
		}
		fields[k] = v
	}
	parts := strings.Split(row.Path, "/")
	return &ports.Document{
		Path:   row.Path,
		ID:     parts[len(parts)-1],
		Fields: fields,
	}
}

// wrapTransportErr classifies a driver failure into the engine's error
// kinds so callers can tell a retryable outage from a permission problem.
func wrapTransportErr(op string, err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 13 { // Unauthorized
		return fmt.Errorf("%w: %s: %v", ports.ErrPermissionDenied, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrUnavailable, op, err)
}

type batchOpKind int

const (
	opSet batchOpKind = iota
	opSetMerge
	opUpdate
	opDelete
)

type batchOp struct {
	kind   batchOpKind
	path   string
	fields map[string]any
}

// docBatch buffers operations and commits them inside one transaction.
type docBatch struct {
	store *DocStore
	ops   []batchOp
}

func (b *docBatch) Set(path string, fields map[string]any, merge bool) {
	kind := opSet
	if merge {
		kind = opSetMerge
	}
	b.ops = append(b.ops, batchOp{kind: kind, path: path, fields: fields})
}

func (b *docBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{kind: opUpdate, path: path, fields: fields})
}

func (b *docBatch) Delete(path string) {
	b.ops = append(b.ops, batchOp{kind: opDelete, path: path})
}

func (b *docBatch) Len() int {
	return len(b.ops)
}

func (b *docBatch) Commit(ctx context.Context) error {
	if len(b.ops) > b.store.maxOps {
		return fmt.Errorf("batch of %d operations exceeds the ceiling of %d", len(b.ops), b.store.maxOps)
	}

	session, err := b.store.client.StartSession()
	if err != nil {
		return wrapTransportErr("start session", err)
	}
	defer session.EndSession(ctx)

	// One commit-time clock value stands in for the server-assigned
	// timestamp of every ServerTimestamp sentinel in the batch.
	now := time.Now().UTC()

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		for _, op := range b.ops {
			if err := b.applyOp(sc, op, now); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return wrapTransportErr("commit batch", err)
	}
	return nil
}

func (b *docBatch) applyOp(ctx mongo.SessionContext, op batchOp, now time.Time) error {
	parent := parentPath(op.path)
	switch op.kind {
	case opSet:
		row := storedDoc{Path: op.path, Collection: parent, Fields: resolveFields(op.fields, now)}
		_, err := b.store.col.ReplaceOne(ctx, bson.M{"_id": op.path}, row, options.Replace().SetUpsert(true))
		return err
	case opSetMerge, opUpdate:
		set := bson.M{"collection": parent}
		unset := bson.M{}
		for k, v := range op.fields {
			if ports.IsDeleteField(v) {
				unset["fields."+k] = ""
				continue
			}
			if ports.IsServerTimestamp(v) {
				set["fields."+k] = now
				continue
			}
			set["fields."+k] = v
		}
		update := bson.M{"$set": set}
		if len(unset) > 0 {
			update["$unset"] = unset
		}
		_, err := b.store.col.UpdateOne(ctx, bson.M{"_id": op.path}, update,
			options.Update().SetUpsert(op.kind == opSetMerge))
		return err
	case opDelete:
		_, err := b.store.col.DeleteOne(ctx, bson.M{"_id": op.path})
		return err
	}
	return nil
}

// resolveFields substitutes sentinels for a full-document write. DeleteField
// simply drops the key: the document is being replaced wholesale.
func resolveFields(fields map[string]any, now time.Time) bson.M {
	out := bson.M{}
	for k, v := range fields {
		if ports.IsDeleteField(v) {
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

func parentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}
