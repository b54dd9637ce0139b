// Package index owns the lifecycle of the per-domain vector collections.
// Each serving name is an alias; rebuilds create a fresh versioned
// collection behind it and repoint the alias once the new one is indexed
// and loaded, so queries never observe a missing collection.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hereforus/apps/recommender/internal/adapter/clova"
	"hereforus/apps/recommender/internal/adapter/milvus"
)

var (
	ErrCollectionUnavailable = errors.New("collection unavailable")
	ErrBuildTimeout          = errors.New("index build timed out")
)

// InsertError is a rejected vector-store write. Rows already accepted are
// not rolled back.
type InsertError struct {
	Collection string
	Err        error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert into %s failed: %v", e.Collection, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// SchemaKind selects one of the fixed per-domain collection shapes.
type SchemaKind int

const (
	// AutoIDWithSource: auto int64 pk + source + text + embedding (festival, movie).
	AutoIDWithSource SchemaKind = iota
	// AutoID: auto int64 pk + text + embedding (food).
	AutoID
	// StringID: externally supplied string pk + text + embedding (performance).
	StringID
)

const (
	textMaxLength   = 9000
	sourceMaxLength = 3000
	idMaxLength     = 256
	searchEf        = 64
)

// Row is one embedded chunk ready for insertion.
type Row struct {
	ID        string
	Text      string
	Source    string
	Embedding []float32
}

// SearchHit is one nearest neighbor from one collection.
type SearchHit struct {
	Collection string  `json:"collection"`
	ID         any     `json:"id,omitempty"`
	Distance   float64 `json:"distance"`
	Text       string  `json:"text"`
}

type VectorClient interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string, schema milvus.Schema) error
	DropCollection(ctx context.Context, name string) error
	Insert(ctx context.Context, name string, rows []map[string]any) (int, error)
	CreateIndex(ctx context.Context, name string, params milvus.IndexParams) error
	IndexState(ctx context.Context, name, field string) (string, error)
	LoadCollection(ctx context.Context, name string) error
	LoadState(ctx context.Context, name string) (string, error)
	EnsureAlias(ctx context.Context, alias, collection string) error
	Search(ctx context.Context, name string, vector []float32, limit, ef int, outputFields []string) ([]milvus.Hit, error)
}

type Manager struct {
	client    VectorClient
	buildWait time.Duration
	poll      time.Duration
	now       func() time.Time
}

func NewManager(client VectorClient, buildWait, poll time.Duration) *Manager {
	return &Manager{client: client, buildWait: buildWait, poll: poll, now: time.Now}
}

// Rebuild replaces the serving collection wholesale: create a versioned
// collection, bulk-insert, build the HNSW index, load, then swap the alias
// and drop superseded versions. Returns the number of rows accepted.
func (m *Manager) Rebuild(ctx context.Context, serving string, kind SchemaKind, rows []Row) (int, error) {
	// Nanosecond granularity keeps back-to-back rebuilds from colliding on
	// the same version name.
	version := fmt.Sprintf("%s_v%d", serving, m.now().UnixNano())

	if err := m.client.CreateCollection(ctx, version, schemaFor(kind)); err != nil {
		return 0, fmt.Errorf("create %s: %w", version, err)
	}

	inserted := 0
	if wireRows := toWireRows(kind, rows); len(wireRows) > 0 {
		n, err := m.client.Insert(ctx, version, wireRows)
		if err != nil {
			// Reported, not fatal: rows that did land are still indexed and served.
			slog.ErrorContext(ctx, "bulk insert failed", "collection", version,
				"error", &InsertError{Collection: version, Err: err})
		}
		inserted = n
	}

	indexParams := milvus.IndexParams{
		Field:          "embedding",
		MetricType:     "IP",
		IndexType:      "HNSW",
		M:              8,
		EfConstruction: 200,
	}
	if err := m.client.CreateIndex(ctx, version, indexParams); err != nil {
		return inserted, fmt.Errorf("create index on %s: %w", version, err)
	}

	if err := m.waitFor(ctx, "index build on "+version, func(ctx context.Context) (bool, error) {
		state, err := m.client.IndexState(ctx, version, "embedding")
		if err != nil {
			return false, err
		}
		return state == "Finished", nil
	}); err != nil {
		return inserted, err
	}

	if err := m.client.LoadCollection(ctx, version); err != nil {
		return inserted, fmt.Errorf("load %s: %w", version, err)
	}
	if err := m.waitFor(ctx, "load of "+version, func(ctx context.Context) (bool, error) {
		state, err := m.client.LoadState(ctx, version)
		if err != nil {
			return false, err
		}
		return state == "LoadStateLoaded", nil
	}); err != nil {
		return inserted, err
	}

	if err := m.swapAlias(ctx, serving, version); err != nil {
		return inserted, err
	}

	m.dropSuperseded(ctx, serving, version)

	slog.InfoContext(ctx, "collection rebuilt", "serving", serving, "version", version, "rows", inserted)
	return inserted, nil
}

// Search runs an inner-product top-limit query against one serving name.
// A name with no collection behind it fails with ErrCollectionUnavailable.
func (m *Manager) Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchHit, error) {
	has, err := m.client.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrCollectionUnavailable, collection)
	}

	raw, err := m.client.Search(ctx, collection, vector, limit, searchEf, []string{"text"})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, SearchHit{
			Collection: collection,
			ID:         h.ID,
			Distance:   h.Distance,
			Text:       h.Text,
		})
	}
	return hits, nil
}

func (m *Manager) swapAlias(ctx context.Context, serving, version string) error {
	// A collection created under the serving name by a pre-alias deployment
	// blocks alias creation; drop it first. This one-time migration is the
	// only remaining query-time gap.
	names, err := m.client.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == serving {
			if err := m.client.DropCollection(ctx, serving); err != nil {
				return fmt.Errorf("drop legacy collection %s: %w", serving, err)
			}
			break
		}
	}
	return m.client.EnsureAlias(ctx, serving, version)
}

func (m *Manager) dropSuperseded(ctx context.Context, serving, keep string) {
	names, err := m.client.ListCollections(ctx)
	if err != nil {
		slog.WarnContext(ctx, "listing collections for cleanup failed", "error", err)
		return
	}
	for _, name := range names {
		if name == keep || !strings.HasPrefix(name, serving+"_v") {
			continue
		}
		if err := m.client.DropCollection(ctx, name); err != nil {
			slog.WarnContext(ctx, "dropping superseded collection failed", "collection", name, "error", err)
		}
	}
}

func (m *Manager) waitFor(ctx context.Context, what string, done func(context.Context) (bool, error)) error {
	deadline := m.now().Add(m.buildWait)
	for {
		ok, err := done(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if m.now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrBuildTimeout, what)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.poll):
		}
	}
}

func schemaFor(kind SchemaKind) milvus.Schema {
	vector := milvus.Field{Name: "embedding", DataType: "FloatVector", Dim: clova.Dim}
	text := milvus.Field{Name: "text", DataType: "VarChar", MaxLength: textMaxLength}

	switch kind {
	case AutoIDWithSource:
		return milvus.Schema{
			AutoID: true,
			Fields: []milvus.Field{
				{Name: "id", DataType: "Int64", IsPrimary: true},
				{Name: "source", DataType: "VarChar", MaxLength: sourceMaxLength},
				text,
				vector,
			},
		}
	case StringID:
		return milvus.Schema{
			Fields: []milvus.Field{
				{Name: "id", DataType: "VarChar", IsPrimary: true, MaxLength: idMaxLength},
				text,
				vector,
			},
		}
	default:
		return milvus.Schema{
			AutoID: true,
			Fields: []milvus.Field{
				{Name: "id", DataType: "Int64", IsPrimary: true},
				text,
				vector,
			},
		}
	}
}

// toWireRows shapes rows for the schema kind, dropping any row whose vector
// does not match the collection dimensionality.
func toWireRows(kind SchemaKind, rows []Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if len(r.Embedding) != clova.Dim {
			slog.Warn("dropping row with wrong dimensionality", "got", len(r.Embedding))
			continue
		}
		row := map[string]any{"text": r.Text, "embedding": r.Embedding}
		switch kind {
		case AutoIDWithSource:
			row["source"] = r.Source
		case StringID:
			row["id"] = r.ID
		}
		out = append(out, row)
	}
	return out
}
