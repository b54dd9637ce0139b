// Package ingest runs the per-domain fetch → encode → embed → rebuild
// pipeline. One generic pipeline serves all domains; the differences live in
// a descriptor per domain.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hereforus/apps/recommender/internal/encode"
	"hereforus/apps/recommender/internal/index"
)

type Domain string

const (
	Festival    Domain = "festival"
	Food        Domain = "food"
	Performance Domain = "performance"
	Movie       Domain = "movie"
)

// Serving collection names, one per domain.
const (
	FestivalCollection    = "festival_hereforus"
	FoodCollection        = "food_hereforus"
	PerformanceCollection = "performance_hereforus"
	MovieCollection       = "movie_hereforus"
)

type HTTPFetcher interface {
	FetchList(ctx context.Context, domain, url string) ([]map[string]any, error)
	FetchPage(ctx context.Context, domain, url string, page, size int) ([]map[string]any, error)
}

type FoodSource interface {
	FetchPage(ctx context.Context, limit, offset int) ([]encode.FoodRecord, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Indexer interface {
	Rebuild(ctx context.Context, serving string, kind index.SchemaKind, rows []index.Row) (int, error)
}

// Options carries the per-deployment fetch endpoints and paging bounds.
// FoodURL selects the paginated HTTP food source; when empty the relational
// source is used instead.
type Options struct {
	FestivalURL    string
	PerformanceURL string
	MovieURL       string
	FoodURL        string
	FoodPageSize   int
	FoodTotalLimit int
}

// Report summarizes one ingestion run.
type Report struct {
	Domain     Domain `json:"domain"`
	Collection string `json:"collection"`
	Fetched    int    `json:"fetched"`
	Embedded   int    `json:"embedded"`
	Skipped    int    `json:"skipped"`
	Inserted   int    `json:"inserted"`
}

type descriptor struct {
	collection string
	schema     index.SchemaKind
	fetch      func(ctx context.Context) ([]encode.Chunk, error)
}

type Service struct {
	embedder    Embedder
	indexer     Indexer
	descriptors map[Domain]descriptor
}

func NewService(http HTTPFetcher, food FoodSource, embedder Embedder, indexer Indexer, opts Options) *Service {
	s := &Service{embedder: embedder, indexer: indexer}
	s.descriptors = map[Domain]descriptor{
		Festival: {
			collection: FestivalCollection,
			schema:     index.AutoIDWithSource,
			fetch: func(ctx context.Context) ([]encode.Chunk, error) {
				records, err := http.FetchList(ctx, string(Festival), opts.FestivalURL)
				if err != nil {
					return nil, err
				}
				chunks := make([]encode.Chunk, 0, len(records))
				for _, rec := range records {
					chunks = append(chunks, encode.Festival(rec))
				}
				return chunks, nil
			},
		},
		Movie: {
			collection: MovieCollection,
			schema:     index.AutoIDWithSource,
			fetch: func(ctx context.Context) ([]encode.Chunk, error) {
				records, err := http.FetchList(ctx, string(Movie), opts.MovieURL)
				if err != nil {
					return nil, err
				}
				chunks := make([]encode.Chunk, 0, len(records))
				for _, rec := range records {
					chunks = append(chunks, encode.Movie(rec))
				}
				return chunks, nil
			},
		},
		Performance: {
			collection: PerformanceCollection,
			schema:     index.StringID,
			fetch: func(ctx context.Context) ([]encode.Chunk, error) {
				// Upstream serves the day's schedule.
				url := fmt.Sprintf("%s?date=%s", opts.PerformanceURL, time.Now().Format("2006-01-02"))
				records, err := http.FetchList(ctx, string(Performance), url)
				if err != nil {
					return nil, err
				}
				chunks := make([]encode.Chunk, 0, len(records))
				for _, rec := range records {
					chunk := encode.Performance(rec)
					if chunk.ID == "" {
						// The collection keys on the upstream id.
						slog.WarnContext(ctx, "performance record without id skipped")
						continue
					}
					chunks = append(chunks, chunk)
				}
				return chunks, nil
			},
		},
		Food: {
			collection: FoodCollection,
			schema:     index.AutoID,
			fetch: func(ctx context.Context) ([]encode.Chunk, error) {
				if opts.FoodURL != "" {
					return fetchFoodHTTPPages(ctx, http, opts.FoodURL, opts.FoodPageSize, opts.FoodTotalLimit)
				}
				return fetchFoodPages(ctx, food, opts.FoodPageSize, opts.FoodTotalLimit)
			},
		},
	}
	return s
}

// Run rebuilds one domain's collection from a fresh upstream snapshot.
// A failed embedding drops that chunk only; a failed fetch aborts the run.
func (s *Service) Run(ctx context.Context, domain Domain) (*Report, error) {
	desc, ok := s.descriptors[domain]
	if !ok {
		return nil, fmt.Errorf("unknown ingestion domain %q", domain)
	}

	chunks, err := desc.fetch(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Domain: domain, Collection: desc.collection, Fetched: len(chunks)}

	rows := make([]index.Row, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			report.Skipped++
			slog.WarnContext(ctx, "embedding failed, chunk skipped", "domain", domain, "error", err)
			continue
		}
		rows = append(rows, index.Row{
			ID:        chunk.ID,
			Text:      chunk.Text,
			Source:    chunk.Source,
			Embedding: vector,
		})
	}
	report.Embedded = len(rows)

	inserted, err := s.indexer.Rebuild(ctx, desc.collection, desc.schema, rows)
	report.Inserted = inserted
	if err != nil {
		return report, err
	}

	slog.InfoContext(ctx, "ingestion finished", "domain", domain,
		"fetched", report.Fetched, "embedded", report.Embedded,
		"skipped", report.Skipped, "inserted", report.Inserted)
	return report, nil
}

// fetchFoodPages walks the food table page by page. A page shorter than the
// requested size is the last one.
func fetchFoodPages(ctx context.Context, source FoodSource, pageSize, totalLimit int) ([]encode.Chunk, error) {
	var chunks []encode.Chunk
	for offset := 0; offset < totalLimit; offset += pageSize {
		size := pageSize
		if remaining := totalLimit - offset; remaining < size {
			size = remaining
		}

		records, err := source.FetchPage(ctx, size, offset)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			chunks = append(chunks, encode.Food(rec))
		}
		if len(records) < size {
			break
		}
	}
	return chunks, nil
}

// fetchFoodHTTPPages walks a paginated page-object endpoint with the same
// termination rule as the relational source.
func fetchFoodHTTPPages(ctx context.Context, http HTTPFetcher, url string, pageSize, totalLimit int) ([]encode.Chunk, error) {
	var chunks []encode.Chunk
	for page := 0; len(chunks) < totalLimit; page++ {
		size := pageSize
		if remaining := totalLimit - len(chunks); remaining < size {
			size = remaining
		}

		records, err := http.FetchPage(ctx, string(Food), url, page, size)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			chunks = append(chunks, encode.Food(foodRecord(rec)))
		}
		if len(records) < size {
			break
		}
	}
	return chunks, nil
}

// foodRecord maps one page-object record onto the relational row shape.
func foodRecord(rec map[string]any) encode.FoodRecord {
	return encode.FoodRecord{
		ID:            int64(floatField(rec, "id")),
		Title:         stringField(rec, "title"),
		PhoneNumber:   stringField(rec, "phoneNumber"),
		GuName:        stringField(rec, "guName"),
		Address:       stringField(rec, "address"),
		GpsX:          floatField(rec, "gpsX"),
		GpsY:          floatField(rec, "gpsY"),
		MajorCategory: stringField(rec, "majorCategory"),
		SubCategory:   stringField(rec, "subCategory"),
	}
}

func stringField(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func floatField(rec map[string]any, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
