// Package recommend serves recommendation requests: embed the keyword, fan
// the vector search out over the domain collections, assemble a prompt per
// mode and return the completion together with the raw reference hits.
package recommend

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hereforus/apps/recommender/internal/adapter/clova"
	"hereforus/apps/recommender/internal/index"
	"hereforus/apps/recommender/internal/middleware"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]index.SearchHit, error)
}

type Completer interface {
	Complete(ctx context.Context, messages []clova.Message, params clova.SamplingParams) (string, error)
}

// Options carries the ordered collection sets and the per-collection hit
// limit. FestFoodCollections is the restricted set of the festfood mode.
type Options struct {
	Collections         []string
	FestFoodCollections []string
	SearchLimit         int
}

// Result is one answered recommendation request.
type Result struct {
	Response  string            `json:"response"`
	Reference []index.SearchHit `json:"reference"`
}

type Service struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	logger    *QueryLogger
	opts      Options
}

func NewService(e Embedder, s Searcher, c Completer, l *QueryLogger, opts Options) *Service {
	return &Service{embedder: e, searcher: s, completer: c, logger: l, opts: opts}
}

// JoinKeywords flattens a keyword array into the single search string.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// Retrieve embeds the keyword once and searches each collection in order.
// A missing collection is skipped; its absence degrades the reference set,
// not the request.
func (s *Service) Retrieve(ctx context.Context, collections []string, keyword string) ([]index.SearchHit, error) {
	vector, err := s.embedder.Embed(ctx, keyword)
	if err != nil {
		return nil, err
	}

	var reference []index.SearchHit
	for _, collection := range collections {
		hits, err := s.searcher.Search(ctx, collection, vector, s.opts.SearchLimit)
		if err != nil {
			if errors.Is(err, index.ErrCollectionUnavailable) {
				slog.DebugContext(ctx, "collection missing, skipped", "collection", collection)
				continue
			}
			return nil, err
		}
		reference = append(reference, hits...)
	}
	return reference, nil
}

// Recommend runs the full query path for one mode.
func (s *Service) Recommend(ctx context.Context, mode Mode, keyword string) (*Result, error) {
	start := time.Now()
	collections := s.collectionsFor(mode)

	reference, err := s.Retrieve(ctx, collections, keyword)
	if err != nil {
		return nil, err
	}

	messages, err := BuildPrompt(mode, reference, keyword)
	if err != nil {
		return nil, err
	}

	response, err := s.completer.Complete(ctx, messages, clova.DefaultSampling())
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Mode:          string(mode),
			Keyword:       keyword,
			Collections:   collections,
			NumHits:       len(reference),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}

	return &Result{Response: response, Reference: reference}, nil
}

func (s *Service) collectionsFor(mode Mode) []string {
	if mode == ModeFestFood {
		return s.opts.FestFoodCollections
	}
	return s.opts.Collections
}
