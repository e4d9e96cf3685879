// Package search implements location lookup for the search prompt.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/weather"
)

// MinQueryLength is the shortest trimmed query that is sent to the provider.
const MinQueryLength = 2

// ErrSearch marks a failed lookup. It never affects weather fetching.
var ErrSearch = errors.New("failed to fetch locations")

// Service resolves free-text queries into places.
type Service struct {
	searcher weather.PlaceSearcher
}

func NewService(searcher weather.PlaceSearcher) *Service {
	return &Service{searcher: searcher}
}

// Search returns up to five places matching query. Queries shorter than
// MinQueryLength return an empty result without a provider call. On failure
// the result is empty and the error wraps ErrSearch.
func (s *Service) Search(ctx context.Context, query, credential string) ([]weather.Place, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []weather.Place{}, nil
	}
	if s.searcher == nil {
		return []weather.Place{}, fmt.Errorf("%w: no place search available", ErrSearch)
	}

	places, err := s.searcher.SearchPlaces(ctx, query, credential)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("location search failed")
		return []weather.Place{}, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	if places == nil {
		places = []weather.Place{}
	}
	return places, nil
}
