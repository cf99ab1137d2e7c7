package search

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/decision-mate/server/internal/agent/model"
	"github.com/decision-mate/server/pkg/kakao"
	logx "github.com/decision-mate/server/pkg/logger"
)

// CenterResolver finds the anchor coordinate for a location. Hits are
// cached by location; misses are not.
type CenterResolver struct {
	client KeywordSearcher
	cache  *lru.Cache[string, model.Center]
}

func NewCenterResolver(client KeywordSearcher, cacheSize int) (*CenterResolver, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, model.Center](cacheSize)
	if err != nil {
		return nil, err
	}
	return &CenterResolver{client: client, cache: cache}, nil
}

// Resolve tries "<loc>역" before the bare location unless it already names
// a station, and uses the first hit's coordinates. A failed lookup is
// logged and treated as "no center".
func (r *CenterResolver) Resolve(ctx context.Context, location string) *model.Center {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return nil
	}
	if c, ok := r.cache.Get(loc); ok {
		return &c
	}

	candidates := []string{loc}
	if !strings.Contains(loc, "역") {
		candidates = []string{loc + "역", loc}
	}
	for _, cand := range candidates {
		docs, err := r.client.SearchPaged(ctx, kakao.Query{Keyword: cand, Size: 15}, 1)
		if err != nil {
			logx.Warn().Err(err).Str("component", "search").Str("candidate", cand).Msg("center lookup failed")
			continue
		}
		if len(docs) == 0 || docs[0].X == "" || docs[0].Y == "" {
			continue
		}
		c := model.Center{Name: cand, X: docs[0].X, Y: docs[0].Y}
		r.cache.Add(loc, c)
		return &c
	}
	return nil
}
