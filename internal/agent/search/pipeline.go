package search

import (
	"context"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/model"
	"github.com/decision-mate/server/pkg/kakao"
	logx "github.com/decision-mate/server/pkg/logger"
)

// maxQueryRounds bounds the relax loop: one round per relax level.
const maxQueryRounds = model.MaxSearchRelax + 1

// poolTarget stops radius stepping once this many places were found.
const poolTarget = 25

var (
	carRadiusSteps     = []int{1600, 2500, 4000}
	defaultRadiusSteps = []int{1200, 1800, 2500}
)

var ErrNoLocation = model.ErrNoLocation

// KeywordSearcher is the subset of the Kakao client the pipeline needs.
type KeywordSearcher interface {
	SearchPaged(ctx context.Context, q kakao.Query, maxPages int) ([]kakao.Document, error)
}

// Pipeline implements model.PlaceSearcher on top of Kakao keyword search.
type Pipeline struct {
	client  KeywordSearcher
	centers *CenterResolver
	cfg     model.SearchConfig
}

var _ model.PlaceSearcher = (*Pipeline)(nil)

func NewPipeline(client KeywordSearcher, cfg model.SearchConfig) (*Pipeline, error) {
	centers, err := NewCenterResolver(client, cfg.CenterCacheSize)
	if err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 15
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 25
	}
	return &Pipeline{client: client, centers: centers, cfg: cfg}, nil
}

// RadiusSteps returns the pooling radii for the transport.
func RadiusSteps(t model.Transport) []int {
	if t == model.TransportCar {
		return carRadiusSteps
	}
	return defaultRadiusSteps
}

// Search resolves the anchor, walks relax levels and query variants until a
// query returns places, then applies sorting and the pre-ranking filters.
// c.Meta.Common.SearchRelax and CenterName are updated in place.
func (p *Pipeline) Search(ctx context.Context, c *model.Condition, opts model.SearchOptions) (*model.SearchResult, error) {
	loc := c.LocationText()
	if loc == "" {
		return nil, ErrNoLocation
	}
	cm := &c.Meta.Common

	center := p.centers.Resolve(ctx, loc)
	cm.CenterName = ""
	if center != nil {
		cm.CenterName = center.Name
	}
	steps := RadiusSteps(cm.Transport)

	var (
		docs []kakao.Document
		used string
	)
	for round := 0; round < maxQueryRounds && len(docs) == 0; round++ {
		base := BuildQuery(*c)
		used = base
		for _, q := range QueryVariants(base, loc, cm.SearchRelax) {
			found, err := p.pooled(ctx, q, center, steps)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				docs, used = found, q
				break
			}
		}
		if len(docs) == 0 && !condition.RaiseSearchRelax(c) {
			break
		}
	}

	result := &model.SearchResult{Query: used, Kind: Kind(*c), Center: center, PoolSize: len(docs)}
	if len(docs) == 0 {
		return result, nil
	}

	places := toPlaces(docs)
	places = SortForTransport(places, center, c.WantsParking())
	places = ExcludeIDs(places, opts.ExcludeIDs)
	places = FocusRadius(places, center, steps)
	places = AttachDistance(places, center)
	if center != nil && cm.Transport != model.TransportCar {
		places = FocusWalk(places, cm.EffectiveWalkLimit())
	}
	places = FilterKind(places, result.Kind)
	places = FilterFranchise(places, c.Constraints.AvoidFranchise)
	if len(places) > p.cfg.CandidateLimit {
		places = places[:p.cfg.CandidateLimit]
	}
	result.Candidates = places

	logx.Debug().
		Str("component", "search").
		Str("query", used).
		Int("relax", cm.SearchRelax).
		Str("center", cm.CenterName).
		Str("kind", string(result.Kind)).
		Int("pool", result.PoolSize).
		Int("candidates", len(places)).
		Msg("search done")
	return result, nil
}

// pooled searches without a center by paging only; with a center it widens
// the radius until the pool is large enough, keeping the last step's result.
func (p *Pipeline) pooled(ctx context.Context, query string, center *model.Center, steps []int) ([]kakao.Document, error) {
	q := kakao.Query{Keyword: query, Size: p.cfg.PageSize}
	if center == nil {
		return p.client.SearchPaged(ctx, q, p.cfg.MaxPages)
	}
	q.X, q.Y = center.X, center.Y
	var docs []kakao.Document
	for _, r := range steps {
		q.Radius = r
		found, err := p.client.SearchPaged(ctx, q, p.cfg.MaxPages)
		if err != nil {
			return nil, err
		}
		docs = found
		if len(docs) >= poolTarget {
			break
		}
	}
	return docs, nil
}

func toPlaces(docs []kakao.Document) []model.Place {
	out := make([]model.Place, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.Place{
			ID:          d.ID,
			Name:        d.PlaceName,
			Category:    d.CategoryName,
			Address:     d.AddressName,
			RoadAddress: d.RoadAddressName,
			URL:         d.PlaceURL,
			Phone:       d.Phone,
			X:           d.X,
			Y:           d.Y,
		})
	}
	return out
}
