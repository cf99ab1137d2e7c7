package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/model"
	"github.com/decision-mate/server/pkg/kakao"
)

// fakeKakao answers by keyword; unknown keywords return nothing.
type fakeKakao struct {
	mu      sync.Mutex
	results map[string][]kakao.Document
	errs    map[string]error
	calls   []kakao.Query
}

func (f *fakeKakao) SearchPaged(_ context.Context, q kakao.Query, _ int) ([]kakao.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if err := f.errs[q.Keyword]; err != nil {
		return nil, err
	}
	return f.results[q.Keyword], nil
}

func (f *fakeKakao) keywords() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Keyword)
	}
	return out
}

func docs(prefix string, n int, category string) []kakao.Document {
	out := make([]kakao.Document, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, kakao.Document{
			ID:           fmt.Sprintf("%s%d", prefix, i),
			PlaceName:    fmt.Sprintf("%s 식당 %d", prefix, i),
			CategoryName: category,
			X:            "126.9240",
			Y:            fmt.Sprintf("%.6f", 37.5570+float64(i+1)*0.0003),
		})
	}
	return out
}

func newPipeline(t *testing.T, f *fakeKakao) *Pipeline {
	t.Helper()
	p, err := NewPipeline(f, model.SearchConfig{PageSize: 15, MaxPages: 3, CandidateLimit: 25, CenterCacheSize: 8})
	require.NoError(t, err)
	return p
}

var stationDoc = []kakao.Document{{ID: "st", PlaceName: "홍대입구역", X: "126.9240", Y: "37.5570"}}

func TestSearchUsesStationCenterAndFirstQuery(t *testing.T) {
	f := &fakeKakao{results: map[string][]kakao.Document{
		"홍대역":   stationDoc,
		"홍대 맛집": docs("a", 30, "음식점 > 한식"),
	}}
	p := newPipeline(t, f)
	c := baseCondition("홍대")

	res, err := p.Search(context.Background(), &c, model.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "홍대 맛집", res.Query)
	assert.Equal(t, "홍대역", c.Meta.Common.CenterName)
	require.NotNil(t, res.Center)
	assert.Equal(t, 0, c.Meta.Common.SearchRelax)
	assert.Equal(t, 30, res.PoolSize)
	assert.Len(t, res.Candidates, 25)
	assert.Equal(t, "a0", res.Candidates[0].ID)
	assert.Positive(t, res.Candidates[0].WalkMin)

	// pool of 30 reaches the target on the first radius step
	last := f.calls[len(f.calls)-1]
	assert.Equal(t, 1200, last.Radius)
	assert.Equal(t, "126.9240", last.X)
}

func TestSearchRelaxesUntilFound(t *testing.T) {
	f := &fakeKakao{results: map[string][]kakao.Document{
		"홍대 근처 술집": docs("b", 12, "음식점 > 술집"),
	}}
	p := newPipeline(t, f)
	c := baseCondition("홍대")
	condition.SetAlcoholLevel(&c, model.AlcoholHeavy)
	condition.SetAlcoholPlan(&c, model.PlanSingleVenue)
	condition.SetAlcoholType(&c, model.DrinkWine)

	res, err := p.Search(context.Background(), &c, model.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, c.Meta.Common.SearchRelax)
	assert.Equal(t, "홍대 근처 술집", res.Query)
	assert.Equal(t, model.KindDrink, res.Kind)
	assert.Len(t, res.Candidates, 12)
	assert.Empty(t, c.Meta.Common.CenterName, "no center document")
	assert.Contains(t, f.keywords(), "홍대 와인바")
	assert.Contains(t, f.keywords(), "홍대 근처 와인바")
}

func TestSearchNoResultsIsNotAnError(t *testing.T) {
	f := &fakeKakao{}
	p := newPipeline(t, f)
	c := baseCondition("어딘가")

	res, err := p.Search(context.Background(), &c, model.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, model.MaxSearchRelax, c.Meta.Common.SearchRelax)
	assert.NotEmpty(t, res.Query)
}

func TestSearchExcludesLastPicks(t *testing.T) {
	f := &fakeKakao{results: map[string][]kakao.Document{
		"홍대역":   stationDoc,
		"홍대 맛집": docs("a", 14, "음식점 > 한식"),
	}}
	p := newPipeline(t, f)
	c := baseCondition("홍대")

	res, err := p.Search(context.Background(), &c, model.SearchOptions{ExcludeIDs: []string{"a0", "a1", "a2"}})
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Candidates), "a0")
	assert.Equal(t, "a3", res.Candidates[0].ID)
}

func TestSearchPropagatesTransportErrors(t *testing.T) {
	boom := errors.New("kakao down")
	f := &fakeKakao{errs: map[string]error{"홍대 맛집": boom}}
	p := newPipeline(t, f)
	c := baseCondition("홍대")

	_, err := p.Search(context.Background(), &c, model.SearchOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestSearchRequiresLocation(t *testing.T) {
	p := newPipeline(t, &fakeKakao{})
	c := condition.New()
	_, err := p.Search(context.Background(), &c, model.SearchOptions{})
	assert.ErrorIs(t, err, ErrNoLocation)
}

func TestCenterResolverCachesHits(t *testing.T) {
	f := &fakeKakao{results: map[string][]kakao.Document{"강남역": stationDoc}}
	r, err := NewCenterResolver(f, 4)
	require.NoError(t, err)

	first := r.Resolve(context.Background(), "강남역")
	require.NotNil(t, first)
	second := r.Resolve(context.Background(), "강남역")
	assert.Equal(t, first, second)
	assert.Len(t, f.calls, 1, "station names are looked up as-is and cached")

	assert.Nil(t, r.Resolve(context.Background(), "없는동네"))
	assert.Equal(t, []string{"강남역", "없는동네역", "없는동네"}, f.keywords())
}
