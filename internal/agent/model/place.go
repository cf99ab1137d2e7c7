package model

import (
	"context"
	"errors"
)

// Place is one search collaborator result, enriched with distance data.
type Place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Address     string `json:"address"`
	RoadAddress string `json:"road_address,omitempty"`
	URL         string `json:"url"`
	Phone       string `json:"phone,omitempty"`
	X           string `json:"x,omitempty"` // longitude
	Y           string `json:"y,omitempty"` // latitude

	DistanceM float64 `json:"distance_m,omitempty"`
	WalkMin   int     `json:"walk_min,omitempty"` // 0 when unknown
}

// DisplayAddress prefers the road address.
func (p Place) DisplayAddress() string {
	if p.RoadAddress != "" {
		return p.RoadAddress
	}
	return p.Address
}

// Center is the resolved anchor coordinate for a location.
type Center struct {
	Name string `json:"name"`
	X    string `json:"x"`
	Y    string `json:"y"`
}

// Pick is one presented recommendation.
type Pick struct {
	ID                string   `json:"id"`
	Phase             string   `json:"phase,omitempty"`
	SceneFeel         string   `json:"scene_feel"`
	OneLine           string   `json:"one_line"`
	Hashtags          []string `json:"hashtags"`
	MatchedConditions []string `json:"matched_conditions"`
	Reason            string   `json:"reason"`
	Fallback          bool     `json:"fallback,omitempty"`

	Place Place `json:"place"`
}

// PlaceKind is the coarse kind used by the pre-ranking filter.
type PlaceKind string

const (
	KindMeal  PlaceKind = "meal"
	KindDrink PlaceKind = "drink"
	KindCafe  PlaceKind = "cafe"
)

// SearchOptions carries per-turn search inputs that are not part of the
// condition.
type SearchOptions struct {
	ExcludeIDs []string
}

// ErrNoLocation is returned by a PlaceSearcher for a condition without a
// location. The driver answers it by asking for the location again.
var ErrNoLocation = errors.New("search: condition has no location")

// PlaceSearcher runs the place search phase. It may raise the condition's
// search_relax and sets center_name; transport failures are returned as
// errors, an empty pool is not an error.
type PlaceSearcher interface {
	Search(ctx context.Context, c *Condition, opts SearchOptions) (*SearchResult, error)
}
