// Package search turns a condition into a ranked-ready candidate pool:
// keyword query building with relaxation, anchor resolution, radius pooling
// and the rule-based pre-ranking filters.
package search

import (
	"strings"

	"github.com/decision-mate/server/internal/agent/model"
)

var modeTokens = map[model.ContextMode]string{
	model.ModeCompanyDinner: "회식",
	model.ModeFamily:        "가족식사",
	model.ModeDating:        "데이트",
	model.ModeGroup:         "단체",
}

var foodClassTokens = map[model.FoodClass]string{
	model.FoodKorean:   "한식",
	model.FoodChinese:  "중식",
	model.FoodJapanese: "일식",
	model.FoodWestern:  "양식",
}

// PlaceToken is the venue word appended to the query.
func PlaceToken(c model.Condition) string {
	cm := c.Meta.Common
	if cm.Drinking() {
		switch cm.AlcoholType {
		case model.DrinkWine:
			return "와인바"
		case model.DrinkBeer:
			return "펍"
		default:
			return "술집"
		}
	}
	switch cm.StayDuration {
	case model.StayLong:
		return "카페"
	case model.StayQuick:
		return "식사"
	}
	return "맛집"
}

// BuildQuery renders the keyword query for the current relax level.
// Level 0 adds mode and budget hints, 1 keeps only the venue word, 2
// generalises 와인바/펍 to 술집 and 3 falls back to 술집 or 맛집.
func BuildQuery(c model.Condition) string {
	tokens := []string{c.LocationText()}
	if ft := c.FoodTypeText(); ft != "" {
		tokens = append(tokens, ft)
	} else if t, ok := foodClassTokens[c.Meta.FoodClass]; ok {
		tokens = append(tokens, t)
	}

	place := PlaceToken(c)
	switch relax := c.Meta.Common.SearchRelax; {
	case relax <= 0:
		tokens = append(tokens, place, modeTokens[c.Meta.ContextMode])
		if c.Meta.BudgetTier == model.BudgetValue {
			tokens = append(tokens, "가성비")
		}
	case relax == 1:
		tokens = append(tokens, place)
	case relax == 2:
		if place == "와인바" || place == "펍" {
			place = "술집"
		}
		tokens = append(tokens, place)
	default:
		if c.Meta.Common.Drinking() {
			tokens = append(tokens, "술집")
		} else {
			tokens = append(tokens, "맛집")
		}
	}
	return joinTokens(tokens)
}

// QueryVariants returns "<loc> 근처 ..." and "<loc> 주변 ..." ahead of the
// base query once relaxation has started. Duplicates are removed.
func QueryVariants(base, location string, relax int) []string {
	var qs []string
	if relax >= 1 && location != "" {
		rest := strings.TrimSpace(strings.Replace(base, location, "", 1))
		qs = append(qs, location+" 근처 "+rest, location+" 주변 "+rest)
	}
	qs = append(qs, base)

	out := make([]string, 0, len(qs))
	seen := map[string]bool{}
	for _, q := range qs {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

// Kind picks the pre-ranking filter. An explicit place type wins; otherwise
// drinking means drink, a long stay means cafe and the rest is a meal.
func Kind(c model.Condition) model.PlaceKind {
	switch c.Meta.PlaceType {
	case model.PlaceMeal:
		return model.KindMeal
	case model.PlaceDrink:
		return model.KindDrink
	case model.PlaceCafe:
		return model.KindCafe
	}
	if c.Meta.Common.Drinking() {
		return model.KindDrink
	}
	if c.Meta.Common.StayDuration == model.StayLong {
		return model.KindCafe
	}
	return model.KindMeal
}

func joinTokens(tokens []string) string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}
