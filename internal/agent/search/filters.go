package search

import (
	"sort"
	"strings"

	"github.com/decision-mate/server/internal/agent/model"
)

// Minimum pool sizes a focusing filter must leave, otherwise the input is
// returned unchanged.
const (
	minFocusPool = 12
	minKindPool  = 10
)

var (
	cafeWords  = []string{"카페", "디저트", "베이커리", "아이스크림"}
	drinkWords = []string{"술", "주점", "호프", "이자카야", "바", "포차", "펍"}

	franchiseNames = []string{
		"쉐이크쉑", "스타벅스", "투썸", "이디야", "빽다방", "메가커피", "컴포즈",
		"파리바게뜨", "뚜레쥬르", "버거킹", "맥도날드", "롯데리아", "kfc", "서브웨이",
	}
)

// SortForTransport orders places by distance from center. With parking
// preference each parking point is worth 120 m. Places without coordinates
// go last. The sort is stable.
func SortForTransport(places []model.Place, center *model.Center, parking bool) []model.Place {
	if center == nil {
		return places
	}
	type scored struct {
		score, dist float64
		place       model.Place
	}
	items := make([]scored, 0, len(places))
	for _, p := range places {
		d, ok := distance(p, center)
		if !ok {
			d = unknownDistance
		}
		s := d
		if parking {
			s -= float64(ParkingScore(p)) * parkingBonusM
		}
		items = append(items, scored{score: s, dist: d, place: p})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score < items[j].score
		}
		return items[i].dist < items[j].dist
	})
	out := make([]model.Place, len(items))
	for i, it := range items {
		out[i] = it.place
	}
	return out
}

// ExcludeIDs drops places whose id is in ids.
func ExcludeIDs(places []model.Place, ids []string) []model.Place {
	if len(ids) == 0 {
		return places
	}
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		if !skip[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// WithinRadius keeps places with coordinates inside radiusM of center.
func WithinRadius(places []model.Place, center *model.Center, radiusM int) []model.Place {
	if center == nil {
		return places
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		if d, ok := distance(p, center); ok && d <= float64(radiusM) {
			out = append(out, p)
		}
	}
	return out
}

// FocusRadius returns the tightest radius step that still keeps at least
// twelve places, or the input when none does.
func FocusRadius(places []model.Place, center *model.Center, steps []int) []model.Place {
	if center == nil {
		return places
	}
	for _, r := range steps {
		if within := WithinRadius(places, center, r); len(within) >= minFocusPool {
			return within
		}
	}
	return places
}

// AttachDistance fills DistanceM and WalkMin for places with coordinates.
func AttachDistance(places []model.Place, center *model.Center) []model.Place {
	for i := range places {
		d, ok := distance(places[i], center)
		if !ok {
			places[i].DistanceM, places[i].WalkMin = 0, 0
			continue
		}
		places[i].DistanceM = d
		places[i].WalkMin = WalkMinutes(d)
	}
	return places
}

// FocusWalk keeps places within the walk limit when at least twelve remain.
// Places with unknown walk time are dropped from the focused set.
func FocusWalk(places []model.Place, limitMin int) []model.Place {
	if limitMin <= 0 {
		return places
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		if p.WalkMin > 0 && p.WalkMin <= limitMin {
			out = append(out, p)
		}
	}
	if len(out) < minFocusPool {
		return places
	}
	return out
}

// FilterKind applies the coarse kind filter: meals drop cafe-like
// categories, cafe and drink keep only matching categories. It falls back to
// the input when fewer than ten places would remain.
func FilterKind(places []model.Place, kind model.PlaceKind) []model.Place {
	var keep func(category string) bool
	switch kind {
	case model.KindMeal:
		keep = func(c string) bool { return !containsAny(c, cafeWords) }
	case model.KindCafe:
		keep = func(c string) bool { return containsAny(c, cafeWords) }
	case model.KindDrink:
		keep = func(c string) bool { return containsAny(c, drinkWords) }
	default:
		return places
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		if keep(p.Category) {
			out = append(out, p)
		}
	}
	if len(out) < minKindPool {
		return places
	}
	return out
}

// FilterFranchise drops well-known chains by name when enabled, keeping the
// input when fewer than ten places would remain.
func FilterFranchise(places []model.Place, enabled bool) []model.Place {
	if !enabled {
		return places
	}
	out := make([]model.Place, 0, len(places))
	for _, p := range places {
		if !containsAny(strings.ToLower(p.Name), franchiseNames) {
			out = append(out, p)
		}
	}
	if len(out) < minKindPool {
		return places
	}
	return out
}
