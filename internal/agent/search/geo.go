package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/decision-mate/server/internal/agent/model"
)

const (
	earthRadiusM     = 6371000.0
	walkMetersPerMin = 80.0
	// parkingBonusM is the distance credit per parking signal point.
	parkingBonusM = 120.0
	// unknownDistance sorts places without coordinates last.
	unknownDistance = 1e12
)

// Haversine returns the great-circle distance in meters between two
// longitude/latitude pairs.
func Haversine(x1, y1, x2, y2 float64) float64 {
	lon1, lat1 := x1*math.Pi/180, y1*math.Pi/180
	lon2, lat2 := x2*math.Pi/180, y2*math.Pi/180
	dlon, dlat := lon2-lon1, lat2-lat1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WalkMinutes converts meters to walking minutes at 80 m/min, at least 1.
func WalkMinutes(distanceM float64) int {
	m := int(math.Ceil(distanceM / walkMetersPerMin))
	if m < 1 {
		return 1
	}
	return m
}

func coords(x, y string) (float64, float64, bool) {
	if x == "" || y == "" {
		return 0, 0, false
	}
	fx, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return 0, 0, false
	}
	fy, err := strconv.ParseFloat(y, 64)
	if err != nil {
		return 0, 0, false
	}
	return fx, fy, true
}

// distance reports the place's distance from center, false when either has
// no usable coordinates.
func distance(p model.Place, center *model.Center) (float64, bool) {
	if center == nil {
		return 0, false
	}
	cx, cy, ok := coords(center.X, center.Y)
	if !ok {
		return 0, false
	}
	px, py, ok := coords(p.X, p.Y)
	if !ok {
		return 0, false
	}
	return Haversine(cx, cy, px, py), true
}

var (
	bigVenueWords = []string{"백화점", "몰", "아울렛", "호텔", "리조트", "웨딩", "컨벤션", "대형"}
	alleyWords    = []string{"포차", "호프", "이자카야", "바", "주점"}
)

// ParkingScore is a name/category heuristic: explicit parking words +3,
// large venues +1, alley bars -1.
func ParkingScore(p model.Place) int {
	text := strings.ToLower(p.Name + " " + p.Category)
	score := 0
	if strings.Contains(text, "주차") || strings.Contains(text, "parking") || strings.Contains(text, "발렛") {
		score += 3
	}
	if containsAny(text, bigVenueWords) {
		score++
	}
	if containsAny(text, alleyWords) {
		score--
	}
	return score
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
