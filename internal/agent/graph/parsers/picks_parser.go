package parsers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/decision-mate/server/internal/agent/model"
)

// PickCount is how many picks a result turn shows.
const PickCount = 3

const (
	PhaseFirst  = "1차"
	PhaseSecond = "2차"

	maxHashtags = 6
)

// ErrMalformedPicks means the ranking reply is not a {"picks": [...]} document.
var ErrMalformedPicks = errors.New("ranking output does not follow the picks schema")

// Canned texts for picks built without the ranker.
const (
	fallbackSceneFeel = "조건을 기준으로 근처 위주로 정리했어. 링크 눌러서 분위기만 빠르게 확인하면 딱이야."
	fallbackOneLine   = "근처에서 무난하게 가기 좋은 선택지!"
	fallbackReason    = "정리 과정이 꼬여서, 우선 가까운 곳부터 추렸어. 메뉴/분위기 확인하고 골라줘 😎"
)

var (
	fallbackHashtags = []string{"#근처", "#무난", "#바로가기", "#추천"}
	fallbackMatched  = []string{"근처 우선", "도보/거리 기준"}
)

type rawPick struct {
	ID                json.RawMessage `json:"id"`
	Phase             string          `json:"phase"`
	SceneFeel         string          `json:"scene_feel"`
	OneLine           string          `json:"one_line"`
	Hashtags          []string        `json:"hashtags"`
	MatchedConditions []string        `json:"matched_conditions"`
	Reason            string          `json:"reason"`
}

// ParsePicks decodes the ranker's reply. Picks must reference a candidate id;
// duplicates and unknown ids are skipped and at most three are kept. Phases
// survive only in split mode. ErrMalformedPicks is returned when the reply
// has no picks array at all.
func ParsePicks(content string, candidates []model.Place, split bool) ([]model.Pick, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	doc, ok := extractJSONObject(content)
	if !ok {
		return nil, ErrMalformedPicks
	}
	var envelope struct {
		Picks []json.RawMessage `json:"picks"`
	}
	if err := json.Unmarshal([]byte(doc), &envelope); err != nil || envelope.Picks == nil {
		return nil, ErrMalformedPicks
	}

	byID := make(map[string]model.Place, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	picks := make([]model.Pick, 0, PickCount)
	used := map[string]bool{}
	for _, raw := range envelope.Picks {
		var rp rawPick
		if err := json.Unmarshal(raw, &rp); err != nil {
			continue
		}
		id := rawID(rp.ID)
		place, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true

		pick := model.Pick{
			ID:                id,
			SceneFeel:         strings.TrimSpace(rp.SceneFeel),
			OneLine:           strings.TrimSpace(rp.OneLine),
			Hashtags:          normalizeHashtags(rp.Hashtags),
			MatchedConditions: cleanStrings(rp.MatchedConditions),
			Reason:            strings.TrimSpace(rp.Reason),
			Place:             place,
		}
		if split {
			if ph := strings.TrimSpace(rp.Phase); ph == PhaseFirst || ph == PhaseSecond {
				pick.Phase = ph
			}
		}
		picks = append(picks, pick)
		if len(picks) == PickCount {
			break
		}
	}
	return picks, nil
}

// FallbackPicks returns up to n canned picks from candidates in their
// original order, skipping ids in used.
func FallbackPicks(candidates []model.Place, n int, used map[string]bool) []model.Pick {
	out := make([]model.Pick, 0, n)
	for _, p := range candidates {
		if len(out) == n {
			break
		}
		if p.ID == "" || used[p.ID] {
			continue
		}
		out = append(out, model.Pick{
			ID:                p.ID,
			SceneFeel:         fallbackSceneFeel,
			OneLine:           fallbackOneLine,
			Hashtags:          append([]string(nil), fallbackHashtags...),
			MatchedConditions: append([]string(nil), fallbackMatched...),
			Reason:            fallbackReason,
			Fallback:          true,
			Place:             p,
		})
	}
	return out
}

// PadPicks tops picks up to three from the candidate order. In split mode
// missing phases are assigned so the set reads two 1차 and one 2차.
func PadPicks(picks []model.Pick, candidates []model.Place, split bool) []model.Pick {
	if len(picks) > PickCount {
		picks = picks[:PickCount]
	}
	out := append([]model.Pick(nil), picks...)
	if len(out) < PickCount {
		used := make(map[string]bool, len(out))
		for _, p := range out {
			used[p.ID] = true
		}
		out = append(out, FallbackPicks(candidates, PickCount-len(out), used)...)
	}
	if split {
		assignPhases(out)
	}
	return out
}

func assignPhases(picks []model.Pick) {
	first, second := 0, 0
	for _, p := range picks {
		switch p.Phase {
		case PhaseFirst:
			first++
		case PhaseSecond:
			second++
		}
	}
	for i := range picks {
		if picks[i].Phase != "" {
			continue
		}
		if first < 2 {
			picks[i].Phase = PhaseFirst
			first++
			continue
		}
		if second < 1 {
			picks[i].Phase = PhaseSecond
			second++
			continue
		}
		picks[i].Phase = PhaseFirst
	}
}

// ====================== Helper function ======================

// rawID accepts a JSON string or number id.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return s
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "")
		if t == "" || t == "#" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxHashtags {
			break
		}
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
