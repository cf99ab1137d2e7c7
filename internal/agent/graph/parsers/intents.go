package parsers

import (
	"strings"
	"unicode"

	"github.com/decision-mate/server/internal/agent/model"
)

var (
	fastKeywords = []string{"그냥 추천", "걍 추천", "빨리 추천", "스킵", "아무거나", "됐고 추천", "바로 추천", "추천해줘"}

	// a widen verb is required: "근처로" alone is an ordinary location answer
	expandKeywords = []string{"넓혀", "넓게", "범위", "더 멀리"}

	noAlcoholKeywords = []string{"술 안", "술안", "안 마셔", "안마셔", "금주", "노알콜", "노 알콜"}

	diversifyKeywords = []string{"다른 데", "다른데", "다른 곳", "다른곳", "딴 데", "딴데", "완전 다른", "다른 스타일", "새로운 데"}

	// exclude-last needs a reference to the previous picks plus a removal verb
	lastRefKeywords = []string{"방금", "아까", "이전", "전에 추천"}
	removeKeywords  = []string{"빼", "제외", "말고"}

	// words left over once a skip phrase is cut out of an utterance
	fastFiller = map[string]bool{
		"해": true, "해줘": true, "해줘요": true, "해주세요": true, "줘": true, "줘요": true,
		"주세요": true, "할게": true, "할래": true, "하고": true, "요": true, "좀": true,
		"그냥": true, "걍": true, "빨리": true, "바로": true, "제발": true, "일단": true,
		"괜찮아": true, "괜찮아요": true, "좋아": true, "다": true, "돼": true, "돼요": true,
	}
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// DetectFastIntent reports skip phrases such as "그냥 추천해".
func DetectFastIntent(text string) bool {
	return containsAny(strings.TrimSpace(text), fastKeywords)
}

// StripFastKeywords removes skip phrases and their filler so whatever is left
// can still answer a pending question. It returns "" when nothing is left.
func StripFastKeywords(text string) string {
	t := text
	for _, kw := range fastKeywords {
		t = strings.ReplaceAll(t, kw, " ")
	}
	var kept []string
	for _, tok := range strings.Fields(t) {
		bare := strings.TrimFunc(tok, isFillerPunct)
		if bare == "" || fastFiller[bare] || isLaughter(bare) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.TrimFunc(strings.Join(kept, " "), isFillerPunct)
}

func isFillerPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || r == '~'
}

// isLaughter matches ㅋㅋ / ㅎㅎ runs.
func isLaughter(s string) bool {
	for _, r := range s {
		if r != 'ㅋ' && r != 'ㅎ' {
			return false
		}
	}
	return s != ""
}

// DetectExpandIntent reports requests to widen the search area.
func DetectExpandIntent(text string) bool {
	return containsAny(strings.TrimSpace(text), expandKeywords)
}

func DetectNoAlcoholIntent(text string) bool {
	return containsAny(strings.TrimSpace(text), noAlcoholKeywords)
}

func DetectDiversifyIntent(text string) bool {
	return containsAny(strings.TrimSpace(text), diversifyKeywords)
}

// DetectExcludeLastIntent matches "방금 추천한 데 빼줘" style requests.
func DetectExcludeLastIntent(text string) bool {
	t := strings.TrimSpace(text)
	return containsAny(t, lastRefKeywords) && containsAny(t, removeKeywords)
}

// DetectIntents runs every scanner over one utterance.
func DetectIntents(text string) model.TurnIntents {
	return model.TurnIntents{
		Fast:        DetectFastIntent(text),
		Expand:      DetectExpandIntent(text),
		ExcludeLast: DetectExcludeLastIntent(text),
		Diversify:   DetectDiversifyIntent(text),
		NoAlcohol:   DetectNoAlcoholIntent(text),
	}
}
