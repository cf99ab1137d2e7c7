// Package parsers turns free text into typed condition values. Answer
// parsers are conservative: anything they do not recognise is "no match" and
// the pending question is asked again.
package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/graph/questions"
	"github.com/decision-mate/server/internal/agent/model"
)

// rule maps any keyword (substring) to a value. Tables are ordered; the
// first matching rule wins.
type rule[T any] struct {
	keywords []string
	value    T
}

func matchRules[T any](text string, rules []rule[T]) (T, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.value, true
			}
		}
	}
	var zero T
	return zero, false
}

// ================ Keyword tables ================

var alcoholLevelRules = []rule[model.AlcoholLevel]{
	{[]string{"없"}, model.AlcoholNone},
	{[]string{"가볍", "한두"}, model.AlcoholLight},
	{[]string{"술", "제대로", "중심"}, model.AlcoholHeavy},
}

// Transit is checked before car so "차 없어" and "전철" are not read as driving.
var transportRules = []rule[model.Transport]{
	{[]string{"대중", "지하철", "버스", "전철", "뚜벅", "차 없", "차없"}, model.TransportTransit},
	{[]string{"차", "운전", "자차"}, model.TransportCar},
	{[]string{"상관", "아무"}, model.TransportNoPreference},
}

var alcoholTypeRules = []rule[model.AlcoholType]{
	{[]string{"소주"}, model.DrinkSoju},
	{[]string{"맥주", "비어"}, model.DrinkBeer},
	{[]string{"와인"}, model.DrinkWine},
	{[]string{"상관", "아무"}, model.DrinkNoPreference},
}

// Balanced first so "대화랑 음식 반반" is not read as conversation.
var focusRules = []rule[model.FocusPriority]{
	{[]string{"반반", "둘 다", "둘다", "균형", "비슷"}, model.FocusBalanced},
	{[]string{"대화", "수다", "얘기"}, model.FocusConversation},
	{[]string{"음식", "먹", "맛"}, model.FocusFood},
}

var sensitivityRules = []rule[int]{
	{[]string{"아무데나", "상관없"}, 1},
	{[]string{"보통"}, 2},
	{[]string{"좀 까다", "조금 까다", "신경"}, 3},
	{[]string{"까다", "예민"}, 4},
}

// Trailing phrases and particles stripped from list tokens, longest first.
var listSuffixes = []string{"못 먹어", "못먹어", "싫어", "빼줘", "빼고", "만", "은", "는", "을", "를", "이", "가"}

// Particles that only strip when the stem keeps at least two runes ("오이" stays).
var shortParticles = map[string]bool{"이": true, "가": true, "만": true}

var (
	listSplit     = regexp.MustCompile(`[,\n/]+`)
	numberPattern = regexp.MustCompile(`(\d+)\s*(시간|분)?`)
	locationCut   = regexp.MustCompile(`\s*(근처|주변|쪽|에서)(\s|$)`)
)

var locationSuffixes = []string{"근처", "주변", "쪽", "에서"}

const maxLocationRunes = 30

// ================ Per-slot parsers ================

// ParseLocation accepts the first segment before a comma or newline, cut at
// "근처/주변/쪽/에서". Blank or overlong text is no match.
func ParseLocation(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if i := strings.IndexAny(t, ",\n"); i >= 0 {
		t = t[:i]
	}
	if loc := locationCut.FindStringIndex(t); loc != nil && loc[0] > 0 {
		t = t[:loc[0]]
	}
	t = strings.TrimSpace(t)
	for changed := true; changed; {
		changed = false
		for _, s := range locationSuffixes {
			if strings.HasSuffix(t, s) && len(t) > len(s) {
				t = strings.TrimSpace(strings.TrimSuffix(t, s))
				changed = true
			}
		}
	}
	if t == "" || utf8.RuneCountInString(t) > maxLocationRunes {
		return "", false
	}
	return t, true
}

// ParseListOrNone reads a "없음" style answer as an empty list, otherwise
// splits on , / and newlines, strips particles and keeps at most six tokens.
func ParseListOrNone(text string) ([]string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil, false
	}
	if strings.Contains(t, "없") {
		return []string{}, true
	}
	out := []string{}
	seen := map[string]bool{}
	for _, part := range listSplit.Split(t, -1) {
		p := stripListSuffixes(strings.TrimSpace(part))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) == model.MaxCannotEatTokens {
			break
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func stripListSuffixes(p string) string {
	for changed := true; changed; {
		changed = false
		for _, s := range listSuffixes {
			if !strings.HasSuffix(p, s) {
				continue
			}
			stem := strings.TrimSpace(strings.TrimSuffix(p, s))
			if stem == "" {
				continue
			}
			if shortParticles[s] && utf8.RuneCountInString(stem) < 2 {
				continue
			}
			p = stem
			changed = true
		}
	}
	return p
}

// ParseAlcoholLevel checks the no-alcohol phrases first so "술 안 마셔" is
// not read as heavy.
func ParseAlcoholLevel(text string) (model.AlcoholLevel, bool) {
	if DetectNoAlcoholIntent(text) {
		return model.AlcoholNone, true
	}
	return matchRules(text, alcoholLevelRules)
}

func ParseTransport(text string) (model.Transport, bool) {
	return matchRules(text, transportRules)
}

// ParseAlcoholPlan: "한"+"곳" is single venue; "나눌", "2차" or both digits
// 1 and 2 is split; "모르"/"아직" is unsure.
func ParseAlcoholPlan(text string) (model.AlcoholPlan, bool) {
	switch {
	case strings.Contains(text, "한") && strings.Contains(text, "곳"), strings.Contains(text, "쭉"):
		return model.PlanSingleVenue, true
	case strings.Contains(text, "나눌"), strings.Contains(text, "2차"),
		strings.Contains(text, "1") && strings.Contains(text, "2"):
		return model.PlanSplit, true
	case strings.Contains(text, "모르"), strings.Contains(text, "아직"):
		return model.PlanUnsure, true
	}
	return "", false
}

func ParseAlcoholType(text string) (model.AlcoholType, bool) {
	return matchRules(text, alcoholTypeRules)
}

func ParseFocus(text string) (model.FocusPriority, bool) {
	return matchRules(text, focusRules)
}

// ParseWalkLimit reads the first number, in minutes unless followed by
// "시간". "한 시간" is 60 and "상관없" is the maximum. Values outside
// 5..60 minutes are no match.
func ParseWalkLimit(text string) (int, bool) {
	t := strings.TrimSpace(text)
	minutes := -1
	if m := numberPattern.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		if m[2] == "시간" {
			n *= 60
		}
		minutes = n
	} else {
		switch {
		case strings.Contains(t, "한 시간"), strings.Contains(t, "한시간"):
			minutes = 60
		case strings.Contains(t, "반 시간"), strings.Contains(t, "반시간"):
			minutes = 30
		case strings.Contains(t, "상관없"), strings.Contains(t, "아무"):
			minutes = model.MaxWalkLimitMinutes
		}
	}
	if minutes < model.MinWalkLimitMinutes || minutes > model.MaxWalkLimitMinutes {
		return 0, false
	}
	return minutes, true
}

// ParseSensitivity reads a digit 1..4, or a keyword when there is no number.
func ParseSensitivity(text string) (int, bool) {
	if m := numberPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < model.MinSensitivityLevel || n > model.MaxSensitivityLevel {
			return 0, false
		}
		return n, true
	}
	return matchRules(text, sensitivityRules)
}

// ParseModeAnswer matches text against the mode question's rules.
func ParseModeAnswer(key, text string) (string, bool) {
	q, ok := questions.Default().ModeQuestion(key)
	if !ok {
		return "", false
	}
	return q.Match(text)
}

// ================ Dispatch ================

// Applier parses text for one slot and writes it into c on success.
type Applier func(c *model.Condition, text string) bool

var commonAppliers = map[string]Applier{
	model.KeyLocation: func(c *model.Condition, text string) bool {
		v, ok := ParseLocation(text)
		if ok {
			condition.SetLocation(c, v)
		}
		return ok
	},
	model.KeyCannotEat: func(c *model.Condition, text string) bool {
		v, ok := ParseListOrNone(text)
		if ok {
			condition.SetCannotEat(c, v)
		}
		return ok
	},
	model.KeyAlcoholLevel: func(c *model.Condition, text string) bool {
		v, ok := ParseAlcoholLevel(text)
		if ok {
			condition.SetAlcoholLevel(c, v)
		}
		return ok
	},
	model.KeyTransport: func(c *model.Condition, text string) bool {
		v, ok := ParseTransport(text)
		if ok {
			c.Meta.Common.Transport = v
		}
		return ok
	},
	model.KeyWalkLimit: func(c *model.Condition, text string) bool {
		v, ok := ParseWalkLimit(text)
		if ok {
			c.Meta.Common.WalkLimitMinutes = &v
		}
		return ok
	},
	model.KeySensitivity: func(c *model.Condition, text string) bool {
		v, ok := ParseSensitivity(text)
		if ok {
			c.Meta.Common.SensitivityLevel = v
		}
		return ok
	},
	model.KeyFocus: func(c *model.Condition, text string) bool {
		v, ok := ParseFocus(text)
		if ok {
			c.Meta.Common.FocusPriority = v
		}
		return ok
	},
	model.KeyAlcoholPlan: func(c *model.Condition, text string) bool {
		v, ok := ParseAlcoholPlan(text)
		if ok {
			condition.SetAlcoholPlan(c, v)
		}
		return ok
	},
	model.KeyAlcoholType: func(c *model.Condition, text string) bool {
		v, ok := ParseAlcoholType(text)
		if ok {
			condition.SetAlcoholType(c, v)
		}
		return ok
	},
}

// ApplyAnswer runs the parser for the pending question and reports whether
// it matched. On no match the condition is left untouched.
func ApplyAnswer(c *model.Condition, pending *model.PendingQuestion, text string) bool {
	if c == nil || pending == nil {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if pending.Scope == model.ScopeMode {
		v, ok := ParseModeAnswer(pending.Key, text)
		if ok {
			condition.SetAnswer(c, pending.Key, v)
			condition.Normalize(c)
		}
		return ok
	}

	apply, ok := commonAppliers[pending.Key]
	if !ok {
		return false
	}
	if !apply(c, text) {
		return false
	}
	condition.Normalize(c)
	return true
}
