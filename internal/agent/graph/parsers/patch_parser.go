package parsers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/decision-mate/server/internal/agent/graph/questions"
	"github.com/decision-mate/server/internal/agent/model"
	logx "github.com/decision-mate/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxTextRunes  = 200       // per free-text field
	maxListItems  = 20        // per list field
	maxErrSnippet = 200       // limit error snippet size
)

// ParseReport records what the decoder threw away.
type ParseReport struct {
	NotJSON   bool     `json:"not_json,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	Dropped   []string `json:"dropped,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// Clean reports whether the document was accepted without losses.
func (r ParseReport) Clean() bool {
	return !r.NotJSON && !r.Truncated && len(r.Dropped) == 0 && len(r.Errors) == 0
}

type patchDecoder struct {
	report ParseReport
}

func (d *patchDecoder) drop(path string) {
	d.report.Dropped = append(d.report.Dropped, path)
}

func (d *patchDecoder) fail(path string, err error) {
	d.report.Errors = append(d.report.Errors, fmt.Sprintf("%s: %s", path, safeSnippet(err.Error())))
}

// ParsePatch decodes the patch extractor's reply. Non-JSON content yields an
// empty patch; unknown keys and wrongly typed values are dropped and
// reported, the rest of the document is kept. JSON null means "not
// mentioned".
func ParsePatch(content string) (patch model.Patch, report ParseReport) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "patch_parser").Msgf("panic recovered: %v", r)
			patch = model.Patch{}
			report.Errors = append(report.Errors, "panic")
		}
	}()

	d := &patchDecoder{}
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "patch_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		d.report.Truncated = true
	}

	doc, ok := extractJSONObject(content)
	if !ok {
		d.report.NotJSON = true
		return model.Patch{}, d.report
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &top); err != nil {
		d.report.NotJSON = true
		return model.Patch{}, d.report
	}

	for _, k := range sortedKeys(top) {
		raw := top[k]
		switch k {
		case "location":
			patch.Location = d.text(k, raw)
		case "food_type":
			patch.FoodType = d.text(k, raw)
		case "purpose":
			patch.Purpose = d.text(k, raw)
		case "mood":
			patch.Mood = d.text(k, raw)
		case "constraints":
			patch.Constraints = d.constraints(raw, patch.Constraints)
		case "meta":
			patch.Meta = d.meta(raw, patch.Meta)
		case "diversify":
			if v := d.boolean(k, raw); v != nil {
				patch.Diversify = *v
			}
		case "exclude_last":
			if v := d.boolean(k, raw); v != nil {
				patch.ExcludeLast = *v
			}
		case "avoid_franchise":
			// top-level alias of constraints.avoid_franchise
			if v := d.boolean(k, raw); v != nil {
				if patch.Constraints == nil {
					patch.Constraints = &model.ConstraintsPatch{}
				}
				patch.Constraints.AvoidFranchise = v
			}
		case "people":
			// top-level alias of meta.people_count
			if v := d.positive(k, raw); v != nil {
				if patch.Meta == nil {
					patch.Meta = &model.MetaPatch{}
				}
				patch.Meta.PeopleCount = v
			}
		default:
			d.drop(k)
		}
	}
	return patch, d.report
}

func (d *patchDecoder) constraints(raw json.RawMessage, cp *model.ConstraintsPatch) *model.ConstraintsPatch {
	obj, ok := d.object("constraints", raw)
	if !ok {
		return cp
	}
	if cp == nil {
		cp = &model.ConstraintsPatch{}
	}
	touched := cp.AvoidFranchise != nil
	for _, k := range sortedKeys(obj) {
		path := "constraints." + k
		v := obj[k]
		switch k {
		case "cannot_eat":
			if l := d.list(path, v); l != nil {
				cp.CannotEat, touched = l, true
			}
		case "avoid_recent":
			if l := d.list(path, v); l != nil {
				cp.AvoidRecent, touched = l, true
			}
		case "need_parking":
			if b := d.boolean(path, v); b != nil {
				cp.NeedParking, touched = b, true
			}
		case "avoid_franchise":
			if b := d.boolean(path, v); b != nil {
				cp.AvoidFranchise, touched = b, true
			}
		default:
			d.drop(path)
		}
	}
	if !touched {
		return nil
	}
	return cp
}

func (d *patchDecoder) meta(raw json.RawMessage, mp *model.MetaPatch) *model.MetaPatch {
	obj, ok := d.object("meta", raw)
	if !ok {
		return mp
	}
	if mp == nil {
		mp = &model.MetaPatch{}
	}
	touched := mp.PeopleCount != nil
	for _, k := range sortedKeys(obj) {
		path := "meta." + k
		v := obj[k]
		switch k {
		case "context_mode":
			if e := decodeEnum[model.ContextMode](d, path, v); e != nil {
				mp.ContextMode, touched = e, true
			}
		case "people_count":
			if n := d.positive(path, v); n != nil {
				mp.PeopleCount, touched = n, true
			}
		case "budget_tier":
			if e := decodeEnum[model.BudgetTier](d, path, v); e != nil {
				mp.BudgetTier, touched = e, true
			}
		case "place_type":
			if e := decodeEnum[model.PlaceType](d, path, v); e != nil {
				mp.PlaceType, touched = e, true
			}
		case "food_class":
			if e := decodeEnum[model.FoodClass](d, path, v); e != nil {
				mp.FoodClass, touched = e, true
			}
		case "fast_mode":
			if b := d.boolean(path, v); b != nil {
				mp.FastMode, touched = b, true
			}
		case "answers":
			if a := d.answers(path, v); len(a) > 0 {
				mp.Answers, touched = a, true
			}
		case "common":
			if c := d.common(v); c != nil {
				mp.Common, touched = c, true
			}
		default:
			d.drop(path)
		}
	}
	if !touched {
		return nil
	}
	return mp
}

func (d *patchDecoder) common(raw json.RawMessage) *model.CommonPatch {
	obj, ok := d.object("meta.common", raw)
	if !ok {
		return nil
	}
	cp := &model.CommonPatch{}
	touched := false
	for _, k := range sortedKeys(obj) {
		path := "meta.common." + k
		v := obj[k]
		switch k {
		case "cannot_eat_done":
			if b := d.boolean(path, v); b != nil {
				cp.CannotEatDone, touched = b, true
			}
		case "alcohol_level":
			if e := decodeEnum[model.AlcoholLevel](d, path, v); e != nil {
				cp.AlcoholLevel, touched = e, true
			}
		case "alcohol_plan":
			if e := decodeEnum[model.AlcoholPlan](d, path, v); e != nil {
				cp.AlcoholPlan, touched = e, true
			}
		case "alcohol_type":
			if e := decodeEnum[model.AlcoholType](d, path, v); e != nil {
				cp.AlcoholType, touched = e, true
			}
		case "transport":
			if e := decodeEnum[model.Transport](d, path, v); e != nil {
				cp.Transport, touched = e, true
			}
		case "focus_priority":
			if e := decodeEnum[model.FocusPriority](d, path, v); e != nil {
				cp.FocusPriority, touched = e, true
			}
		case "stay_duration":
			if e := decodeEnum[model.StayDuration](d, path, v); e != nil {
				cp.StayDuration, touched = e, true
			}
		case "walk_limit_minutes":
			if n := d.bounded(path, v, model.MinWalkLimitMinutes, model.MaxWalkLimitMinutes); n != nil {
				cp.WalkLimitMinutes, touched = n, true
			}
		case "sensitivity_level":
			if n := d.bounded(path, v, model.MinSensitivityLevel, model.MaxSensitivityLevel); n != nil {
				cp.SensitivityLevel, touched = n, true
			}
		case "search_relax":
			if n := d.bounded(path, v, 0, model.MaxSearchRelax); n != nil {
				cp.SearchRelax, touched = n, true
			}
		case "center_name":
			if s := d.text(path, v); s != nil {
				cp.CenterName, touched = s, true
			}
		default:
			d.drop(path)
		}
	}
	if !touched {
		return nil
	}
	return cp
}

// answers keeps only known mode keys with one of their rule values.
func (d *patchDecoder) answers(path string, raw json.RawMessage) map[string]string {
	var m map[string]string
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		d.fail(path, err)
		return nil
	}
	out := map[string]string{}
	for _, k := range sortedKeys(m) {
		q, ok := questions.Default().ModeQuestion(k)
		if !ok || !q.HasValue(m[k]) {
			d.drop(path + "." + k)
			continue
		}
		out[k] = m[k]
	}
	return out
}

// ================ Typed field decoders ================

func (d *patchDecoder) object(path string, raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		d.fail(path, err)
		return nil, false
	}
	return obj, true
}

func (d *patchDecoder) text(path string, raw json.RawMessage) *string {
	v, err := decode[string](raw)
	if err != nil {
		d.fail(path, err)
		return nil
	}
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) > maxTextRunes {
		d.fail(path, fmt.Errorf("text too long"))
		return nil
	}
	return &s
}

func (d *patchDecoder) list(path string, raw json.RawMessage) []string {
	v, err := decode[[]string](raw)
	if err != nil {
		d.fail(path, err)
		return nil
	}
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(*v))
	for _, s := range *v {
		s = strings.TrimSpace(s)
		if s == "" || utf8.RuneCountInString(s) > maxTextRunes {
			continue
		}
		out = append(out, s)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}

func (d *patchDecoder) boolean(path string, raw json.RawMessage) *bool {
	v, err := decode[bool](raw)
	if err != nil {
		d.fail(path, err)
		return nil
	}
	return v
}

func (d *patchDecoder) positive(path string, raw json.RawMessage) *int {
	return d.bounded(path, raw, 1, 1000)
}

func (d *patchDecoder) bounded(path string, raw json.RawMessage, min, max int) *int {
	v, err := decode[int](raw)
	if err != nil {
		d.fail(path, err)
		return nil
	}
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		d.fail(path, fmt.Errorf("out of range"))
		return nil
	}
	return v
}

type enum interface {
	~string
	Valid() bool
}

func decodeEnum[T enum](d *patchDecoder, path string, raw json.RawMessage) *T {
	v, err := decode[T](raw)
	if err != nil {
		d.fail(path, err)
		return nil
	}
	if v == nil {
		return nil
	}
	if !(*v).Valid() {
		d.fail(path, fmt.Errorf("invalid value %q", string(*v)))
		return nil
	}
	return v
}

// decode returns (nil, nil) for JSON null.
func decode[T any](raw json.RawMessage) (*T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ====================== Helper function ======================

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// extractJSONObject accepts a bare object, a fenced code block or the first
// {...} span embedded in prose.
func extractJSONObject(content string) (string, bool) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return s, true
	}
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i < 0 || j <= i {
		return "", false
	}
	sub := s[i : j+1]
	if !json.Valid([]byte(sub)) {
		return "", false
	}
	return sub, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
