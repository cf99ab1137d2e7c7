// Package condition owns every mutation of model.Condition. All writers
// (answer parsers, patch merge, intent scanners) go through here so the
// record stays well-formed before the selector or a collaborator reads it.
package condition

import (
	"encoding/json"
	"strings"

	"github.com/decision-mate/server/internal/agent/model"
)

// New returns an empty, normalized condition.
func New() model.Condition {
	var c model.Condition
	Normalize(&c)
	return c
}

// Normalize fills defaults, coerces unknown values and enforces the
// invariants. It is idempotent and never fails.
func Normalize(c *model.Condition) {
	if c == nil {
		return
	}

	c.Location = cleanText(c.Location)
	c.FoodType = cleanText(c.FoodType)
	c.Purpose = cleanText(c.Purpose)
	c.Mood = cleanText(c.Mood)

	c.Constraints.CannotEat = cleanTokens(c.Constraints.CannotEat, 0)
	c.Constraints.AvoidRecent = cleanTokens(c.Constraints.AvoidRecent, 0)

	m := &c.Meta
	if !m.ContextMode.Valid() {
		m.ContextMode = model.ModeNone
	}
	if m.PeopleCount <= 0 {
		m.PeopleCount = model.DefaultPeopleCount
	}
	if !m.BudgetTier.Valid() {
		m.BudgetTier = model.BudgetNoPreference
	}
	if !m.PlaceType.Valid() {
		m.PlaceType = model.PlaceAuto
	}
	if !m.FoodClass.Valid() {
		m.FoodClass = model.FoodAuto
	}
	if m.Answers == nil {
		m.Answers = map[string]string{}
	}
	for k, v := range m.Answers {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			delete(m.Answers, k)
		}
	}

	cm := &m.Common
	if cm.AlcoholLevel != "" && !cm.AlcoholLevel.Valid() {
		cm.AlcoholLevel = ""
	}
	if cm.AlcoholPlan != "" && !cm.AlcoholPlan.Valid() {
		cm.AlcoholPlan = ""
	}
	if cm.AlcoholType != "" && !cm.AlcoholType.Valid() {
		cm.AlcoholType = ""
	}
	if cm.AlcoholLevel != model.AlcoholHeavy {
		cm.AlcoholPlan = ""
		cm.AlcoholType = ""
	}
	if cm.AlcoholPlan == "" {
		cm.AlcoholType = ""
	}
	if cm.Transport != "" && !cm.Transport.Valid() {
		cm.Transport = ""
	}
	if cm.FocusPriority != "" && !cm.FocusPriority.Valid() {
		cm.FocusPriority = ""
	}
	if cm.StayDuration != "" && !cm.StayDuration.Valid() {
		cm.StayDuration = ""
	}
	if cm.WalkLimitMinutes != nil {
		if v := *cm.WalkLimitMinutes; v < model.MinWalkLimitMinutes || v > model.MaxWalkLimitMinutes {
			cm.WalkLimitMinutes = nil
		}
	}
	if cm.SensitivityLevel < model.MinSensitivityLevel || cm.SensitivityLevel > model.MaxSensitivityLevel {
		cm.SensitivityLevel = 0
	}
	cm.SearchRelax = clamp(cm.SearchRelax, 0, model.MaxSearchRelax)
	cm.CenterName = strings.TrimSpace(cm.CenterName)
}

// Clone deep-copies a condition.
func Clone(c model.Condition) model.Condition {
	var out model.Condition
	b, err := json.Marshal(c)
	if err == nil && json.Unmarshal(b, &out) == nil {
		Normalize(&out)
		return out
	}
	// JSON round-trip cannot fail for this schema; keep a shallow copy as a last resort.
	out = c
	Normalize(&out)
	return out
}

// SetLocation overwrites the location; blank input is ignored.
func SetLocation(c *model.Condition, location string) {
	if v := strings.TrimSpace(location); v != "" {
		c.Location = &v
	}
}

// SetAlcoholLevel sets the level and clears plan/type unless heavy.
func SetAlcoholLevel(c *model.Condition, level model.AlcoholLevel) {
	if !level.Valid() {
		return
	}
	cm := &c.Meta.Common
	cm.AlcoholLevel = level
	if level != model.AlcoholHeavy {
		cm.AlcoholPlan = ""
		cm.AlcoholType = ""
	}
}

// SetAlcoholPlan is ignored unless the level is heavy.
func SetAlcoholPlan(c *model.Condition, plan model.AlcoholPlan) {
	cm := &c.Meta.Common
	if cm.AlcoholLevel != model.AlcoholHeavy || !plan.Valid() {
		return
	}
	cm.AlcoholPlan = plan
	if plan == model.PlanUnsure {
		cm.AlcoholType = ""
	}
}

// SetAlcoholType is ignored until a plan is set.
func SetAlcoholType(c *model.Condition, t model.AlcoholType) {
	cm := &c.Meta.Common
	if cm.AlcoholLevel != model.AlcoholHeavy || cm.AlcoholPlan == "" || !t.Valid() {
		return
	}
	cm.AlcoholType = t
}

// SetCannotEat replaces the list and trips the one-way latch.
func SetCannotEat(c *model.Condition, tokens []string) {
	c.Constraints.CannotEat = cleanTokens(tokens, model.MaxCannotEatTokens)
	MarkCannotEatDone(c)
}

// MarkCannotEatDone trips the latch; it is never reset within a session.
func MarkCannotEatDone(c *model.Condition) {
	c.Meta.Common.CannotEatDone = true
}

// SetFastMode trips the fast-mode latch.
func SetFastMode(c *model.Condition) {
	c.Meta.FastMode = true
}

// RaiseSearchRelax moves the relax counter up by one, capped at the maximum.
func RaiseSearchRelax(c *model.Condition) bool {
	cm := &c.Meta.Common
	if cm.SearchRelax >= model.MaxSearchRelax {
		return false
	}
	cm.SearchRelax++
	return true
}

// RaiseSearchRelaxTo moves the counter to level when that is higher.
func RaiseSearchRelaxTo(c *model.Condition, level int) {
	level = clamp(level, 0, model.MaxSearchRelax)
	if level > c.Meta.Common.SearchRelax {
		c.Meta.Common.SearchRelax = level
	}
}

// SetAnswer records a mode question answer.
func SetAnswer(c *model.Condition, key, value string) {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	if c.Meta.Answers == nil {
		c.Meta.Answers = map[string]string{}
	}
	c.Meta.Answers[key] = value
}

// ====================== Helper function ======================

func cleanText(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// cleanTokens trims, drops blanks, dedups (first wins) and caps when max > 0.
// It always returns a non-nil slice.
func cleanTokens(in []string, max int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
