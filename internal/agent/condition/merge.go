package condition

import (
	"strings"

	"github.com/decision-mate/server/internal/agent/model"
)

// Merge applies a patch non-destructively: only present, non-nil values
// overwrite, nested groups merge key by key, latches ignore false and the
// relax counter never goes down. The result is normalized.
func Merge(c *model.Condition, p model.Patch) {
	if c == nil {
		return
	}

	if p.Location != nil {
		SetLocation(c, *p.Location)
	}
	mergeText(&c.FoodType, p.FoodType)
	mergeText(&c.Purpose, p.Purpose)
	mergeText(&c.Mood, p.Mood)

	if p.Constraints != nil {
		mergeConstraints(&c.Constraints, *p.Constraints)
	}
	if p.Meta != nil {
		mergeMeta(c, *p.Meta)
	}

	Normalize(c)
}

func mergeConstraints(dst *model.Constraints, p model.ConstraintsPatch) {
	if p.CannotEat != nil && len(cleanTokens(p.CannotEat, 0)) > 0 {
		dst.CannotEat = cleanTokens(p.CannotEat, model.MaxCannotEatTokens)
	}
	if p.AvoidRecent != nil && len(cleanTokens(p.AvoidRecent, 0)) > 0 {
		dst.AvoidRecent = cleanTokens(p.AvoidRecent, 0)
	}
	if p.NeedParking != nil {
		v := *p.NeedParking
		dst.NeedParking = &v
	}
	if p.AvoidFranchise != nil {
		dst.AvoidFranchise = *p.AvoidFranchise
	}
}

func mergeMeta(c *model.Condition, p model.MetaPatch) {
	m := &c.Meta
	if p.ContextMode != nil && p.ContextMode.Valid() {
		m.ContextMode = *p.ContextMode
	}
	if p.PeopleCount != nil && *p.PeopleCount > 0 {
		m.PeopleCount = *p.PeopleCount
	}
	if p.BudgetTier != nil && p.BudgetTier.Valid() {
		m.BudgetTier = *p.BudgetTier
	}
	if p.PlaceType != nil && p.PlaceType.Valid() {
		m.PlaceType = *p.PlaceType
	}
	if p.FoodClass != nil && p.FoodClass.Valid() {
		m.FoodClass = *p.FoodClass
	}
	if p.FastMode != nil && *p.FastMode {
		SetFastMode(c)
	}
	for k, v := range p.Answers {
		SetAnswer(c, k, v)
	}
	if p.Common != nil {
		mergeCommon(c, *p.Common)
	}
}

func mergeCommon(c *model.Condition, p model.CommonPatch) {
	cm := &c.Meta.Common
	if p.CannotEatDone != nil && *p.CannotEatDone {
		MarkCannotEatDone(c)
	}
	// Level before plan before type so same-patch values survive the gating.
	if p.AlcoholLevel != nil {
		SetAlcoholLevel(c, *p.AlcoholLevel)
	}
	if p.AlcoholPlan != nil {
		SetAlcoholPlan(c, *p.AlcoholPlan)
	}
	if p.AlcoholType != nil {
		SetAlcoholType(c, *p.AlcoholType)
	}
	if p.Transport != nil && p.Transport.Valid() {
		cm.Transport = *p.Transport
	}
	if p.WalkLimitMinutes != nil {
		if v := *p.WalkLimitMinutes; v >= model.MinWalkLimitMinutes && v <= model.MaxWalkLimitMinutes {
			cm.WalkLimitMinutes = &v
		}
	}
	if p.SensitivityLevel != nil {
		if v := *p.SensitivityLevel; v >= model.MinSensitivityLevel && v <= model.MaxSensitivityLevel {
			cm.SensitivityLevel = v
		}
	}
	if p.FocusPriority != nil && p.FocusPriority.Valid() {
		cm.FocusPriority = *p.FocusPriority
	}
	if p.StayDuration != nil && p.StayDuration.Valid() {
		cm.StayDuration = *p.StayDuration
	}
	if p.SearchRelax != nil {
		RaiseSearchRelaxTo(c, *p.SearchRelax)
	}
	if p.CenterName != nil && *p.CenterName != "" {
		cm.CenterName = *p.CenterName
	}
}

// mergeText overwrites dst only with a non-blank value.
func mergeText(dst **string, p *string) {
	if p == nil {
		return
	}
	if v := strings.TrimSpace(*p); v != "" {
		*dst = &v
	}
}
