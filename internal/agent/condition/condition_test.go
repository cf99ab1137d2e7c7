package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decision-mate/server/internal/agent/model"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }
func boolp(b bool) *bool    { return &b }

func TestNewHasDefaults(t *testing.T) {
	c := New()
	assert.Nil(t, c.Location)
	assert.Equal(t, []string{}, c.Constraints.CannotEat)
	assert.Equal(t, []string{}, c.Constraints.AvoidRecent)
	assert.Nil(t, c.Constraints.NeedParking)
	assert.False(t, c.Constraints.AvoidFranchise)
	assert.Equal(t, model.ModeNone, c.Meta.ContextMode)
	assert.Equal(t, model.DefaultPeopleCount, c.Meta.PeopleCount)
	assert.Equal(t, model.BudgetNoPreference, c.Meta.BudgetTier)
	assert.Equal(t, model.PlaceAuto, c.Meta.PlaceType)
	assert.Equal(t, model.FoodAuto, c.Meta.FoodClass)
	assert.NotNil(t, c.Meta.Answers)
	assert.Zero(t, c.Meta.Common.SearchRelax)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	records := []model.Condition{
		{},
		{Location: strp("  홍대 "), FoodType: strp("   ")},
		{Constraints: model.Constraints{CannotEat: []string{" 오이", "오이", "", "새우"}}},
		{Meta: model.Meta{ContextMode: "mystery", PeopleCount: -3, BudgetTier: "cheap", PlaceType: "bar", FoodClass: "thai"}},
		{Meta: model.Meta{Common: model.Common{AlcoholLevel: model.AlcoholLight, AlcoholPlan: model.PlanSplit, AlcoholType: model.DrinkWine}}},
		{Meta: model.Meta{Common: model.Common{AlcoholLevel: model.AlcoholHeavy, AlcoholType: model.DrinkBeer}}},
		{Meta: model.Meta{Common: model.Common{SearchRelax: 9, SensitivityLevel: 7, WalkLimitMinutes: intp(400)}}},
		{Meta: model.Meta{Answers: map[string]string{"work_tone": "", "": "x", "friend_focus": "food"}}},
	}

	for i, r := range records {
		once := r
		Normalize(&once)
		twice := Clone(once)
		Normalize(&twice)
		assert.Equal(t, once, twice, "record %d", i)
	}
}

func TestNormalizePreservesSetFields(t *testing.T) {
	c := model.Condition{
		Location: strp("강남"),
		Meta: model.Meta{
			ContextMode: model.ModeFriends,
			PeopleCount: 5,
			BudgetTier:  model.BudgetSpecial,
			Common: model.Common{
				Transport:        model.TransportCar,
				WalkLimitMinutes: intp(15),
				SensitivityLevel: 3,
				SearchRelax:      2,
			},
		},
	}
	Normalize(&c)
	assert.Equal(t, "강남", c.LocationText())
	assert.Equal(t, model.ModeFriends, c.Meta.ContextMode)
	assert.Equal(t, 5, c.Meta.PeopleCount)
	assert.Equal(t, model.BudgetSpecial, c.Meta.BudgetTier)
	assert.Equal(t, model.TransportCar, c.Meta.Common.Transport)
	assert.Equal(t, 15, c.Meta.Common.EffectiveWalkLimit())
	assert.Equal(t, 3, c.Meta.Common.SensitivityLevel)
	assert.Equal(t, 2, c.Meta.Common.SearchRelax)
}

func TestNormalizeAlcoholInvariant(t *testing.T) {
	c := model.Condition{Meta: model.Meta{Common: model.Common{
		AlcoholLevel: model.AlcoholLight,
		AlcoholPlan:  model.PlanSplit,
		AlcoholType:  model.DrinkSoju,
	}}}
	Normalize(&c)
	assert.Empty(t, c.Meta.Common.AlcoholPlan)
	assert.Empty(t, c.Meta.Common.AlcoholType)

	c = model.Condition{Meta: model.Meta{Common: model.Common{
		AlcoholLevel: model.AlcoholHeavy,
		AlcoholType:  model.DrinkSoju,
	}}}
	Normalize(&c)
	assert.Empty(t, c.Meta.Common.AlcoholType, "type needs a plan")
}

func TestSetAlcoholLevelClearsPlanAndType(t *testing.T) {
	c := New()
	SetAlcoholLevel(&c, model.AlcoholHeavy)
	SetAlcoholPlan(&c, model.PlanSplit)
	SetAlcoholType(&c, model.DrinkWine)
	require.Equal(t, model.DrinkWine, c.Meta.Common.AlcoholType)

	SetAlcoholLevel(&c, model.AlcoholNone)
	assert.Equal(t, model.AlcoholNone, c.Meta.Common.AlcoholLevel)
	assert.Empty(t, c.Meta.Common.AlcoholPlan)
	assert.Empty(t, c.Meta.Common.AlcoholType)
}

func TestAlcoholSettersAreGated(t *testing.T) {
	c := New()
	SetAlcoholPlan(&c, model.PlanSplit)
	assert.Empty(t, c.Meta.Common.AlcoholPlan)

	SetAlcoholLevel(&c, model.AlcoholHeavy)
	SetAlcoholType(&c, model.DrinkBeer)
	assert.Empty(t, c.Meta.Common.AlcoholType)

	SetAlcoholPlan(&c, model.PlanUnsure)
	assert.Equal(t, model.PlanUnsure, c.Meta.Common.AlcoholPlan)
}

func TestRaiseSearchRelaxIsBoundedAndMonotonic(t *testing.T) {
	c := New()
	prev := 0
	for i := 0; i < 10; i++ {
		RaiseSearchRelax(&c)
		assert.GreaterOrEqual(t, c.Meta.Common.SearchRelax, prev)
		assert.LessOrEqual(t, c.Meta.Common.SearchRelax, model.MaxSearchRelax)
		prev = c.Meta.Common.SearchRelax
	}
	assert.Equal(t, model.MaxSearchRelax, c.Meta.Common.SearchRelax)
	assert.False(t, RaiseSearchRelax(&c))

	RaiseSearchRelaxTo(&c, 1)
	assert.Equal(t, model.MaxSearchRelax, c.Meta.Common.SearchRelax)
}

func TestSetCannotEatLatchesAndCaps(t *testing.T) {
	c := New()
	SetCannotEat(&c, []string{"a", "b", "c", "d", "e", "f", "g"})
	assert.True(t, c.Meta.Common.CannotEatDone)
	assert.Len(t, c.Constraints.CannotEat, model.MaxCannotEatTokens)

	SetCannotEat(&c, []string{})
	assert.Equal(t, []string{}, c.Constraints.CannotEat)
	assert.True(t, c.Meta.Common.CannotEatDone)
}

func TestCloneIsDeep(t *testing.T) {
	c := New()
	SetLocation(&c, "신촌")
	c.Constraints.NeedParking = boolp(true)
	SetAnswer(&c, "friend_focus", "food")

	cp := Clone(c)
	*cp.Location = "합정"
	*cp.Constraints.NeedParking = false
	cp.Meta.Answers["friend_focus"] = "conversation"

	assert.Equal(t, "신촌", c.LocationText())
	assert.True(t, *c.Constraints.NeedParking)
	assert.Equal(t, "food", c.Meta.Answers["friend_focus"])
}
