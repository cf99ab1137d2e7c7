package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/decision-mate/server/internal/agent/model"
)

func populated() model.Condition {
	c := New()
	SetLocation(&c, "홍대")
	c.FoodType = strp("일식")
	c.Mood = strp("조용한")
	SetCannotEat(&c, []string{"오이"})
	c.Constraints.NeedParking = boolp(true)
	c.Meta.ContextMode = model.ModeFriends
	c.Meta.PeopleCount = 4
	SetAnswer(&c, "friend_focus", "food")
	SetAlcoholLevel(&c, model.AlcoholHeavy)
	SetAlcoholPlan(&c, model.PlanSplit)
	c.Meta.Common.Transport = model.TransportTransit
	c.Meta.Common.SearchRelax = 2
	Normalize(&c)
	return c
}

func TestMergeEmptyPatchIsNoop(t *testing.T) {
	c := populated()
	want := Clone(c)
	Merge(&c, model.Patch{})
	assert.Equal(t, want, c)
}

func TestMergeAbsentFieldsKeepValues(t *testing.T) {
	c := populated()
	Merge(&c, model.Patch{
		Purpose:     strp("생일"),
		Constraints: &model.ConstraintsPatch{AvoidFranchise: boolp(true)},
		Meta:        &model.MetaPatch{Common: &model.CommonPatch{FocusPriority: ptr(model.FocusFood)}},
	})

	assert.Equal(t, "홍대", c.LocationText())
	assert.Equal(t, "일식", c.FoodTypeText())
	assert.Equal(t, "조용한", *c.Mood)
	assert.Equal(t, "생일", *c.Purpose)
	assert.Equal(t, []string{"오이"}, c.Constraints.CannotEat)
	assert.True(t, *c.Constraints.NeedParking)
	assert.True(t, c.Constraints.AvoidFranchise)
	assert.Equal(t, model.ModeFriends, c.Meta.ContextMode)
	assert.Equal(t, 4, c.Meta.PeopleCount)
	assert.Equal(t, "food", c.Meta.Answers["friend_focus"])
	assert.Equal(t, model.AlcoholHeavy, c.Meta.Common.AlcoholLevel)
	assert.Equal(t, model.PlanSplit, c.Meta.Common.AlcoholPlan)
	assert.Equal(t, model.TransportTransit, c.Meta.Common.Transport)
	assert.Equal(t, model.FocusFood, c.Meta.Common.FocusPriority)
}

func TestMergeBlankValuesDoNotErase(t *testing.T) {
	c := populated()
	Merge(&c, model.Patch{
		Location:    strp(" "),
		FoodType:    strp(""),
		Constraints: &model.ConstraintsPatch{CannotEat: []string{""}},
	})
	assert.Equal(t, "홍대", c.LocationText())
	assert.Equal(t, "일식", c.FoodTypeText())
	assert.Equal(t, []string{"오이"}, c.Constraints.CannotEat)
}

func TestMergeOverwritesPresentValues(t *testing.T) {
	c := populated()
	Merge(&c, model.Patch{
		Location:    strp("강남"),
		Constraints: &model.ConstraintsPatch{NeedParking: boolp(false), CannotEat: []string{"새우", "굴"}},
		Meta: &model.MetaPatch{
			PeopleCount: intp(6),
			Answers:     map[string]string{"friend_focus": "conversation"},
		},
	})
	assert.Equal(t, "강남", c.LocationText())
	assert.False(t, *c.Constraints.NeedParking)
	assert.Equal(t, []string{"새우", "굴"}, c.Constraints.CannotEat)
	assert.Equal(t, 6, c.Meta.PeopleCount)
	assert.Equal(t, "conversation", c.Meta.Answers["friend_focus"])
}

func TestMergeLatchesAndRelax(t *testing.T) {
	c := populated()
	c.Meta.FastMode = true
	Merge(&c, model.Patch{Meta: &model.MetaPatch{
		FastMode: boolp(false),
		Common: &model.CommonPatch{
			CannotEatDone: boolp(false),
			SearchRelax:   intp(0),
		},
	}})
	assert.True(t, c.Meta.FastMode)
	assert.True(t, c.Meta.Common.CannotEatDone)
	assert.Equal(t, 2, c.Meta.Common.SearchRelax)

	Merge(&c, model.Patch{Meta: &model.MetaPatch{Common: &model.CommonPatch{SearchRelax: intp(10)}}})
	assert.Equal(t, model.MaxSearchRelax, c.Meta.Common.SearchRelax)
}

func TestMergeAlcoholLevelDowngradeClearsPlan(t *testing.T) {
	c := populated()
	Merge(&c, model.Patch{Meta: &model.MetaPatch{Common: &model.CommonPatch{AlcoholLevel: ptr(model.AlcoholLight)}}})
	assert.Equal(t, model.AlcoholLight, c.Meta.Common.AlcoholLevel)
	assert.Empty(t, c.Meta.Common.AlcoholPlan)
	assert.Empty(t, c.Meta.Common.AlcoholType)
}

func TestMergeSamePatchLevelPlanType(t *testing.T) {
	c := New()
	Merge(&c, model.Patch{Meta: &model.MetaPatch{Common: &model.CommonPatch{
		AlcoholLevel: ptr(model.AlcoholHeavy),
		AlcoholPlan:  ptr(model.PlanSingleVenue),
		AlcoholType:  ptr(model.DrinkWine),
	}}})
	assert.Equal(t, model.PlanSingleVenue, c.Meta.Common.AlcoholPlan)
	assert.Equal(t, model.DrinkWine, c.Meta.Common.AlcoholType)
}

func TestMergeIgnoresInvalidEnumsAndRanges(t *testing.T) {
	c := populated()
	Merge(&c, model.Patch{Meta: &model.MetaPatch{
		ContextMode: ptr(model.ContextMode("party")),
		PeopleCount: intp(0),
		Common: &model.CommonPatch{
			Transport:        ptr(model.Transport("bike")),
			WalkLimitMinutes: intp(500),
			SensitivityLevel: intp(9),
		},
	}})
	assert.Equal(t, model.ModeFriends, c.Meta.ContextMode)
	assert.Equal(t, 4, c.Meta.PeopleCount)
	assert.Equal(t, model.TransportTransit, c.Meta.Common.Transport)
	assert.Nil(t, c.Meta.Common.WalkLimitMinutes)
	assert.Zero(t, c.Meta.Common.SensitivityLevel)
}

func ptr[T any](v T) *T { return &v }
