package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/model"
)

func TestParsePatchValidDocument(t *testing.T) {
	p, rep := ParsePatch(`{"location":"강남","constraints":{"need_parking":true,"cannot_eat":["오이"]},
		"meta":{"people_count":4,"budget_tier":"value","common":{"transport":"car","stay_duration":"long"}}}`)

	assert.True(t, rep.Clean(), "%+v", rep)
	require.NotNil(t, p.Location)
	assert.Equal(t, "강남", *p.Location)
	require.NotNil(t, p.Constraints)
	assert.True(t, *p.Constraints.NeedParking)
	assert.Equal(t, []string{"오이"}, p.Constraints.CannotEat)
	require.NotNil(t, p.Meta)
	assert.Equal(t, 4, *p.Meta.PeopleCount)
	assert.Equal(t, model.BudgetValue, *p.Meta.BudgetTier)
	require.NotNil(t, p.Meta.Common)
	assert.Equal(t, model.TransportCar, *p.Meta.Common.Transport)
	assert.Equal(t, model.StayLong, *p.Meta.Common.StayDuration)
}

func TestParsePatchEnvelopes(t *testing.T) {
	for _, in := range []string{
		`네, 결과입니다: {"mood":"조용한"} 참고하세요`,
		"```json\n{\"mood\":\"조용한\"}\n```",
		"  {\"mood\": \"조용한\"}  ",
	} {
		p, rep := ParsePatch(in)
		require.NotNil(t, p.Mood, in)
		assert.Equal(t, "조용한", *p.Mood)
		assert.False(t, rep.NotJSON)
	}
}

func TestParsePatchNotJSONIsEmpty(t *testing.T) {
	for _, in := range []string{"", "모르겠어요", "{broken", "[1,2,3]"} {
		p, rep := ParsePatch(in)
		assert.True(t, p.Empty(), in)
		assert.True(t, rep.NotJSON, in)
	}
}

func TestParsePatchDropsUnknownKeys(t *testing.T) {
	p, rep := ParsePatch(`{"location":"홍대","weather":"rain","meta":{"vibe":"x","common":{"foo":1}},"constraints":{"pets":true}}`)

	require.NotNil(t, p.Location)
	assert.Equal(t, "홍대", *p.Location)
	assert.Nil(t, p.Meta)
	assert.Nil(t, p.Constraints)
	assert.ElementsMatch(t, []string{"weather", "meta.vibe", "meta.common.foo", "constraints.pets"}, rep.Dropped)
}

func TestParsePatchRejectsWrongTypes(t *testing.T) {
	p, rep := ParsePatch(`{"people":"three","constraints":{"cannot_eat":"오이"},"meta":{"context_mode":"party","common":{"walk_limit_minutes":500}}}`)

	assert.Nil(t, p.Constraints)
	assert.Nil(t, p.Meta)
	assert.Len(t, rep.Errors, 4)
}

func TestParsePatchNullMeansAbsent(t *testing.T) {
	p, rep := ParsePatch(`{"location":null,"food_type":"  ","constraints":{"need_parking":null},"meta":null}`)
	assert.True(t, p.Empty())
	assert.True(t, rep.Clean())
}

func TestParsePatchSignalsAndAliases(t *testing.T) {
	p, _ := ParsePatch(`{"diversify":true,"exclude_last":true,"avoid_franchise":true,"people":3,"meta":{"fast_mode":true}}`)

	assert.True(t, p.Diversify)
	assert.True(t, p.ExcludeLast)
	require.NotNil(t, p.Constraints)
	assert.True(t, *p.Constraints.AvoidFranchise)
	require.NotNil(t, p.Meta)
	assert.Equal(t, 3, *p.Meta.PeopleCount)
	assert.True(t, *p.Meta.FastMode)
}

func TestParsePatchAnswersKeepKnownValues(t *testing.T) {
	p, rep := ParsePatch(`{"meta":{"answers":{"work_tone":"formal","friend_focus":"pizza","made_up":"x"}}}`)

	require.NotNil(t, p.Meta)
	assert.Equal(t, map[string]string{"work_tone": "formal"}, p.Meta.Answers)
	assert.ElementsMatch(t, []string{"meta.answers.friend_focus", "meta.answers.made_up"}, rep.Dropped)
}

func TestParsePatchTruncatesOversizedContent(t *testing.T) {
	p, rep := ParsePatch(`{"location":"` + strings.Repeat("a", maxContentLen) + `"}`)
	assert.True(t, rep.Truncated)
	assert.True(t, rep.NotJSON)
	assert.True(t, p.Empty())
}

func TestParsePatchThenMergeKeepsAnswer(t *testing.T) {
	c := condition.New()
	pending := &model.PendingQuestion{Scope: model.ScopeCommon, Key: model.KeyLocation}
	require.True(t, ApplyAnswer(&c, pending, "강남 근처, 주차 필요해"))

	p, _ := ParsePatch(`{"constraints":{"need_parking":true}}`)
	condition.Merge(&c, p)

	assert.Equal(t, "강남", c.LocationText())
	require.NotNil(t, c.Constraints.NeedParking)
	assert.True(t, *c.Constraints.NeedParking)
}
