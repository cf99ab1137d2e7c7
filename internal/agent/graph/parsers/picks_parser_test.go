package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decision-mate/server/internal/agent/model"
)

func candidates(ids ...string) []model.Place {
	out := make([]model.Place, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Place{ID: id, Name: "place-" + id})
	}
	return out
}

func pickIDs(picks []model.Pick) []string {
	out := make([]string, 0, len(picks))
	for _, p := range picks {
		out = append(out, p.ID)
	}
	return out
}

func TestParsePicksKeepsKnownUniqueIDs(t *testing.T) {
	content := `{"picks":[
		{"id":"b","scene_feel":"조용한 분위기","one_line":"무난","hashtags":["조용", "#데이트", " ", "#조용"],"matched_conditions":[" 근처 ",""],"reason":"가까움"},
		{"id":"zzz","reason":"not a candidate"},
		{"id":"b","reason":"duplicate"},
		{"id":42,"reason":"numeric id"},
		{"id":"a"},
		{"id":"c"}
	]}`
	picks, err := ParsePicks(content, candidates("a", "b", "c", "42"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "42", "a"}, pickIDs(picks))
	assert.Equal(t, []string{"#조용", "#데이트"}, picks[0].Hashtags)
	assert.Equal(t, []string{"근처"}, picks[0].MatchedConditions)
	assert.Equal(t, "place-b", picks[0].Place.Name)
	assert.Empty(t, picks[0].Phase)
	assert.False(t, picks[0].Fallback)
}

func TestParsePicksMalformed(t *testing.T) {
	for _, in := range []string{"", "추천 못하겠어", `{"items":[]}`, `{"picks":"a,b"}`} {
		_, err := ParsePicks(in, candidates("a"), false)
		assert.ErrorIs(t, err, ErrMalformedPicks, in)
	}
}

func TestParsePicksPhasesOnlyInSplitMode(t *testing.T) {
	content := "```json\n{\"picks\":[{\"id\":\"a\",\"phase\":\"1차\"},{\"id\":\"b\",\"phase\":\"3차\"}]}\n```"

	picks, err := ParsePicks(content, candidates("a", "b"), true)
	require.NoError(t, err)
	assert.Equal(t, PhaseFirst, picks[0].Phase)
	assert.Empty(t, picks[1].Phase)

	picks, err = ParsePicks(content, candidates("a", "b"), false)
	require.NoError(t, err)
	assert.Empty(t, picks[0].Phase)
}

func TestFallbackPicks(t *testing.T) {
	picks := FallbackPicks(candidates("a", "", "b", "c", "d"), 2, map[string]bool{"a": true})

	assert.Equal(t, []string{"b", "c"}, pickIDs(picks))
	for _, p := range picks {
		assert.True(t, p.Fallback)
		assert.NotEmpty(t, p.Hashtags)
		assert.NotEmpty(t, p.Reason)
	}
}

func TestPadPicksFillsFromCandidateOrder(t *testing.T) {
	cands := candidates("a", "b", "c", "d")
	parsed, err := ParsePicks(`{"picks":[{"id":"c"}]}`, cands, false)
	require.NoError(t, err)

	picks := PadPicks(parsed, cands, false)
	assert.Equal(t, []string{"c", "a", "b"}, pickIDs(picks))
	assert.False(t, picks[0].Fallback)
	assert.True(t, picks[1].Fallback)
}

func TestPadPicksFewCandidates(t *testing.T) {
	picks := PadPicks(nil, candidates("a", "b"), false)
	assert.Equal(t, []string{"a", "b"}, pickIDs(picks))
}

func TestPadPicksAssignsSplitPhases(t *testing.T) {
	cands := candidates("a", "b", "c")
	parsed := []model.Pick{{ID: "c", Phase: PhaseSecond, Place: cands[2]}}

	picks := PadPicks(parsed, cands, true)
	require.Len(t, picks, PickCount)
	assert.Equal(t, []string{PhaseSecond, PhaseFirst, PhaseFirst}, []string{picks[0].Phase, picks[1].Phase, picks[2].Phase})

	picks = PadPicks(nil, cands, true)
	assert.Equal(t, []string{PhaseFirst, PhaseFirst, PhaseSecond}, []string{picks[0].Phase, picks[1].Phase, picks[2].Phase})
}

func TestMalformedRankingStillYieldsThreePicks(t *testing.T) {
	cands := candidates("a", "b", "c", "d", "e")
	_, err := ParsePicks("sorry", cands, false)
	require.ErrorIs(t, err, ErrMalformedPicks)

	picks := PadPicks(nil, cands, false)
	assert.Equal(t, []string{"a", "b", "c"}, pickIDs(picks))
}
