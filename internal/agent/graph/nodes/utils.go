package nodes

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/decision-mate/server/internal/agent/graph/questions"
	"github.com/decision-mate/server/internal/agent/model"
)

const (
	DefaultMaxRankAttempts = 2

	defaultCenterLabel = "기준점"
	// walk captions above this are noise from far-away pool entries
	maxWalkCaptionMin = 180
)

// ===== Small helpers to keep handlers simple/readable =====
// normalizeMaxAttempts returns a sane default when the provided value is invalid.
func normalizeMaxAttempts(n int) int {
	if n <= 0 {
		return DefaultMaxRankAttempts
	}
	return n
}

func isAlcoholKey(key string) bool {
	switch key {
	case model.KeyAlcoholLevel, model.KeyAlcoholPlan, model.KeyAlcoholType:
		return true
	}
	return false
}

func messageContent(m *schema.Message) string {
	if m == nil {
		return ""
	}
	return m.Content
}

func pickIDs(picks []model.Pick) []string {
	ids := make([]string, 0, len(picks))
	for _, p := range picks {
		ids = append(ids, p.ID)
	}
	return ids
}

// preRecommendText announces the search query before the cards.
func preRecommendText(query string) string {
	return fmt.Sprintf("오케이ㅋㅋ **%s**로 바로 3곳 뽑아볼게 🔍", query)
}

// formatResults renders the pick cards as markdown.
func formatResults(msgs questions.Messages, query, centerName string, picks []model.Pick) string {
	if centerName == "" {
		centerName = defaultCenterLabel
	}

	var b strings.Builder
	b.WriteString(preRecommendText(query))
	b.WriteString("\n\n---\n")
	b.WriteString(msgs.ResultsLead)
	b.WriteString("\n")

	for i, pick := range picks {
		p := pick.Place
		b.WriteString("\n")
		if pick.Phase != "" {
			fmt.Fprintf(&b, "**[%s]**\n", pick.Phase)
		}
		fmt.Fprintf(&b, "### %d. %s\n", i+1, p.Name)
		if p.Category != "" {
			b.WriteString(p.Category + "\n")
		}
		if addr := p.DisplayAddress(); addr != "" {
			fmt.Fprintf(&b, "📍 %s\n", addr)
		}
		if p.WalkMin > 0 && p.WalkMin < maxWalkCaptionMin {
			fmt.Fprintf(&b, "🚶 %s 기준 도보 약 %d분\n", centerName, p.WalkMin)
		}
		if pick.SceneFeel != "" {
			b.WriteString("🧠 **이런 자리 느낌**\n")
			b.WriteString(pick.SceneFeel + "\n")
		}
		if pick.OneLine != "" {
			fmt.Fprintf(&b, "**%s**\n", pick.OneLine)
		}
		if len(pick.MatchedConditions) > 0 {
			quoted := make([]string, 0, len(pick.MatchedConditions))
			for _, m := range pick.MatchedConditions {
				quoted = append(quoted, "`"+m+"`")
			}
			fmt.Fprintf(&b, "**반영한 조건** %s\n", strings.Join(quoted, " · "))
		}
		if len(pick.Hashtags) > 0 {
			b.WriteString(strings.Join(pick.Hashtags, " ") + "\n")
		}
		if pick.Reason != "" {
			b.WriteString("**왜 여기냐면…**\n")
			b.WriteString(pick.Reason + "\n")
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "🔗 카카오맵에서 보기: %s\n", p.URL)
		}
	}

	if msgs.ResultsTail != "" {
		b.WriteString("\n")
		b.WriteString(msgs.ResultsTail)
	}
	return b.String()
}
