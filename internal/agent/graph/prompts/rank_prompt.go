package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/decision-mate/server/internal/agent/model"
)

//go:embed template/rank_prompt.txt
var rankSystemPrompt string

const rankUserPrompt = "[사용자 조건]\n{{.Conditions}}\n\n[후보 목록]\n{{.Candidates}}"

// RankRetryMessage is appended when the ranker ignored the output schema.
const RankRetryMessage = "방금 출력이 스키마를 안 지켰어. JSON만 다시 출력해."

type rankCandidate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Address   string `json:"address"`
	URL       string `json:"url"`
	WalkMin   int    `json:"walk_min,omitempty"`
	DistanceM int    `json:"distance_m,omitempty"`
}

// RenderRankMessages renders the ranking prompt for the candidate list.
func RenderRankMessages(ctx context.Context, c model.Condition, candidates []model.Place) ([]*schema.Message, error) {
	condJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rank prompt: marshal condition: %w", err)
	}

	compact := make([]rankCandidate, 0, len(candidates))
	for _, p := range candidates {
		compact = append(compact, rankCandidate{
			ID:        p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Address:   p.DisplayAddress(),
			URL:       p.URL,
			WalkMin:   p.WalkMin,
			DistanceM: int(math.Round(p.DistanceM)),
		})
	}
	candJSON, err := json.Marshal(compact)
	if err != nil {
		return nil, fmt.Errorf("rank prompt: marshal candidates: %w", err)
	}

	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(rankSystemPrompt),
		schema.UserMessage(rankUserPrompt),
	)
	vars := map[string]any{
		"Split":      c.Meta.Common.SplitRounds(),
		"CannotEat":  strings.Join(c.Constraints.CannotEat, ", "),
		"Conditions": string(condJSON),
		"Candidates": string(candJSON),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("rank prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("rank prompt render: empty result")
	}
	return msgs, nil
}
