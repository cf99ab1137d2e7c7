package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/decision-mate/server/internal/agent/graph/questions"
	"github.com/decision-mate/server/internal/agent/model"
)

//go:embed template/patch_prompt.txt
var patchSystemPrompt string

var patchSystem = renderPatchSystem(questions.Default())

// renderPatchSystem fills the enum lists once; the template contains JSON
// braces, so only known tokens are replaced.
func renderPatchSystem(tree *questions.Tree) string {
	return strings.NewReplacer(
		"{context_modes}", enumList(model.ModeNone, model.ModeCompanyDinner, model.ModeFriends, model.ModeGroup, model.ModeDating, model.ModeSolo, model.ModeFamily),
		"{budget_tiers}", enumList(model.BudgetNoPreference, model.BudgetValue, model.BudgetNormal, model.BudgetSpecial),
		"{place_types}", enumList(model.PlaceAuto, model.PlaceMeal, model.PlaceDrink, model.PlaceCafe),
		"{food_classes}", enumList(model.FoodAuto, model.FoodKorean, model.FoodChinese, model.FoodJapanese, model.FoodWestern),
		"{alcohol_levels}", enumList(model.AlcoholNone, model.AlcoholLight, model.AlcoholHeavy),
		"{alcohol_plans}", enumList(model.PlanSingleVenue, model.PlanSplit, model.PlanUnsure),
		"{alcohol_types}", enumList(model.DrinkSoju, model.DrinkBeer, model.DrinkWine, model.DrinkNoPreference),
		"{transports}", enumList(model.TransportCar, model.TransportTransit, model.TransportNoPreference),
		"{focus_priorities}", enumList(model.FocusConversation, model.FocusFood, model.FocusBalanced),
		"{stay_durations}", enumList(model.StayQuick, model.StayModerate, model.StayLong),
		"{walk_min}", strconv.Itoa(model.MinWalkLimitMinutes),
		"{walk_max}", strconv.Itoa(model.MaxWalkLimitMinutes),
		"{sens_min}", strconv.Itoa(model.MinSensitivityLevel),
		"{sens_max}", strconv.Itoa(model.MaxSensitivityLevel),
		"{mode_answers}", modeAnswerList(tree),
	).Replace(patchSystemPrompt)
}

func enumList[T ~string](values ...T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, " | ")
}

// modeAnswerList renders "key(v1|v2)" for every mode question, sorted by key.
func modeAnswerList(tree *questions.Tree) string {
	var parts []string
	for _, qs := range tree.Modes {
		for _, q := range qs {
			values := make([]string, 0, len(q.Rules))
			for _, r := range q.Rules {
				values = append(values, r.Value)
			}
			parts = append(parts, q.Key+"("+strings.Join(values, "|")+")")
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// RenderPatchMessages builds the patch extractor input: the system prompt,
// the current condition and the tagged conversation context. pending is the
// question already resolved this turn, if any.
func RenderPatchMessages(ctx context.Context, c model.Condition, conversation string, pending *model.PendingQuestion) ([]*schema.Message, error) {
	condJSON, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("patch prompt: marshal condition: %w", err)
	}

	userMsgs := []*schema.Message{schema.UserMessage("[기존 조건]\n" + string(condJSON))}
	if pending != nil {
		userMsgs = append(userMsgs, schema.UserMessage("[대기 중인 질문]\n"+pending.Key))
	}
	userMsgs = append(userMsgs, schema.UserMessage("[최신 발화]\n"+conversation))

	// Wrap via Eino prompt component using messages placeholders to emit callbacks
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
		schema.MessagesPlaceholder("user_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(patchSystem)},
		"user_messages":   userMsgs,
	})
	if err != nil {
		return nil, fmt.Errorf("patch prompt render: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("patch prompt render: empty result")
	}
	return msgs, nil
}
