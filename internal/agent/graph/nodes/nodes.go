package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/graph/conversations"
	"github.com/decision-mate/server/internal/agent/graph/parsers"
	"github.com/decision-mate/server/internal/agent/graph/prompts"
	"github.com/decision-mate/server/internal/agent/graph/questions"
	"github.com/decision-mate/server/internal/agent/model"
	logx "github.com/decision-mate/server/pkg/logger"
)

// Node names.
const (
	NodeIntentDetector     = "IntentDetector"
	NodeAnswerApplier      = "AnswerApplier"
	NodeReprompt           = "Reprompt"
	NodePatchAssembler     = "PatchAssembler"
	NodePatchChatModel     = "PatchChatModel"
	NodePatchMerger        = "PatchMerger"
	NodeQuestionSelector   = "QuestionSelector"
	NodeAskQuestion        = "AskQuestion"
	NodePlaceSearch        = "PlaceSearch"
	NodeNoResults          = "NoResults"
	NodeReaskLocation      = "ReaskLocation"
	NodeRankAssembler      = "RankAssembler"
	NodeRankChatModel      = "RankChatModel"
	NodeRankRetry          = "RankRetry"
	NodeRankRetryChatModel = "RankRetryChatModel"
	NodePickFinalizer      = "PickFinalizer"
)

// ================ Intake ================

// NewIntentDetectorPreHandler binds the turn input to the graph state.
func NewIntentDetectorPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		if in.Session == nil {
			return in, fmt.Errorf("turn input has no session")
		}
		in.Text = strings.TrimSpace(in.Text)
		s.Session = in.Session
		s.Text = in.Text
		// Reset accumulated total cost for each new turn
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewIntentDetectorNode scans the raw text for out-of-band intents and
// applies the latches they imply. No-alcohol is honoured on any turn.
func NewIntentDetectorNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Intents = parsers.DetectIntents(s.Text)
			c := &s.Session.Condition
			if s.Intents.Fast {
				condition.SetFastMode(c)
			}
			if s.Intents.Expand {
				condition.RaiseSearchRelax(c)
			}
			if s.Intents.NoAlcohol {
				condition.SetAlcoholLevel(c, model.AlcoholNone)
			}
			logx.Debug().
				Str("session_id", s.Session.ID).
				Str("node", NodeIntentDetector).
				Interface("intents", s.Intents).
				Msg("Intents detected")
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// NewAnswerApplierNode resolves the pending question. A failed parse keeps
// the question pending unless the turn carries the fast intent, in which
// case the question is dropped and the selector decides.
func NewAnswerApplierNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			p := s.Session.Pending
			if p == nil {
				return nil
			}
			log := logx.Debug().
				Str("session_id", s.Session.ID).
				Str("node", NodeAnswerApplier).
				Str("pending_key", p.Key)

			// the skip phrase itself is never an answer
			text := s.Text
			if s.Intents.Fast {
				text = parsers.StripFastKeywords(text)
			}

			switch {
			case text != "" && parsers.ApplyAnswer(&s.Session.Condition, p, text):
				log.Msg("Pending question answered")
			case s.Intents.NoAlcohol && isAlcoholKey(p.Key):
				log.Msg("Pending alcohol question resolved by no-alcohol intent")
			case s.Intents.Fast:
				log.Msg("Pending question dropped by fast intent")
			default:
				s.AnswerFailed = true
				log.Msg("Pending question not answered - reprompting")
				return nil
			}
			s.Answered = p
			s.Session.Pending = nil
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// NewAnswerCondition routes after the answer step: reprompt on a failed
// parse, skip patch extraction in fast mode, otherwise extract a patch.
func NewAnswerCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var failed, fast bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			failed = s.AnswerFailed
			fast = s.Intents.Fast
			return nil
		})
		if err != nil {
			return "", err
		}
		switch {
		case failed:
			return NodeReprompt, nil
		case fast:
			logx.Debug().Msg("Fast intent - skipping patch extraction")
			return NodeQuestionSelector, nil
		default:
			return NodePatchAssembler, nil
		}
	}
}

// NewRepromptNode re-emits the pending question with a softer lead-in.
func NewRepromptNode(tree *questions.Tree) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.TurnInput) (*model.TurnOutput, error) {
		var out *model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			p := s.Session.Pending
			if p == nil {
				return fmt.Errorf("reprompt without a pending question")
			}
			out = &model.TurnOutput{
				Kind:     model.TurnReprompt,
				Message:  tree.Messages.RepromptLead + p.Text,
				Question: p,
				CostUSD:  s.TotalCostUSD,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// ================ Patch extraction ================

// NewPatchAssemblerNode builds the patch extractor prompt from the current
// condition and recent transcript.
func NewPatchAssemblerNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) ([]*schema.Message, error) {
		var (
			sessionID string
			cond      model.Condition
			answered  *model.PendingQuestion
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			sessionID = s.Session.ID
			cond = condition.Clone(s.Session.Condition)
			answered = s.Answered
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		conversationCtx, err := mm.BuildPatchContext(ctx, sessionID, in.Text)
		if err != nil {
			return nil, fmt.Errorf("build patch context: %w", err)
		}

		// Render via Eino prompt component (enables prompt callbacks)
		messages, err := prompts.RenderPatchMessages(ctx, cond, conversationCtx, answered)
		if err != nil {
			return nil, fmt.Errorf("render patch prompt: %w", err)
		}
		return messages, nil
	})
}

// NewChatModelCostPostHandler computes and logs usage cost for a model node.
func NewChatModelCostPostHandler(node, modelName string) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		recordUsage(node, modelName, out, state)
		return out, nil
	}
}

func recordUsage(node, modelName string, out *schema.Message, state *model.TurnState) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(usage, pricing)
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	sessionID := ""
	if state.Session != nil {
		sessionID = state.Session.ID
	}
	logx.Debug().
		Str("session_id", sessionID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	// Accumulate only total cost into state
	state.TotalCostUSD += totalC
	// Also expose running total in the message Extra for visibility
	out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
}

// NewPatchMergerNode decodes the extractor reply and merges it. Malformed
// output becomes an empty patch; the turn goes on.
func NewPatchMergerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.TurnInput, error) {
		patch, report := parsers.ParsePatch(messageContent(resp))

		var in model.TurnInput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if !report.Clean() {
				logx.Warn().
					Str("session_id", s.Session.ID).
					Str("node", NodePatchMerger).
					Bool("not_json", report.NotJSON).
					Bool("truncated", report.Truncated).
					Strs("dropped", report.Dropped).
					Strs("errors", report.Errors).
					Msg("Patch output partially rejected")
			}
			condition.Merge(&s.Session.Condition, patch)
			s.Intents.Diversify = s.Intents.Diversify || patch.Diversify
			s.Intents.ExcludeLast = s.Intents.ExcludeLast || patch.ExcludeLast
			in = model.TurnInput{Session: s.Session, Text: s.Text}
			return nil
		})
		if err != nil {
			return model.TurnInput{}, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// ================ Question selection ================

// NewQuestionSelectorNode normalizes the condition and picks the next
// question, if any.
func NewQuestionSelectorNode(tree *questions.Tree) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			c := &s.Session.Condition
			condition.Normalize(c)
			s.Next = tree.Next(*c)
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

func NewQuestionCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var next *model.PendingQuestion
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			next = s.Next
			return nil
		})
		if err != nil {
			return "", err
		}
		if next != nil {
			logx.Debug().Str("pending_key", next.Key).Msg("Routing to AskQuestion")
			return NodeAskQuestion, nil
		}
		logx.Debug().Msg("No open question - routing to PlaceSearch")
		return NodePlaceSearch, nil
	}
}

// NewAskQuestionNode stores the selected question as pending and emits it.
func NewAskQuestionNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.TurnInput) (*model.TurnOutput, error) {
		var out *model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Session.Pending = s.Next
			out = &model.TurnOutput{
				Kind:     model.TurnQuestion,
				Message:  s.Next.Text,
				Question: s.Next,
				CostUSD:  s.TotalCostUSD,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// ================ Search ================

// NewPlaceSearchNode runs the search phase against a copy of the condition
// and writes the raised relax level and center name back. Transport errors
// abort the turn.
func NewPlaceSearchNode(searcher model.PlaceSearcher) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.TurnInput) (*model.SearchResult, error) {
		var (
			sessionID string
			cond      model.Condition
			opts      model.SearchOptions
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			sessionID = s.Session.ID
			cond = condition.Clone(s.Session.Condition)
			if s.Intents.Diversify || s.Intents.ExcludeLast {
				opts.ExcludeIDs = append([]string(nil), s.Session.LastPickIDs...)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		res, err := searcher.Search(ctx, &cond, opts)
		if errors.Is(err, model.ErrNoLocation) {
			logx.Warn().Str("session_id", sessionID).Str("node", NodePlaceSearch).Msg("Search reached without a location - asking again")
			return &model.SearchResult{MissingLocation: true}, nil
		}
		if err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Str("node", NodePlaceSearch).Msg("Place search failed")
			return nil, fmt.Errorf("place search: %w", err)
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Session.Condition = cond
			s.Search = res
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return res, nil
	})
}

func NewSearchCondition() func(context.Context, *model.SearchResult) (string, error) {
	return func(ctx context.Context, res *model.SearchResult) (string, error) {
		if res != nil && res.MissingLocation {
			return NodeReaskLocation, nil
		}
		if res == nil || len(res.Candidates) == 0 {
			logx.Debug().Msg("Empty candidate pool - routing to NoResults")
			return NodeNoResults, nil
		}
		return NodeRankAssembler, nil
	}
}

func NewNoResultsNode(tree *questions.Tree) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, res *model.SearchResult) (*model.TurnOutput, error) {
		out := &model.TurnOutput{Kind: model.TurnNoResults, Message: tree.Messages.NoResults}
		if res != nil {
			out.Query = res.Query
		}
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			out.CostUSD = s.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// NewReaskLocationNode turns a search without a location back into the
// location question.
func NewReaskLocationNode(tree *questions.Tree) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *model.SearchResult) (*model.TurnOutput, error) {
		var out *model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			q := tree.Pending(model.KeyLocation)
			s.Next = q
			s.Session.Pending = q
			out = &model.TurnOutput{
				Kind:     model.TurnQuestion,
				Message:  q.Text,
				Question: q,
				CostUSD:  s.TotalCostUSD,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// ================ Ranking ================

// NewRankAssemblerNode renders the ranking prompt and seeds the rank history.
func NewRankAssemblerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, res *model.SearchResult) ([]*schema.Message, error) {
		var cond model.Condition
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			cond = condition.Clone(s.Session.Condition)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		messages, err := prompts.RenderRankMessages(ctx, cond, res.Candidates)
		if err != nil {
			return nil, fmt.Errorf("render rank prompt: %w", err)
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.RankHistory = append([]*schema.Message(nil), messages...)
			s.RankAttempts = 0
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return messages, nil
	})
}

// NewRankChatModelPostHandler records usage and the reply in the rank history.
func NewRankChatModelPostHandler(node, modelName string) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		recordUsage(node, modelName, out, state)
		state.RankAttempts++
		if out != nil {
			state.RankHistory = append(state.RankHistory, out)
		}
		return out, nil
	}
}

// NewRankCondition retries only when the reply ignored the picks schema and
// attempts remain; everything else is finalized with padding.
func NewRankCondition(maxAttempts int) func(context.Context, *schema.Message) (string, error) {
	maxAttempts = normalizeMaxAttempts(maxAttempts)
	return func(ctx context.Context, out *schema.Message) (string, error) {
		var (
			attempts   int
			split      bool
			candidates []model.Place
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			attempts = s.RankAttempts
			split = s.Session.Condition.Meta.Common.SplitRounds()
			if s.Search != nil {
				candidates = s.Search.Candidates
			}
			return nil
		})
		if err != nil {
			return "", err
		}

		_, perr := parsers.ParsePicks(messageContent(out), candidates, split)
		if errors.Is(perr, parsers.ErrMalformedPicks) && attempts < maxAttempts {
			logx.Warn().Int("rank_attempts", attempts).Int("max_attempts", maxAttempts).
				Msg("Ranking output malformed - retrying")
			return NodeRankRetry, nil
		}
		return NodePickFinalizer, nil
	}
}

// NewRankRetryNode appends the schema correction to the rank history.
func NewRankRetryNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) ([]*schema.Message, error) {
		var history []*schema.Message
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.RankHistory = append(s.RankHistory, schema.UserMessage(prompts.RankRetryMessage))
			history = append([]*schema.Message(nil), s.RankHistory...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return history, nil
	})
}

// NewPickFinalizerNode decodes the picks, pads them to three and renders
// the result cards. The shown ids are remembered for exclude/diversify.
func NewPickFinalizerNode(tree *questions.Tree) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.TurnOutput, error) {
		var out *model.TurnOutput
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if s.Search == nil {
				return fmt.Errorf("missing search result in state")
			}
			c := s.Session.Condition
			split := c.Meta.Common.SplitRounds()

			picks, err := parsers.ParsePicks(messageContent(resp), s.Search.Candidates, split)
			if err != nil {
				logx.Warn().Err(err).
					Str("session_id", s.Session.ID).
					Str("node", NodePickFinalizer).
					Int("rank_attempts", s.RankAttempts).
					Msg("Using fallback picks")
			}
			picks = parsers.PadPicks(picks, s.Search.Candidates, split)
			s.Session.LastPickIDs = pickIDs(picks)

			out = &model.TurnOutput{
				Kind:    model.TurnResults,
				Message: formatResults(tree.Messages, s.Search.Query, c.Meta.Common.CenterName, picks),
				Picks:   picks,
				Query:   s.Search.Query,
				Center:  c.Meta.Common.CenterName,
				CostUSD: s.TotalCostUSD,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}
