package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/decision-mate/server/internal/agent/condition"
	"github.com/decision-mate/server/internal/agent/graph/conversations"
	"github.com/decision-mate/server/internal/agent/graph/nodes"
	"github.com/decision-mate/server/internal/agent/graph/observers"
	"github.com/decision-mate/server/internal/agent/graph/questions"
	"github.com/decision-mate/server/internal/agent/model"
	logx "github.com/decision-mate/server/pkg/logger"
)

// Config holds everything needed to compose the turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels and MessagesManager.
type Config struct {
	APIKey      string
	BaseURL     string
	PatchModel  model.PatchModelConfig
	RankModel   model.RankModelConfig
	Session     model.SessionConfig
	SessionRepo model.SessionRepository
	Searcher    model.PlaceSearcher
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	Searcher        model.PlaceSearcher
	Questions       *questions.Tree
	RankMaxAttempts int
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnOutput]
}

// Runner executes one turn per call against an explicitly stored session.
// The session is copied before the graph runs and committed only when the
// turn finishes without a collaborator error.
type Runner struct {
	runnable compose.Runnable[model.TurnInput, *model.TurnOutput]
	repo     model.SessionRepository
	mm       *conversations.MessagesManager
	tree     *questions.Tree
	now      func() time.Time
}

// NewRunner wires a compiled graph to its session store.
func NewRunner(runnable compose.Runnable[model.TurnInput, *model.TurnOutput], repo model.SessionRepository, mm *conversations.MessagesManager, tree *questions.Tree) *Runner {
	if tree == nil {
		tree = questions.Default()
	}
	return &Runner{runnable: runnable, repo: repo, mm: mm, tree: tree, now: time.Now}
}

// NewSessionID returns a fresh session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Greeting is the assistant's opening line for a new session.
func (r *Runner) Greeting() string {
	return r.tree.Messages.Greeting
}

// Invoke runs one turn. Collaborator failures come back as an apology turn
// with the stored session untouched; only an invalid call is an error.
func (r *Runner) Invoke(ctx context.Context, sessionID string, text string) (*model.TurnOutput, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is empty")
	}
	log := logx.Session(sessionID)

	stored, err := r.repo.LoadSession(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session")
		return r.apology(), nil
	}
	if stored == nil {
		now := r.now().UTC()
		stored = &model.Session{ID: sessionID, Condition: condition.New(), CreatedAt: now, UpdatedAt: now}
	}
	working := cloneSession(stored)

	out, err := r.runnable.Invoke(ctx, model.TurnInput{Session: working, Text: text},
		compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		log.Error().Err(err).Msg("Turn aborted by collaborator failure")
		return r.apology(), nil
	}
	if out == nil {
		log.Error().Msg("Turn produced no output")
		return r.apology(), nil
	}

	working.UpdatedAt = r.now().UTC()
	if err := r.repo.SaveSession(ctx, working); err != nil {
		log.Error().Err(err).Msg("Failed to commit session")
		return r.apology(), nil
	}
	if err := r.mm.SaveTurn(ctx, sessionID, strings.TrimSpace(text), out.Message); err != nil {
		// the condition is already committed; a missing transcript line only
		// shortens the patch extractor's context
		log.Warn().Err(err).Msg("Failed to append transcript")
	}

	log.Debug().
		Str("kind", string(out.Kind)).
		Float64("turn_cost_usd", out.CostUSD).
		Msg("Turn completed")
	return out, nil
}

// Reset drops the session and returns a fresh id.
func (r *Runner) Reset(ctx context.Context, sessionID string) (string, error) {
	if sessionID != "" {
		if err := r.repo.DeleteSession(ctx, sessionID); err != nil {
			return "", fmt.Errorf("reset session: %w", err)
		}
	}
	return NewSessionID(), nil
}

func (r *Runner) apology() *model.TurnOutput {
	return &model.TurnOutput{Kind: model.TurnApology, Message: r.tree.Messages.Apology}
}

// cloneSession deep-copies the parts of a session a turn can mutate.
func cloneSession(s *model.Session) *model.Session {
	cp := *s
	cp.Condition = condition.Clone(s.Condition)
	if s.Pending != nil {
		p := *s.Pending
		cp.Pending = &p
	}
	cp.LastPickIDs = append([]string(nil), s.LastPickIDs...)
	return &cp
}

// BuildTurnGraph composes ChatModels, MessagesManager, builds the graph, and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.SessionRepo == nil {
		return nil, fmt.Errorf("session repo is nil")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("place searcher is nil")
	}

	// Create chat models
	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		PatchConfig: &cfg.PatchModel,
		RankConfig:  &cfg.RankModel,
	})
	if err != nil {
		return nil, err
	}

	// Create messages manager
	mm := conversations.NewMessagesManager(cfg.SessionRepo, cfg.Session)
	tree := questions.Default()

	// Build runnable graph
	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: mm,
		Searcher:        cfg.Searcher,
		Questions:       tree,
		RankMaxAttempts: cfg.Session.Rank.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return NewRunner(runnable, cfg.SessionRepo, mm, tree), nil
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	// Basic config validation
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	cms := config.ChatModels
	if cms == nil || cms.Patch == nil || cms.Rank == nil || cms.RankRetry == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Searcher == nil {
		return nil, fmt.Errorf("place searcher is nil")
	}
	if config.Questions == nil {
		config.Questions = questions.Default()
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cfg := b.config
	cms := cfg.ChatModels
	tree := cfg.Questions

	steps := []struct {
		name string
		add  func(string) error
	}{
		{nodes.NodeIntentDetector, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewIntentDetectorNode(),
				compose.WithStatePreHandler(nodes.NewIntentDetectorPreHandler()))
		}},
		{nodes.NodeAnswerApplier, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewAnswerApplierNode())
		}},
		{nodes.NodeReprompt, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewRepromptNode(tree))
		}},
		{nodes.NodePatchAssembler, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewPatchAssemblerNode(cfg.MessagesManager))
		}},
		{nodes.NodePatchChatModel, func(n string) error {
			return b.graph.AddChatModelNode(n, cms.Patch,
				compose.WithStatePostHandler(nodes.NewChatModelCostPostHandler(n, cms.PatchModelName)))
		}},
		{nodes.NodePatchMerger, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewPatchMergerNode())
		}},
		{nodes.NodeQuestionSelector, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewQuestionSelectorNode(tree))
		}},
		{nodes.NodeAskQuestion, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewAskQuestionNode())
		}},
		{nodes.NodePlaceSearch, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewPlaceSearchNode(cfg.Searcher))
		}},
		{nodes.NodeNoResults, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewNoResultsNode(tree))
		}},
		{nodes.NodeReaskLocation, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewReaskLocationNode(tree))
		}},
		{nodes.NodeRankAssembler, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewRankAssemblerNode())
		}},
		{nodes.NodeRankChatModel, func(n string) error {
			return b.graph.AddChatModelNode(n, cms.Rank,
				compose.WithStatePostHandler(nodes.NewRankChatModelPostHandler(n, cms.RankModelName)))
		}},
		{nodes.NodeRankRetry, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewRankRetryNode())
		}},
		{nodes.NodeRankRetryChatModel, func(n string) error {
			return b.graph.AddChatModelNode(n, cms.RankRetry,
				compose.WithStatePostHandler(nodes.NewRankChatModelPostHandler(n, cms.RankModelName)))
		}},
		{nodes.NodePickFinalizer, func(n string) error {
			return b.graph.AddLambdaNode(n, nodes.NewPickFinalizerNode(tree))
		}},
	}

	for _, s := range steps {
		if err := s.add(s.name); err != nil {
			logx.Error().Err(err).Str("node", s.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.name, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeIntentDetector},
		{nodes.NodeIntentDetector, nodes.NodeAnswerApplier},
		{nodes.NodeReprompt, compose.END},
		{nodes.NodePatchAssembler, nodes.NodePatchChatModel},
		{nodes.NodePatchChatModel, nodes.NodePatchMerger},
		{nodes.NodePatchMerger, nodes.NodeQuestionSelector},
		{nodes.NodeAskQuestion, compose.END},
		{nodes.NodeNoResults, compose.END},
		{nodes.NodeReaskLocation, compose.END},
		{nodes.NodeRankAssembler, nodes.NodeRankChatModel},
		{nodes.NodeRankRetry, nodes.NodeRankRetryChatModel},
		{nodes.NodePickFinalizer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	answerBranch := compose.NewGraphBranch(
		nodes.NewAnswerCondition(),
		map[string]bool{
			nodes.NodeReprompt:         true,
			nodes.NodePatchAssembler:   true,
			nodes.NodeQuestionSelector: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAnswerApplier, answerBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding answer branch")
		return fmt.Errorf("error adding answer branch: %w", err)
	}

	questionBranch := compose.NewGraphBranch(
		nodes.NewQuestionCondition(),
		map[string]bool{
			nodes.NodeAskQuestion: true,
			nodes.NodePlaceSearch: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeQuestionSelector, questionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding question branch")
		return fmt.Errorf("error adding question branch: %w", err)
	}

	searchBranch := compose.NewGraphBranch(
		nodes.NewSearchCondition(),
		map[string]bool{
			nodes.NodeNoResults:     true,
			nodes.NodeReaskLocation: true,
			nodes.NodeRankAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodePlaceSearch, searchBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding search branch")
		return fmt.Errorf("error adding search branch: %w", err)
	}

	// both rank model nodes share the retry decision
	for _, from := range []string{nodes.NodeRankChatModel, nodes.NodeRankRetryChatModel} {
		rankBranch := compose.NewGraphBranch(
			nodes.NewRankCondition(b.config.RankMaxAttempts),
			map[string]bool{
				nodes.NodeRankRetry:     true,
				nodes.NodePickFinalizer: true,
			},
		)
		if err := b.graph.AddBranch(from, rankBranch); err != nil {
			logx.Error().Err(err).Str("node", from).Msg("Error adding rank branch")
			return fmt.Errorf("error adding rank branch: %w", err)
		}
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	// Limit total run steps; the only loop is the rank retry
	maxSteps := 12 + 2*b.config.RankMaxAttempts
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
