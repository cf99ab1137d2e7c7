package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/decision-mate/server/internal/agent/model"
	logx "github.com/decision-mate/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	PatchConfig *model.PatchModelConfig
	RankConfig  *model.RankModelConfig
}

// ChatModels holds the patch extractor and the ranker models. RankRetry is
// the ranker at the lower correction temperature.
type ChatModels struct {
	Patch          einomodel.BaseChatModel
	Rank           einomodel.BaseChatModel
	RankRetry      einomodel.BaseChatModel
	PatchModelName string
	RankModelName  string
}

// NewChatModels creates the Gemini chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.PatchConfig == nil || config.RankConfig == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Patch extraction is short JSON; no thinking budget
	patchModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.PatchConfig.Model,
		Temperature: &config.PatchConfig.Temperature,
		MaxTokens:   &config.PatchConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating patch model")
		return nil, fmt.Errorf("error creating patch model: %w", err)
	}

	rankModel, err := newRankModel(ctx, client, config.RankConfig, config.RankConfig.Temperature)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating rank model")
		return nil, fmt.Errorf("error creating rank model: %w", err)
	}

	retryModel, err := newRankModel(ctx, client, config.RankConfig, config.RankConfig.RetryTemperature)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating rank retry model")
		return nil, fmt.Errorf("error creating rank retry model: %w", err)
	}

	return &ChatModels{
		Patch:          patchModel,
		Rank:           rankModel,
		RankRetry:      retryModel,
		PatchModelName: config.PatchConfig.Model,
		RankModelName:  config.RankConfig.Model,
	}, nil
}

func newRankModel(ctx context.Context, client *genai.Client, cfg *model.RankModelConfig, temperature float32) (*gemini.ChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &cfg.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
}
