package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/decision-mate/server/internal/agent/graph"
	"github.com/decision-mate/server/internal/agent/model"
	"github.com/decision-mate/server/internal/agent/repo"
	"github.com/decision-mate/server/internal/agent/search"
	"github.com/decision-mate/server/internal/core"
	"github.com/decision-mate/server/pkg/kakao"
	logx "github.com/decision-mate/server/pkg/logger"
	pkgredis "github.com/decision-mate/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config
	Kakao kakao.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Patch   model.PatchModelConfig
	Rank    model.RankModelConfig
	Session model.SessionConfig
	Search  model.SearchConfig
}

func main() {
	ctx := context.Background()
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(envCfg.Environment),
		Level:       envCfg.LogLevel,
	})

	ttl, err := time.ParseDuration(envCfg.Session.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", envCfg.Session.TTL).Msg("Invalid SESSION_TTL")
	}

	// Session store: Redis when configured, otherwise in-process
	var sessions model.SessionRepository
	if envCfg.Redis.Enabled() {
		rdb := envCfg.Redis.MustNew()
		defer rdb.Close()
		sessions = repo.NewRedisSessionRepository(rdb, ttl)
		logx.Info().Msg("Connected to Redis successfully")
	} else {
		sessions = repo.NewMemorySessionRepository(envCfg.Session.CacheSize, ttl)
		logx.Info().Msg("REDIS_URL not set - using in-memory sessions")
	}

	kakaoClient, err := envCfg.Kakao.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Kakao client")
	}
	searcher, err := search.NewPipeline(kakaoClient, envCfg.Search)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise place search")
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		APIKey:      envCfg.APIKey,
		BaseURL:     envCfg.BaseURL,
		PatchModel:  envCfg.Patch,
		RankModel:   envCfg.Rank,
		Session:     envCfg.Session,
		SessionRepo: sessions,
		Searcher:    searcher,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	if err := chat(ctx, runner, os.Stdin); err != nil {
		logx.Fatal().Err(err).Msg("Chat loop failed")
	}
}

// chat runs a line-oriented conversation. "/reset" starts a new session.
func chat(ctx context.Context, runner *graph.Runner, in *os.File) error {
	sessionID := graph.NewSessionID()
	fmt.Printf("%s\n\n> ", runner.Greeting())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/reset":
			next, err := runner.Reset(ctx, sessionID)
			if err != nil {
				logx.Error().Err(err).Str("session_id", sessionID).Msg("Failed to reset session")
			} else {
				sessionID = next
				fmt.Printf("%s\n", runner.Greeting())
			}
		default:
			out, err := runner.Invoke(ctx, sessionID, line)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", out.Message)
			if out.CostUSD > 0 {
				logx.Debug().Str("session_id", sessionID).Float64("cost_usd", out.CostUSD).Msg("Turn cost")
			}
		}
		fmt.Print("\n> ")
	}
	return scanner.Err()
}
