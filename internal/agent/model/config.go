package model

// ================ Config ================
type SessionConfig struct {
	TTL   string `envconfig:"SESSION_TTL" default:"30m"`
	Patch struct {
		MaxTurns int `envconfig:"SESSION_PATCH_MAX_TURNS" default:"6"`
	}
	Rank struct {
		MaxAttempts int `envconfig:"SESSION_RANK_MAX_ATTEMPTS" default:"2"`
	}
	CacheSize int `envconfig:"SESSION_CACHE_SIZE" default:"1024"`
}

type PatchModelConfig struct {
	Model       string  `envconfig:"PATCH_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"PATCH_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"PATCH_TEMPERATURE" default:"0.2"`
}

type RankModelConfig struct {
	Model       string  `envconfig:"RANK_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RANK_MAX_TOKENS" default:"4096"`
	Temperature float32 `envconfig:"RANK_TEMPERATURE" default:"0.35"`
	// RetryTemperature drives the schema-correction call after malformed output.
	RetryTemperature float32 `envconfig:"RANK_RETRY_TEMPERATURE" default:"0.1"`
}

type SearchConfig struct {
	PageSize        int `envconfig:"SEARCH_PAGE_SIZE" default:"15"`
	MaxPages        int `envconfig:"SEARCH_MAX_PAGES" default:"3"`
	CandidateLimit  int `envconfig:"SEARCH_CANDIDATE_LIMIT" default:"25"`
	CenterCacheSize int `envconfig:"SEARCH_CENTER_CACHE_SIZE" default:"256"`
}
