package model

import (
	"github.com/cloudwego/eino/schema"
)

// TurnState stores per-turn state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen inside Eino state handlers or compose.ProcessState,
//     which serialize access, so no extra locking is needed.
//   - Session points at the runner's working copy; the runner commits it only
//     when the turn completes without a collaborator error.
type TurnState struct {
	Session *Session
	Text    string

	Intents TurnIntents

	// AnswerFailed is set when the pending question could not be parsed and
	// the driver must re-ask it.
	AnswerFailed bool
	// Answered is the pending question resolved this turn, if any.
	Answered *PendingQuestion

	Next *PendingQuestion

	Search       *SearchResult
	RankHistory  []*schema.Message
	RankAttempts int

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnIntents are the out-of-band signals detected for one turn.
type TurnIntents struct {
	Fast        bool `json:"fast"`
	Expand      bool `json:"expand"`
	ExcludeLast bool `json:"exclude_last"`
	Diversify   bool `json:"diversify"`
	NoAlcohol   bool `json:"no_alcohol"`
}

// SearchResult is what the place search phase hands to ranking.
type SearchResult struct {
	Query      string    `json:"query"`
	Kind       PlaceKind `json:"kind"`
	Center     *Center   `json:"center,omitempty"`
	PoolSize   int       `json:"pool_size"`
	Candidates []Place   `json:"candidates"`

	// MissingLocation marks a search that never ran for lack of a location.
	MissingLocation bool `json:"-"`
}

// TurnInput is the graph input for one user utterance.
type TurnInput struct {
	Session *Session `json:"-"`
	Text    string   `json:"text"`
}

type TurnKind string

const (
	TurnQuestion  TurnKind = "question"
	TurnReprompt  TurnKind = "reprompt"
	TurnResults   TurnKind = "results"
	TurnNoResults TurnKind = "no_results"
	TurnApology   TurnKind = "apology"
)

// TurnOutput is what one turn shows the user.
type TurnOutput struct {
	Kind     TurnKind         `json:"kind"`
	Message  string           `json:"message"`
	Question *PendingQuestion `json:"question,omitempty"`
	Picks    []Pick           `json:"picks,omitempty"`
	Query    string           `json:"query,omitempty"`
	Center   string           `json:"center,omitempty"`
	CostUSD  float64          `json:"cost_usd,omitempty"`
}
