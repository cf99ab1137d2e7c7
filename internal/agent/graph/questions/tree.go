package questions

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decision-mate/server/internal/agent/model"
)

//go:embed questions.yaml
var questionsYAML []byte

// Rule maps any of its keywords (substring match) to an enumerated value.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Value    string   `yaml:"value"`
}

// Question is one prompt in the tree. Rules are only used by mode questions.
type Question struct {
	Key   string           `yaml:"key"`
	Text  string           `yaml:"text"`
	Type  model.AnswerType `yaml:"type"`
	Rules []Rule           `yaml:"rules"`
}

// Messages are the fixed assistant texts.
type Messages struct {
	Greeting     string `yaml:"greeting"`
	RepromptLead string `yaml:"reprompt_lead"`
	NoResults    string `yaml:"no_results"`
	ResultsLead  string `yaml:"results_lead"`
	ResultsTail  string `yaml:"results_tail"`
	Apology      string `yaml:"apology"`
}

// Tree is the parsed question tree.
type Tree struct {
	Common   map[string]Question              `yaml:"common"`
	Modes    map[model.ContextMode][]Question `yaml:"modes"`
	Messages Messages                         `yaml:"messages"`
}

var commonKeys = []string{
	model.KeyLocation,
	model.KeyCannotEat,
	model.KeyAlcoholLevel,
	model.KeyTransport,
	model.KeyWalkLimit,
	model.KeySensitivity,
	model.KeyFocus,
	model.KeyAlcoholPlan,
	model.KeyAlcoholType,
}

var defaultTree = mustLoad(questionsYAML)

// Default returns the embedded question tree.
func Default() *Tree {
	return defaultTree
}

// Load parses and validates a question tree document.
func Load(data []byte) (*Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse question tree: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func mustLoad(data []byte) *Tree {
	t, err := Load(data)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) validate() error {
	for _, k := range commonKeys {
		q, ok := t.Common[k]
		if !ok || strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question tree: common question %q missing", k)
		}
	}
	for mode, qs := range t.Modes {
		if !mode.Valid() || mode == model.ModeNone {
			return fmt.Errorf("question tree: unknown mode %q", mode)
		}
		seen := map[string]bool{}
		for i, q := range qs {
			if q.Key == "" || strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("question tree: mode %q question %d incomplete", mode, i)
			}
			if seen[q.Key] {
				return fmt.Errorf("question tree: mode %q duplicate key %q", mode, q.Key)
			}
			seen[q.Key] = true
			if len(q.Rules) == 0 {
				return fmt.Errorf("question tree: mode question %q has no rules", q.Key)
			}
			for _, r := range q.Rules {
				if r.Value == "" || len(r.Keywords) == 0 {
					return fmt.Errorf("question tree: mode question %q has an empty rule", q.Key)
				}
			}
		}
	}
	return nil
}

// Pending builds the pending question for a common slot.
func (t *Tree) Pending(key string) *model.PendingQuestion {
	q, ok := t.Common[key]
	if !ok {
		return nil
	}
	typ := q.Type
	if typ == "" {
		typ = model.AnswerFree
	}
	return &model.PendingQuestion{Scope: model.ScopeCommon, Key: key, Text: q.Text, Type: typ}
}

// ModeQuestion looks up a mode question by key across all modes.
func (t *Tree) ModeQuestion(key string) (Question, bool) {
	for _, qs := range t.Modes {
		for _, q := range qs {
			if q.Key == key {
				return q, true
			}
		}
	}
	return Question{}, false
}

// HasValue reports whether v is one of the question's rule values.
func (q Question) HasValue(v string) bool {
	for _, r := range q.Rules {
		if r.Value == v {
			return true
		}
	}
	return false
}

// Match returns the value of the first rule with a keyword contained in text.
func (q Question) Match(text string) (string, bool) {
	for _, r := range q.Rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return r.Value, true
			}
		}
	}
	return "", false
}
