package model

type QuestionScope string

const (
	ScopeCommon QuestionScope = "common"
	ScopeMode   QuestionScope = "mode"
)

// AnswerType tells the parser dispatcher what shape of answer is expected.
type AnswerType string

const (
	AnswerFree       AnswerType = "free"
	AnswerListOrNone AnswerType = "list_or_none"
	AnswerEnum       AnswerType = "enum"
	AnswerNumber     AnswerType = "number"
)

// Common question keys.
const (
	KeyLocation     = "location"
	KeyCannotEat    = "cannot_eat"
	KeyAlcoholLevel = "alcohol_level"
	KeyTransport    = "transport"
	KeyWalkLimit    = "walk_limit_minutes"
	KeySensitivity  = "sensitivity_level"
	KeyFocus        = "focus_priority"
	KeyAlcoholPlan  = "alcohol_plan"
	KeyAlcoholType  = "alcohol_type"
)

// PendingQuestion is the single outstanding prompt awaiting an answer.
type PendingQuestion struct {
	Scope QuestionScope `json:"scope"`
	Key   string        `json:"key"`
	Text  string        `json:"text"`
	Type  AnswerType    `json:"type"`
}
