// Package questions holds the question tree and the selector that walks it.
package questions

import (
	"github.com/decision-mate/server/internal/agent/model"
)

// Next returns the first unmet question for c, or nil when the conversation
// can proceed to search. It uses the embedded tree.
func Next(c model.Condition) *model.PendingQuestion {
	return Default().Next(c)
}

// Next walks the fixed order: location, cannot-eat, then (unless fast mode)
// alcohol level, transport, walk limit, sensitivity, focus, the gated alcohol
// plan/type questions and finally the mode list.
func (t *Tree) Next(c model.Condition) *model.PendingQuestion {
	cm := c.Meta.Common

	if c.LocationText() == "" {
		return t.Pending(model.KeyLocation)
	}
	if !cm.CannotEatDone {
		return t.Pending(model.KeyCannotEat)
	}
	if c.Meta.FastMode {
		return nil
	}
	if cm.AlcoholLevel == "" {
		return t.Pending(model.KeyAlcoholLevel)
	}
	if cm.Transport == "" {
		return t.Pending(model.KeyTransport)
	}
	if cm.WalkLimitMinutes == nil {
		return t.Pending(model.KeyWalkLimit)
	}
	if cm.SensitivityLevel == 0 {
		return t.Pending(model.KeySensitivity)
	}
	if cm.FocusPriority == "" {
		return t.Pending(model.KeyFocus)
	}
	if cm.AlcoholLevel == model.AlcoholHeavy {
		if cm.AlcoholPlan == "" {
			return t.Pending(model.KeyAlcoholPlan)
		}
		// unsure never asks for a type
		if cm.AlcoholPlan != model.PlanUnsure && cm.AlcoholType == "" {
			return t.Pending(model.KeyAlcoholType)
		}
	}
	return t.nextMode(c)
}

func (t *Tree) nextMode(c model.Condition) *model.PendingQuestion {
	for _, q := range t.Modes[c.Meta.ContextMode] {
		if _, answered := c.Meta.Answers[q.Key]; answered {
			continue
		}
		return &model.PendingQuestion{
			Scope: model.ScopeMode,
			Key:   q.Key,
			Text:  q.Text,
			Type:  model.AnswerEnum,
		}
	}
	return nil
}
