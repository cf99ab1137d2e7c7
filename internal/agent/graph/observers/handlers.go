package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates all observer handlers (prompt, model) into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

func componentOf(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return string(info.Component)
}

func nodeOf(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}
