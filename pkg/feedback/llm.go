package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/llm"
	"github.com/oceanbase/remindsense-go/pkg/model"
)

const systemPrompt = `You classify user feedback about reminders delivered by a home assistant.

Return a JSON object with exactly these boolean fields:
- "too_many": the user complains about the number or frequency of reminders
- "too_early": the user says a reminder came too early
- "too_late": the user says a reminder came too late
- "wrong_method": the user complains about how it was delivered (voice, sound, screen, popup)

Examples:
Input: too many reminders at once
Output: {"too_many": true, "too_early": false, "too_late": false, "wrong_method": false}

Input: the voice was way too loud during my call
Output: {"too_many": false, "too_early": false, "too_late": false, "wrong_method": true}

Input: thanks!
Output: {"too_many": false, "too_early": false, "too_late": false, "wrong_method": false}

Classify the feedback below. Answer with the JSON object only.`

// LLMInterpreter classifies comments with a language model.
type LLMInterpreter struct {
	provider llm.Provider
	fallback Interpreter
	logger   *zap.Logger
}

// NewLLMInterpreter creates an interpreter backed by provider. When the
// model call or its answer fails, the keyword interpreter is used instead.
func NewLLMInterpreter(provider llm.Provider, logger *zap.Logger) *LLMInterpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMInterpreter{
		provider: provider,
		fallback: NewKeywordInterpreter(),
		logger:   logger,
	}
}

// Interpret implements Interpreter.
func (i *LLMInterpreter) Interpret(ctx context.Context, fb *model.ReminderFeedback) (Signals, error) {
	if fb == nil || strings.TrimSpace(fb.Comment) == "" {
		return Signals{}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Input: %s", fb.Comment)},
	}
	response, err := i.provider.GenerateWithMessages(ctx, messages, llm.WithTemperature(0), llm.WithJSONMode())
	if err != nil {
		i.logger.Warn("llm feedback classification failed, using keywords", zap.Error(err))
		return i.fallback.Interpret(ctx, fb)
	}

	signals, err := parseSignals(response)
	if err != nil {
		i.logger.Warn("llm feedback classification unparsable, using keywords",
			zap.String("response", response),
			zap.Error(err))
		return i.fallback.Interpret(ctx, fb)
	}
	return signals, nil
}

// parseSignals decodes a model answer, tolerating markdown code fences.
func parseSignals(response string) (Signals, error) {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	response = strings.TrimSpace(response)

	var s Signals
	if err := json.Unmarshal([]byte(response), &s); err != nil {
		return Signals{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	return s, nil
}
