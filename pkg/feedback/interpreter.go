// Package feedback interprets the free-text comment attached to reminder
// feedback.
//
// The strategy layer only needs a few coarse signals from a comment, such
// as "the user got too many reminders". KeywordInterpreter extracts them
// with phrase matching; LLMInterpreter asks a language model and falls back
// to keywords when the model is unavailable.
package feedback

import (
	"context"
	"strings"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// Signals are the structured hints found in a feedback comment.
type Signals struct {
	// TooMany reports complaints about reminder volume or frequency.
	TooMany bool `json:"too_many"`

	// TooEarly and TooLate report timing complaints.
	TooEarly bool `json:"too_early"`
	TooLate  bool `json:"too_late"`

	// WrongMethod reports complaints about the delivery channel.
	WrongMethod bool `json:"wrong_method"`
}

// Interpreter extracts Signals from feedback.
type Interpreter interface {
	Interpret(ctx context.Context, fb *model.ReminderFeedback) (Signals, error)
}

var (
	tooManyPhrases = []string{
		"too many", "too often", "too frequent", "too much", "so many",
		"fewer reminders", "less often", "stop reminding",
	}
	tooEarlyPhrases = []string{"too early", "too soon", "earlier than"}
	tooLatePhrases  = []string{"too late", "missed it", "later than"}
	methodPhrases   = []string{"too loud", "annoying sound", "voice", "popup", "pop-up", "notification", "screen"}
)

// KeywordInterpreter matches fixed English phrases, case-insensitively.
type KeywordInterpreter struct{}

// NewKeywordInterpreter creates a keyword interpreter.
func NewKeywordInterpreter() *KeywordInterpreter {
	return &KeywordInterpreter{}
}

// Interpret implements Interpreter. It never returns an error.
func (k *KeywordInterpreter) Interpret(_ context.Context, fb *model.ReminderFeedback) (Signals, error) {
	if fb == nil {
		return Signals{}, nil
	}
	return keywordSignals(fb.Comment), nil
}

func keywordSignals(comment string) Signals {
	c := strings.ToLower(comment)
	return Signals{
		TooMany:     containsAny(c, tooManyPhrases),
		TooEarly:    containsAny(c, tooEarlyPhrases),
		TooLate:     containsAny(c, tooLatePhrases),
		WrongMethod: containsAny(c, methodPhrases),
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
