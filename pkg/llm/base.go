// Package llm defines the language model provider used to interpret free
// text feedback.
//
// The engine never needs an LLM to work. When one is configured, the
// feedback interpreter asks it to classify comments such as "too many
// reminders at once" into structured signals.
package llm

import "context"

// Provider is a chat-completion language model.
type Provider interface {
	// Generate completes a single user prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages completes a conversation.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - messages: System and user messages, oldest first
	//   - opts: Optional generation parameters
	//
	// Returns the generated text and any error.
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close releases provider resources.
	Close() error
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions contains options for text generation.
type GenerateOptions struct {
	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int

	// JSONMode asks the model to answer with a single JSON object.
	JSONMode bool
}

// GenerateOption configures a generation call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
//
// Example:
//
//	text, _ := provider.Generate(ctx, prompt, llm.WithTemperature(0))
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens in the response.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithJSONMode requests a JSON object response.
func WithJSONMode() GenerateOption {
	return func(opts *GenerateOptions) {
		opts.JSONMode = true
	}
}

// ApplyGenerateOptions resolves opts over the defaults used for feedback
// classification: Temperature=0, MaxTokens=256.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0,
		MaxTokens:   256,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
