package core

import (
	"context"
	"sync"

	"github.com/oceanbase/remindsense-go/pkg/intelligence"
	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/strategy"
)

// AsyncClient runs RemindSense operations in background goroutines.
//
// It wraps the synchronous Client; every async method returns a channel that
// receives exactly one result and is then closed. Wait blocks until every
// started operation has finished.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	resultChan := asyncClient.AdaptReminderStrategyAsync(ctx, "user_001", fb, reminder)
//	result := <-resultChan
//	if result.Error != nil {
//	    log.Fatal(result.Error)
//	}
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// NewAsyncClient creates a new asynchronous RemindSense client.
//
// Parameters:
//   - cfg: RemindSense configuration
//   - opts: Client options, as for NewClient
//
// Returns:
//   - *AsyncClient: The asynchronous client instance
//   - error: Error if configuration is invalid or initialization fails
func NewAsyncClient(cfg *Config, opts ...ClientOption) (*AsyncClient, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{Client: client}, nil
}

// LearningResult carries the result of an asynchronous learning call.
type LearningResult struct {
	Result *intelligence.LearningResult
	Error  error
}

// AdaptationResult carries the result of an asynchronous strategy
// adaptation.
type AdaptationResult struct {
	Adaptation *model.StrategyAdaptation
	Error      error
}

// ContextResult carries the result of an asynchronous context analysis.
type ContextResult struct {
	Context *model.UserContext
	Error   error
}

// LearnFromContextAsync runs LearnFromContext in the background.
func (ac *AsyncClient) LearnFromContextAsync(ctx context.Context, userID string, uctx *model.UserContext, outcome model.LearningOutcome) <-chan *LearningResult {
	resultChan := make(chan *LearningResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		res, err := ac.LearnFromContext(ctx, userID, uctx, outcome)
		resultChan <- &LearningResult{Result: res, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// LearnFromUserFeedbackAsync runs LearnFromUserFeedback in the background.
func (ac *AsyncClient) LearnFromUserFeedbackAsync(ctx context.Context, userID string, fb *model.ContextFeedback) <-chan *LearningResult {
	resultChan := make(chan *LearningResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		res, err := ac.LearnFromUserFeedback(ctx, userID, fb)
		resultChan <- &LearningResult{Result: res, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// AnalyzeUserContextAsync runs AnalyzeUserContext in the background.
func (ac *AsyncClient) AnalyzeUserContextAsync(ctx context.Context, userID string) <-chan *ContextResult {
	resultChan := make(chan *ContextResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		uctx, err := ac.AnalyzeUserContext(ctx, userID)
		resultChan <- &ContextResult{Context: uctx, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// OptimizeReminderTimingAsync runs OptimizeReminderTiming in the
// background. The channel always receives a non-nil result.
//
// Parameters:
//   - ctx: Context for controlling request lifecycle
//   - reminder: The reminder to schedule
//
// Returns:
//   - <-chan *strategy.OptimizedTiming: Channel that receives the timing
func (ac *AsyncClient) OptimizeReminderTimingAsync(ctx context.Context, reminder *model.Reminder) <-chan *strategy.OptimizedTiming {
	resultChan := make(chan *strategy.OptimizedTiming, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		resultChan <- ac.OptimizeReminderTiming(ctx, reminder)
		close(resultChan)
	}()

	return resultChan
}

// AdaptReminderStrategyAsync runs AdaptReminderStrategy in the background.
//
// Parameters:
//   - ctx: Context for controlling request lifecycle
//   - userID: The user who gave the feedback
//   - fb: The feedback
//   - reminder: The reminder the feedback is about (optional)
//
// Returns:
//   - <-chan *AdaptationResult: Channel that receives the adaptation and error
func (ac *AsyncClient) AdaptReminderStrategyAsync(ctx context.Context, userID string, fb *model.ReminderFeedback, reminder *model.Reminder) <-chan *AdaptationResult {
	resultChan := make(chan *AdaptationResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		a, err := ac.AdaptReminderStrategy(ctx, userID, fb, reminder)
		resultChan <- &AdaptationResult{Adaptation: a, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// Wait waits for all asynchronous operations to complete.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
}

// Close waits for all asynchronous operations to complete, then closes the
// underlying client.
func (ac *AsyncClient) Close() error {
	ac.Wait()
	return ac.Client.Close()
}
