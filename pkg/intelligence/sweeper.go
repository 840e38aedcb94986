package intelligence

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule runs the decay sweep at the start of every hour.
const DefaultSweepSchedule = "@hourly"

// Sweeper periodically decays the patterns of every known user.
type Sweeper struct {
	store *PatternStore
	users func() []string
	cron  *cron.Cron

	logger *zap.Logger
}

// NewSweeper creates a sweeper that runs store.Decay for each user returned
// by users on the given cron schedule (standard 5-field or a descriptor
// such as "@hourly"; empty uses DefaultSweepSchedule).
//
// The sweeper is not started; call Start.
func NewSweeper(store *PatternStore, users func() []string, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Sweeper{
		store:  store,
		users:  users,
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("NewSweeper: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep decays every user once and returns the totals. Per-user failures
// are logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) DecayResult {
	var total DecayResult
	for _, userID := range s.users() {
		if ctx.Err() != nil {
			break
		}
		res, err := s.store.Decay(ctx, userID)
		if err != nil {
			s.logger.Warn("pattern decay failed",
				zap.String("user_id", userID),
				zap.Error(err))
			continue
		}
		total.Decayed += res.Decayed
		total.Pruned += res.Pruned
	}
	s.logger.Debug("pattern decay sweep finished",
		zap.Int("decayed", total.Decayed),
		zap.Int("pruned", total.Pruned))
	return total
}
