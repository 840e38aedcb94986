// Package contextual provides the context snapshot provider: it fuses
// context sources into a per-user snapshot, derives interruptibility, and
// answers deferral, timing and batching questions for reminders.
package contextual

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/oceanbase/remindsense-go/pkg/contextual/sources"
	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/intelligence"
	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// DefaultTTL is how long a context snapshot is served from cache.
const DefaultTTL = 30 * time.Second

// Provider maintains per-user context snapshots.
//
// Snapshots are cached in the repository's lock-free context cache and are
// immutable once published. Concurrent refreshes for the same user are
// collapsed into one poll of the sources.
//
// Example usage:
//
//	provider, err := contextual.NewProvider(repo, patterns,
//	    contextual.WithSources(sources.NewManualSource(), calendarSource))
//	snapshot, err := provider.AnalyzeUserContext(ctx, "user_001")
//	decision := provider.ShouldDeferReminder(ctx, reminder, snapshot)
type Provider struct {
	repo     storage.Repository
	patterns *intelligence.PatternStore

	sources []sources.Source

	// clock supplies the time zone, holidays and fallback heuristic.
	clock *sources.TimeSource

	ttl   time.Duration
	group singleflight.Group

	sink   events.Sink
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithSources sets the context sources polled on refresh. A TimeSource in
// the list also becomes the provider clock.
func WithSources(srcs ...sources.Source) Option {
	return func(p *Provider) {
		p.sources = append(p.sources[:0:0], srcs...)
		for _, s := range srcs {
			if ts, ok := s.(*sources.TimeSource); ok {
				p.clock = ts
			}
		}
	}
}

// WithTimeSource sets the clock heuristic and time zone without adding it
// to the polled sources.
func WithTimeSource(ts *sources.TimeSource) Option {
	return func(p *Provider) {
		if ts != nil {
			p.clock = ts
		}
	}
}

// WithTTL sets the snapshot cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSink sets the event sink.
func WithSink(sink events.Sink) Option {
	return func(p *Provider) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider creates a context provider.
//
// Parameters:
//   - repo: Per-user state repository holding the context cache
//   - patterns: Pattern store used for pattern votes, timing and learning
//   - opts: Sources, TTL, logger, sink and clock
//
// With no WithSources option the provider polls a single TimeSource in the
// local time zone.
func NewProvider(repo storage.Repository, patterns *intelligence.PatternStore, opts ...Option) (*Provider, error) {
	if repo == nil || patterns == nil {
		return nil, fmt.Errorf("NewProvider: repository and pattern store are required: %w", model.ErrInvalidInput)
	}
	p := &Provider{
		repo:     repo,
		patterns: patterns,
		ttl:      DefaultTTL,
		sink:     events.Nop,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = sources.NewTimeSource(time.Local)
	}
	if p.sources == nil {
		p.sources = []sources.Source{p.clock}
	}
	return p, nil
}

// AnalyzeUserContext returns the user's current context snapshot.
//
// A cached snapshot younger than the TTL is returned as is. Otherwise every
// source is polled concurrently, pattern votes are added and the votes are
// fused. A failing source is logged and skipped; fields nobody voted for
// come from the clock heuristic. Emits context:analyzed on refresh.
func (p *Provider) AnalyzeUserContext(ctx context.Context, userID string) (*model.UserContext, error) {
	if userID == "" {
		return nil, fmt.Errorf("AnalyzeUserContext: user ID is required: %w", model.ErrInvalidInput)
	}
	if snap, ok := p.repo.CachedContext(userID); ok && p.now().Sub(snap.LastUpdated) < p.ttl {
		return snap.Clone(), nil
	}

	v, err, _ := p.group.Do(userID, func() (interface{}, error) {
		return p.refresh(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("AnalyzeUserContext: %w", err)
	}
	return v.(*model.UserContext).Clone(), nil
}

// refresh polls the sources and publishes a new snapshot.
func (p *Provider) refresh(ctx context.Context, userID string) (*model.UserContext, error) {
	now := p.now()
	tod := p.clock.TimeOfDay(now)

	observations := make([]*sources.Observation, len(p.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		i, src := i, src
		g.Go(func() error {
			obs, err := src.Observe(gctx, userID, now)
			if err != nil {
				p.logger.Warn("context source failed, skipping",
					zap.String("user_id", userID),
					zap.String("source", string(src.Kind())),
					zap.Error(err))
				return nil
			}
			observations[i] = obs
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st, err := p.repo.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	observations = append(observations, patternVotes(st.Patterns, tod)...)

	f := fuse(observations, p.clock.Infer(tod))
	snap := &model.UserContext{
		UserID:             userID,
		CurrentActivity:    f.activity,
		Location:           f.location,
		Availability:       f.availability,
		DeviceProximity:    f.proximity,
		TimeOfDay:          tod,
		HistoricalPatterns: st.Patterns,
		LastUpdated:        now,
	}
	snap.Interruptibility = Interruptibility(snap)

	// A merge that landed after this refresh started is newer; keep it.
	snap = p.repo.UpdateContext(userID, func(prev *model.UserContext) *model.UserContext {
		if prev != nil && prev.LastUpdated.After(now) {
			return nil
		}
		return snap
	})
	p.emit(events.ContextAnalyzed, userID, map[string]interface{}{
		"activity":         string(snap.CurrentActivity),
		"availability":     string(snap.Availability),
		"location_type":    string(snap.Location.Type),
		"interruptibility": snap.Interruptibility.String(),
	})
	return snap, nil
}

// patternVotes turns patterns observed near the current hour into activity
// and location votes, weighted by pattern confidence.
func patternVotes(patterns []*model.BehaviorPattern, tod model.TimeOfDay) []*sources.Observation {
	var out []*sources.Observation
	for _, bp := range patterns {
		h, ok := bp.Hour()
		if !ok || h != tod.Hour {
			continue
		}
		if weekend, ok := model.MetaBool(bp.Metadata, model.MetaIsWeekend); ok && weekend != tod.IsWeekend {
			continue
		}
		obs := &sources.Observation{Source: sources.KindPattern}
		if a := bp.Activity(); a.Valid() && a != model.ActivityUnknown {
			obs.Activity, obs.ActivityConfidence = a, bp.Confidence*0.5
		}
		if lt := model.LocationType(model.MetaString(bp.Metadata, model.MetaLocationType)); lt.Valid() && lt != model.LocationUnknown {
			obs.Location = &model.Location{
				Name:       model.MetaString(bp.Metadata, model.MetaLocation),
				Type:       lt,
				Confidence: bp.Confidence * 0.5,
			}
		}
		if !obs.Empty() {
			out = append(out, obs)
		}
	}
	return out
}

// GetCurrentContext returns the cached snapshot without refreshing it.
func (p *Provider) GetCurrentContext(userID string) (*model.UserContext, bool) {
	snap, ok := p.repo.CachedContext(userID)
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

// UpdateContextModel merges a partial update into the cached snapshot and
// publishes the result as a new snapshot. Without a cached snapshot the
// clock heuristic is used as the starting point. Concurrent updates for the
// same user are applied one after another, so none of their fields is lost.
//
// Interruptibility is re-derived. context:changed is emitted only when the
// activity, availability or location type changed.
func (p *Provider) UpdateContextModel(userID string, update model.ContextUpdate) (*model.UserContext, error) {
	if userID == "" {
		return nil, fmt.Errorf("UpdateContextModel: user ID is required: %w", model.ErrInvalidInput)
	}
	if update.CurrentActivity != nil && !update.CurrentActivity.Valid() {
		return nil, fmt.Errorf("UpdateContextModel: unknown activity %q: %w", *update.CurrentActivity, model.ErrInvalidInput)
	}
	if update.Availability != nil && !update.Availability.Valid() {
		return nil, fmt.Errorf("UpdateContextModel: unknown availability %q: %w", *update.Availability, model.ErrInvalidInput)
	}

	now := p.now()
	var prev *model.UserContext
	next := p.repo.UpdateContext(userID, func(cached *model.UserContext) *model.UserContext {
		prev = cached
		if prev == nil {
			prev = p.baseline(userID, now)
		}
		merged := prev.Clone()
		update.Apply(merged)
		merged.Interruptibility = Interruptibility(merged)
		merged.LastUpdated = now
		return merged
	})

	if changed(prev, next) {
		p.emit(events.ContextChanged, userID, map[string]interface{}{
			"previous_activity":     string(prev.CurrentActivity),
			"activity":              string(next.CurrentActivity),
			"previous_availability": string(prev.Availability),
			"availability":          string(next.Availability),
			"previous_location":     string(prev.Location.Type),
			"location_type":         string(next.Location.Type),
			"interruptibility":      next.Interruptibility.String(),
		})
	}
	return next.Clone(), nil
}

// baseline builds a snapshot from the clock heuristic alone.
func (p *Provider) baseline(userID string, now time.Time) *model.UserContext {
	tod := p.clock.TimeOfDay(now)
	f := fuse(nil, p.clock.Infer(tod))
	snap := &model.UserContext{
		UserID:          userID,
		CurrentActivity: f.activity,
		Location:        f.location,
		Availability:    f.availability,
		DeviceProximity: f.proximity,
		TimeOfDay:       tod,
		LastUpdated:     now,
	}
	snap.Interruptibility = Interruptibility(snap)
	return snap
}

func changed(a, b *model.UserContext) bool {
	return a.CurrentActivity != b.CurrentActivity ||
		a.Availability != b.Availability ||
		a.Location.Type != b.Location.Type
}

func (p *Provider) emit(name, userID string, payload map[string]interface{}) {
	p.sink.Emit(events.Event{
		Name:      name,
		UserID:    userID,
		Timestamp: p.now(),
		Payload:   payload,
	})
}
