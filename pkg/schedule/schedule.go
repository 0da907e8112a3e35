// Package schedule runs the periodic retention sweep.
//
// A single cron expression drives two maintenance operations: decaying
// relationship scores for idle pairs and trimming the persona window log.
// The loop ticks once a minute and fires when the expression is due, so a
// sweep runs at most once per matching minute.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/taepop/chingoo-sub000/pkg/logger"
)

const component = "schedule"

// Store is the slice of persistence the sweep needs.
type Store interface {
	DecayIdleRelationships(ctx context.Context, beforeMS int64, decay int) (int, error)
	TrimPersonaWindow(ctx context.Context, beforeMS int64) (int, error)
}

// Options configure a Sweeper.
type Options struct {
	// CronExpr decides when the sweep fires, in standard 5-field cron.
	CronExpr string
	// DecayAfter is how long a pair may sit idle before losing points.
	DecayAfter time.Duration
	// DecayStep is how many points an idle pair loses per sweep.
	DecayStep int
	// WindowRetention bounds how long persona window-log rows are kept.
	WindowRetention time.Duration

	// Now is overridable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Sweeper owns the maintenance loop.
type Sweeper struct {
	store Store
	opts  Options
	cron  *gronx.Gronx
}

// NewSweeper validates the cron expression and builds a Sweeper.
func NewSweeper(store Store, opts Options) (*Sweeper, error) {
	g := gronx.New()
	if !g.IsValid(opts.CronExpr) {
		return nil, fmt.Errorf("invalid maintenance schedule %q", opts.CronExpr)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{store: store, opts: opts, cron: g}, nil
}

// RunOnce executes a single sweep immediately, regardless of the schedule.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.opts.Now()

	decayCutoff := now.Add(-s.opts.DecayAfter).UnixMilli()
	decayed, err := s.store.DecayIdleRelationships(ctx, decayCutoff, s.opts.DecayStep)
	if err != nil {
		return fmt.Errorf("decay idle relationships: %w", err)
	}

	trimCutoff := now.Add(-s.opts.WindowRetention).UnixMilli()
	trimmed, err := s.store.TrimPersonaWindow(ctx, trimCutoff)
	if err != nil {
		return fmt.Errorf("trim persona window: %w", err)
	}

	logger.InfoCF(component, "maintenance sweep done", map[string]interface{}{
		"relationships_decayed": decayed,
		"window_rows_trimmed":   trimmed,
	})
	return nil
}

// Run blocks until ctx is cancelled, firing RunOnce whenever the cron
// expression matches the current minute.
func (s *Sweeper) Run(ctx context.Context) error {
	logger.InfoCF(component, "maintenance loop started", map[string]interface{}{
		"schedule": s.opts.CronExpr,
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			due, err := s.cron.IsDue(s.opts.CronExpr, s.opts.Now())
			if err != nil {
				logger.WarnCF(component, "cron check failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if !due {
				continue
			}
			if err := s.RunOnce(ctx); err != nil {
				logger.WarnCF(component, "maintenance sweep failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
