// Package ticksched implements the Tick Scheduler: it drives the
// movement and durability systems at a target frequency, or steps out
// of the way entirely when tick_rate_disabled leaves the world purely
// event-driven.
package ticksched

import (
	"context"
	"time"
)

// Steppable is the subset of a system the scheduler needs each tick.
type Steppable interface {
	Tick(dt float64)
}

// DurabilityStep matches durability.System.Tick, which takes no dt.
type DurabilityStep interface {
	Tick()
}

// Config holds the tunables of the tick pipeline.
type Config struct {
	RateHz           int           // default 60
	MaxDt            time.Duration // default 100ms
	TickRateDisabled bool
}

func DefaultConfig() Config {
	return Config{RateHz: 60, MaxDt: 100 * time.Millisecond}
}

// Stats reports lag/backlog information for observability.
type Stats struct {
	TicksRun   uint64
	LastDt     time.Duration
	MaxDtHit   uint64 // count of ticks where the wall-clock delta was clamped
	LastTickAt time.Time
}

// Scheduler drives Movement then Durability every tick at cfg.RateHz,
// clamping wall-clock dt to cfg.MaxDt. When cfg.TickRateDisabled it
// never runs; callers invoke movement/durability methods directly from
// the session layer instead.
type Scheduler struct {
	cfg        Config
	movement   Steppable
	durability DurabilityStep
	onTick     func(dt float64, stats Stats)

	stats Stats
}

func New(cfg Config, movement Steppable, durability DurabilityStep) *Scheduler {
	return &Scheduler{cfg: cfg, movement: movement, durability: durability}
}

// OnTick registers a callback invoked after each completed tick.
func (s *Scheduler) OnTick(fn func(dt float64, stats Stats)) { s.onTick = fn }

// Enabled reports whether the scheduler drives ticks at all.
func (s *Scheduler) Enabled() bool { return !s.cfg.TickRateDisabled }

// Interval is the wall-clock period between ticks at cfg.RateHz,
// exposed so an owning executor can build its own ticker around
// Step instead of calling Run directly.
func (s *Scheduler) Interval() time.Duration {
	rate := s.cfg.RateHz
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

func (s *Scheduler) Stats() Stats { return s.stats }

// Run blocks, driving ticks at cfg.RateHz until ctx is cancelled. When
// TickRateDisabled is set it runs no ticks and just waits for ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.TickRateDisabled {
		<-ctx.Done()
		return ctx.Err()
	}

	rate := s.cfg.RateHz
	if rate <= 0 {
		rate = 60
	}
	interval := time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			clamped := dt > s.cfg.MaxDt
			if clamped {
				dt = s.cfg.MaxDt
			}
			s.step(dt.Seconds(), clamped)
		}
	}
}

// Step runs exactly one tick with the given dt, for callers (tests,
// deterministic replay) that drive the pipeline outside Run's ticker.
func (s *Scheduler) Step(dt time.Duration) {
	clamped := dt > s.cfg.MaxDt
	if clamped {
		dt = s.cfg.MaxDt
	}
	s.step(dt.Seconds(), clamped)
}

func (s *Scheduler) step(dtSeconds float64, clamped bool) {
	s.movement.Tick(dtSeconds)
	s.durability.Tick()

	s.stats.TicksRun++
	s.stats.LastDt = time.Duration(dtSeconds * float64(time.Second))
	s.stats.LastTickAt = time.Now()
	if clamped {
		s.stats.MaxDtHit++
	}
	if s.onTick != nil {
		s.onTick(dtSeconds, s.stats)
	}
}
