package ticksched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeMovement struct{ ticks int; lastDt float64 }

func (f *fakeMovement) Tick(dt float64) { f.ticks++; f.lastDt = dt }

type fakeDurability struct{ ticks int }

func (f *fakeDurability) Tick() { f.ticks++ }

func TestStepDrivesMovementThenDurability(t *testing.T) {
	mv := &fakeMovement{}
	dur := &fakeDurability{}
	sched := New(DefaultConfig(), mv, dur)

	sched.Step(16 * time.Millisecond)

	require.Equal(t, 1, mv.ticks)
	require.Equal(t, 1, dur.ticks)
	require.InDelta(t, 0.016, mv.lastDt, 1e-9)
	require.Equal(t, uint64(1), sched.Stats().TicksRun)
}

func TestStepClampsExcessiveDt(t *testing.T) {
	mv := &fakeMovement{}
	dur := &fakeDurability{}
	cfg := DefaultConfig()
	cfg.MaxDt = 50 * time.Millisecond
	sched := New(cfg, mv, dur)

	sched.Step(500 * time.Millisecond)

	require.InDelta(t, 0.05, mv.lastDt, 1e-9)
	require.Equal(t, uint64(1), sched.Stats().MaxDtHit)
}

func TestOnTickCallback(t *testing.T) {
	mv := &fakeMovement{}
	dur := &fakeDurability{}
	sched := New(DefaultConfig(), mv, dur)

	var called bool
	sched.OnTick(func(dt float64, stats Stats) { called = true })
	sched.Step(10 * time.Millisecond)

	require.True(t, called)
}

func TestDisabledSchedulerNeverTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRateDisabled = true
	mv := &fakeMovement{}
	dur := &fakeDurability{}
	sched := New(cfg, mv, dur)

	require.False(t, sched.Enabled())
}
