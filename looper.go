package fiberjobs

import "time"

// StepFunc is one tick function the Looper drives: it is handed the
// simulation clock and the elapsed delta for this step, and returns
// whether the loop should keep running.
type StepFunc func(clock time.Duration, delta time.Duration) (keepRunning bool)

// Looper runs a fixed-step-plus-variable-step accumulator loop: the
// pattern a game engine uses to drive deterministic physics/gameplay
// ticks at a fixed Δ while still rendering a variable-step function once
// per real frame.
type Looper struct {
	fixedStep  time.Duration
	fixedFn    StepFunc
	variableFn StepFunc

	// now is injectable so tests can drive the loop with a synthetic
	// clock instead of real wall time.
	now func() time.Time

	clock time.Duration
}

// NewLooper builds a Looper starting simulation time at startClock and
// ticking its fixed-step function every fixedStep of simulated time,
// using the real wall clock.
func NewLooper(startClock, fixedStep time.Duration, fixedFn, variableFn StepFunc) *Looper {
	return NewLooperWithClock(startClock, fixedStep, fixedFn, variableFn, time.Now)
}

// NewLooperWithClock is NewLooper with an injectable wall-clock source.
func NewLooperWithClock(startClock, fixedStep time.Duration, fixedFn, variableFn StepFunc, now func() time.Time) *Looper {
	return &Looper{
		fixedStep:  fixedStep,
		fixedFn:    fixedFn,
		variableFn: variableFn,
		now:        now,
		clock:      startClock,
	}
}

// Run drives the loop until fixedFn or variableFn returns false. It
// blocks the calling goroutine for the loop's entire lifetime.
func (l *Looper) Run() {
	var acc time.Duration
	prevNow := l.now()

	for {
		now := l.now()
		frame := now.Sub(prevNow)
		prevNow = now
		acc += frame

		for acc >= l.fixedStep {
			if !l.fixedFn(l.clock, l.fixedStep) {
				return
			}
			l.clock += l.fixedStep
			acc -= l.fixedStep
		}

		if !l.variableFn(l.clock, frame) {
			return
		}
	}
}
