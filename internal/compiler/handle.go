package compiler

import (
	"fmt"

	"botarena/internal/game"
	"botarena/internal/monitor"
)

// Handle is a loaded competitor: team identity, the callable capability
// instance, and any validation or compile errors. A handle with errors has
// no strategy and never enters a match. Every capability call is routed
// through the handle so panic recovery and resource accounting apply
// uniformly.
type Handle struct {
	TeamName string
	Strategy game.Strategy
	Errors   []string

	mon *monitor.ResourceMonitor
}

// NewHandle wraps a runnable strategy.
func NewHandle(team string, strategy game.Strategy) *Handle {
	return &Handle{TeamName: team, Strategy: strategy}
}

// InvalidHandle records a submission that failed validation or compilation.
func InvalidHandle(team string, errs []string) *Handle {
	return &Handle{TeamName: team, Errors: errs}
}

// Valid reports whether the handle can compete.
func (h *Handle) Valid() bool {
	return h.Strategy != nil && len(h.Errors) == 0
}

// AttachMonitor puts the handle under a fresh cumulative memory ceiling.
// Monitors are never shared between handles.
func (h *Handle) AttachMonitor(limitBytes uint64) {
	h.mon = monitor.New(limitBytes)
}

// SetMonitor installs a prebuilt monitor, for deterministic sampling in
// tests.
func (h *Handle) SetMonitor(m *monitor.ResourceMonitor) {
	h.mon = m
}

// MemoryUsage returns the cumulative tracked bytes; zero without a monitor.
func (h *Handle) MemoryUsage() uint64 {
	if h.mon == nil {
		return 0
	}
	return h.mon.Usage()
}

// ResetMonitor clears per-match accounting if a monitor is attached.
func (h *Handle) ResetMonitor() {
	if h.mon != nil {
		h.mon.Reset()
	}
}

// MakeMove invokes the competitor's RPSLS operation.
func (h *Handle) MakeMove(state game.GameState) (mv game.Move, err error) {
	err = h.invoke(func() { mv = h.Strategy.MakeMove(state) })
	return mv, err
}

// AllocateSoldiers invokes the competitor's Colonel Blotto operation.
func (h *Handle) AllocateSoldiers(state game.GameState) (alloc []int, err error) {
	err = h.invoke(func() { alloc = h.Strategy.AllocateSoldiers(state) })
	return alloc, err
}

// DecideCooperation invokes the first binary decision operation.
func (h *Handle) DecideCooperation(state game.GameState) (c game.CoopChoice, err error) {
	err = h.invoke(func() { c = h.Strategy.DecideCooperation(state) })
	return c, err
}

// DecideSplit invokes the second binary decision operation.
func (h *Handle) DecideSplit(state game.GameState) (c game.SplitChoice, err error) {
	err = h.invoke(func() { c = h.Strategy.DecideSplit(state) })
	return c, err
}

// invoke runs one capability call with panic recovery, under the resource
// monitor when one is attached. On error the produced value must be
// discarded by the caller.
func (h *Handle) invoke(fn func()) error {
	if h.Strategy == nil {
		return fmt.Errorf("handle %s has no runnable strategy", h.TeamName)
	}
	call := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("strategy panicked: %v", r)
			}
		}()
		fn()
		return nil
	}
	if h.mon != nil {
		return h.mon.Track(call)
	}
	return call()
}
