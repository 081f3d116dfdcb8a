// Package cachemanager drives the periodic and on-demand refresh cycle
// on top of DataUpdateService: a signed-out/idle/refreshing/cancelling/
// error state machine, a 10-minute periodic tick, a 3-minute
// per-search refresh cooldown, cache-clear-on-sign-out (deferred until
// an in-flight dispatch settles), and a single pending-refresh slot for
// a request that arrives mid-dispatch.
package cachemanager

// State is one of the five states the refresh cycle can be in.
type State int

const (
	StateSignedOut State = iota
	StateIdle
	StateRefreshing
	StateCancelling
	StateError
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "SignedOut"
	case StateIdle:
		return "Idle"
	case StateRefreshing:
		return "Refreshing"
	case StateCancelling:
		return "Cancelling"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Input is an event fed into the state machine.
type Input int

const (
	InputSignedIn Input = iota
	InputSignedOut
	InputTick
	InputRefreshRequested
	InputCancelRequested
	InputDispatchSucceeded
	InputDispatchFailed
)

// Action is the side effect Manager performs after a transition. The
// transition function itself never performs I/O; Manager interprets the
// returned Action.
type Action int

const (
	ActionNone Action = iota
	ActionClearCache
	ActionStartDispatch
	ActionCancelDispatch
)

// Memory is the state machine's small amount of carried-forward memory:
// a sign-out or refresh request that arrives mid-dispatch can't be
// acted on immediately, so it's stashed here and drained once the
// in-flight dispatch's terminal event arrives. PendingClear always wins
// the drain over PendingRefresh, since a deferred sign-out should not
// be undone by a refresh that was merely queued ahead of it.
type Memory struct {
	PendingClear   bool
	PendingRefresh bool
}

// transition is the entire state machine: one pure function over
// (state, input, mem), with Memory as its only carried state. Manager
// owns the search payload a PendingRefresh eventually drains to;
// transition itself only tracks whether one is outstanding. Unrecognized
// inputs for a given state are no-ops (stay in place, no action) rather
// than a default error branch, since most (state, input) pairs are
// simply not interesting (e.g. a Tick while already Refreshing
// coalesces into a no-op distinct from a stashed RefreshRequested).
func transition(state State, input Input, mem Memory) (State, Action, Memory) {
	switch state {
	case StateSignedOut:
		if input == InputSignedIn {
			return StateIdle, ActionNone, Memory{}
		}

	case StateIdle:
		switch input {
		case InputSignedOut:
			return StateSignedOut, ActionClearCache, Memory{}
		case InputTick, InputRefreshRequested:
			return StateRefreshing, ActionStartDispatch, mem
		}

	case StateRefreshing:
		switch input {
		case InputRefreshRequested:
			mem.PendingRefresh = true
			return StateRefreshing, ActionNone, mem
		case InputCancelRequested:
			return StateCancelling, ActionCancelDispatch, mem
		case InputSignedOut:
			mem.PendingClear = true
			mem.PendingRefresh = false
			return StateCancelling, ActionCancelDispatch, mem
		case InputDispatchSucceeded:
			return settleTerminal(mem, StateIdle)
		case InputDispatchFailed:
			return settleTerminal(mem, StateError)
		}

	case StateCancelling:
		switch input {
		case InputSignedOut:
			mem.PendingClear = true
			mem.PendingRefresh = false
			return StateCancelling, ActionNone, mem
		case InputRefreshRequested:
			mem.PendingRefresh = true
			return StateCancelling, ActionNone, mem
		case InputDispatchSucceeded, InputDispatchFailed:
			return settleTerminal(mem, StateIdle)
		}

	case StateError:
		switch input {
		case InputTick, InputRefreshRequested:
			return StateRefreshing, ActionStartDispatch, mem
		case InputSignedOut:
			return StateSignedOut, ActionClearCache, Memory{}
		}
	}

	return state, ActionNone, mem
}

// settleTerminal resolves a dispatch's terminal event against whatever
// was stashed while it ran: a deferred clear wins outright and discards
// any stashed refresh, otherwise a stashed refresh drains immediately,
// otherwise the cycle settles into def (Idle for a clean success,
// Error for a failure).
func settleTerminal(mem Memory, def State) (State, Action, Memory) {
	if mem.PendingClear {
		return StateSignedOut, ActionClearCache, Memory{}
	}
	if mem.PendingRefresh {
		return StateRefreshing, ActionStartDispatch, Memory{}
	}
	return def, ActionNone, Memory{}
}
