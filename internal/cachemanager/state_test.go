package cachemanager

import "testing"

func TestTransition_SignInStartsIdle(t *testing.T) {
	state, action, _ := transition(StateSignedOut, InputSignedIn, Memory{})
	if state != StateIdle || action != ActionNone {
		t.Fatalf("got (%v, %v), want (Idle, None)", state, action)
	}
}

func TestTransition_TickFromIdleStartsDispatch(t *testing.T) {
	state, action, _ := transition(StateIdle, InputTick, Memory{})
	if state != StateRefreshing || action != ActionStartDispatch {
		t.Fatalf("got (%v, %v), want (Refreshing, StartDispatch)", state, action)
	}
}

func TestTransition_RefreshRequestStashesWhileRefreshing(t *testing.T) {
	state, action, mem := transition(StateRefreshing, InputRefreshRequested, Memory{})
	if state != StateRefreshing || action != ActionNone {
		t.Fatalf("a refresh request mid-flight should not start a second dispatch, got (%v, %v)", state, action)
	}
	if !mem.PendingRefresh {
		t.Fatalf("a refresh request mid-flight must be stashed as PendingRefresh")
	}
}

func TestTransition_CancelDuringRefresh(t *testing.T) {
	state, action, _ := transition(StateRefreshing, InputCancelRequested, Memory{})
	if state != StateCancelling || action != ActionCancelDispatch {
		t.Fatalf("got (%v, %v), want (Cancelling, CancelDispatch)", state, action)
	}
}

func TestTransition_SignOutDuringRefreshCancelsAndStashesClear(t *testing.T) {
	state, action, mem := transition(StateRefreshing, InputSignedOut, Memory{})
	if state != StateCancelling || action != ActionCancelDispatch {
		t.Fatalf("got (%v, %v), want (Cancelling, CancelDispatch)", state, action)
	}
	if !mem.PendingClear {
		t.Fatalf("sign-out mid-refresh must stash PendingClear so the cache is purged once cancellation settles")
	}
}

func TestTransition_SignOutDuringRefreshDiscardsAnyStashedRefresh(t *testing.T) {
	_, _, mem := transition(StateRefreshing, InputSignedOut, Memory{PendingRefresh: true})
	if mem.PendingRefresh {
		t.Fatalf("signing out should discard a stashed refresh, not carry it forward")
	}
}

func TestTransition_SignOutFromIdleClearsCache(t *testing.T) {
	state, action, _ := transition(StateIdle, InputSignedOut, Memory{})
	if state != StateSignedOut || action != ActionClearCache {
		t.Fatalf("got (%v, %v), want (SignedOut, ClearCache)", state, action)
	}
}

func TestTransition_DispatchOutcomesSettleCancellingToIdle(t *testing.T) {
	for _, input := range []Input{InputDispatchSucceeded, InputDispatchFailed} {
		state, action, _ := transition(StateCancelling, input, Memory{})
		if state != StateIdle || action != ActionNone {
			t.Fatalf("input %v: got (%v, %v), want (Idle, None)", input, state, action)
		}
	}
}

func TestTransition_CancellingSettlesToPurgeWhenClearWasStashed(t *testing.T) {
	for _, input := range []Input{InputDispatchSucceeded, InputDispatchFailed} {
		state, action, mem := transition(StateCancelling, input, Memory{PendingClear: true, PendingRefresh: true})
		if state != StateSignedOut || action != ActionClearCache {
			t.Fatalf("input %v: got (%v, %v), want (SignedOut, ClearCache)", input, state, action)
		}
		if mem.PendingClear || mem.PendingRefresh {
			t.Fatalf("input %v: settling a deferred clear must reset all pending state, got %+v", input, mem)
		}
	}
}

func TestTransition_CancellingDrainsStashedRefreshWhenNoClearIsPending(t *testing.T) {
	for _, input := range []Input{InputDispatchSucceeded, InputDispatchFailed} {
		state, action, mem := transition(StateCancelling, input, Memory{PendingRefresh: true})
		if state != StateRefreshing || action != ActionStartDispatch {
			t.Fatalf("input %v: got (%v, %v), want (Refreshing, StartDispatch)", input, state, action)
		}
		if mem.PendingRefresh {
			t.Fatalf("input %v: draining a stashed refresh must clear the flag", input)
		}
	}
}

func TestTransition_RefreshingDrainsStashedRefreshOnSuccessOrFailure(t *testing.T) {
	for _, input := range []Input{InputDispatchSucceeded, InputDispatchFailed} {
		state, action, mem := transition(StateRefreshing, input, Memory{PendingRefresh: true})
		if state != StateRefreshing || action != ActionStartDispatch {
			t.Fatalf("input %v: got (%v, %v), want (Refreshing, StartDispatch)", input, state, action)
		}
		if mem.PendingRefresh {
			t.Fatalf("input %v: draining a stashed refresh must clear the flag", input)
		}
	}
}

func TestTransition_DispatchFailureEntersErrorWhenNothingPending(t *testing.T) {
	state, action, _ := transition(StateRefreshing, InputDispatchFailed, Memory{})
	if state != StateError || action != ActionNone {
		t.Fatalf("got (%v, %v), want (Error, None)", state, action)
	}
}

func TestTransition_RefreshingSettlesToPurgeWhenClearWasStashed(t *testing.T) {
	state, action, mem := transition(StateRefreshing, InputDispatchSucceeded, Memory{PendingClear: true})
	if state != StateSignedOut || action != ActionClearCache {
		t.Fatalf("got (%v, %v), want (SignedOut, ClearCache)", state, action)
	}
	if mem.PendingClear {
		t.Fatalf("settling a deferred clear must reset the flag")
	}
}

func TestTransition_ErrorStateRecoversOnTickOrRefresh(t *testing.T) {
	for _, input := range []Input{InputTick, InputRefreshRequested} {
		state, action, _ := transition(StateError, input, Memory{})
		if state != StateRefreshing || action != ActionStartDispatch {
			t.Fatalf("input %v: got (%v, %v), want (Refreshing, StartDispatch)", input, state, action)
		}
	}
}

func TestTransition_UnrecognizedInputIsNoOp(t *testing.T) {
	state, action, _ := transition(StateSignedOut, InputTick, Memory{})
	if state != StateSignedOut || action != ActionNone {
		t.Fatalf("a tick while signed out should be a no-op, got (%v, %v)", state, action)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateSignedOut:  "SignedOut",
		StateIdle:       "Idle",
		StateRefreshing: "Refreshing",
		StateCancelling: "Cancelling",
		StateError:      "Error",
		State(99):       "Unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
