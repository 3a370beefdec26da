// SPDX-License-Identifier: MIT

package manager

import (
	"github.com/avocast/avocast/internal/session/fsm"
	"github.com/avocast/avocast/internal/types"
)

type lifecycleEvent string

const (
	eventStart   lifecycleEvent = "start"
	eventGoLive  lifecycleEvent = "go_live"
	eventFail    lifecycleEvent = "fail"
	eventStop    lifecycleEvent = "stop"
	eventStopped lifecycleEvent = "stopped"
	eventReset   lifecycleEvent = "reset"
)

// newLifecycleMachine builds the session state machine. The edge set
// mirrors types.SessionState.CanTransitionTo; there is deliberately no
// live -> starting edge, a new session must pass through idle.
func newLifecycleMachine() (*fsm.Machine[types.SessionState, lifecycleEvent], error) {
	return fsm.New(types.SessionStateIdle, []fsm.Transition[types.SessionState, lifecycleEvent]{
		{From: types.SessionStateIdle, Event: eventStart, To: types.SessionStateStarting},
		{From: types.SessionStateStarting, Event: eventGoLive, To: types.SessionStateLive},
		{From: types.SessionStateStarting, Event: eventFail, To: types.SessionStateError},
		{From: types.SessionStateStarting, Event: eventStop, To: types.SessionStateStopping},
		{From: types.SessionStateLive, Event: eventStop, To: types.SessionStateStopping},
		{From: types.SessionStateStopping, Event: eventStopped, To: types.SessionStateEnded},
		{From: types.SessionStateEnded, Event: eventReset, To: types.SessionStateIdle},
		{From: types.SessionStateError, Event: eventReset, To: types.SessionStateIdle},
	})
}
