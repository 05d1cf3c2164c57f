// Package auth holds the session authentication state machine, access token
// inspection and session cookie signing.
package auth

import (
	"fmt"

	"github.com/okian/vitaldash/internal/domain/model"
)

// Event drives the auth state machine.
type Event string

// Auth events.
const (
	EventSubmit  Event = "submit"  // credentials sent upstream
	EventSucceed Event = "succeed" // upstream accepted credentials
	EventFail    Event = "fail"    // upstream rejected credentials
	EventExpire  Event = "expire"  // access token expired and could not be refreshed
	EventRefresh Event = "refresh" // access token was renewed
	EventLogout  Event = "logout"
)

type edge struct {
	from model.AuthState
	ev   Event
}

var transitions = map[edge]model.AuthState{
	{model.AuthAnonymous, EventSubmit}:       model.AuthAuthenticating,
	{model.AuthAuthenticating, EventSucceed}: model.AuthAuthenticated,
	{model.AuthAuthenticating, EventFail}:    model.AuthAnonymous,
	{model.AuthAuthenticated, EventExpire}:   model.AuthExpired,
	{model.AuthAuthenticated, EventRefresh}:  model.AuthAuthenticated,
	{model.AuthExpired, EventSubmit}:         model.AuthAuthenticating,
	{model.AuthExpired, EventRefresh}:        model.AuthAuthenticated,
}

// Next returns the state reached from `from` on `ev`.
// Logout is accepted from every state. An empty state is treated as anonymous.
func Next(from model.AuthState, ev Event) (model.AuthState, error) {
	if from == "" {
		from = model.AuthAnonymous
	}
	if ev == EventLogout {
		return model.AuthAnonymous, nil
	}
	to, ok := transitions[edge{from, ev}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
	}
	return to, nil
}

// Apply moves the session to the next state.
func Apply(s *model.Session, ev Event) (from, to model.AuthState, err error) {
	from = s.State
	to, err = Next(from, ev)
	if err != nil {
		return from, from, err
	}
	s.State = to
	if ev == EventLogout {
		s.Logout()
	}
	return from, to, nil
}
