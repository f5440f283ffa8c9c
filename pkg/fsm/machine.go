package fsm

import (
	"fmt"
	"sync"
)

type State string
type Event string

// Any registers a transition that applies from every state.
// A transition registered for the concrete current state takes precedence.
const Any State = "*"

// Handler is executed after a transition has been applied.
type Handler func(event Event, args ...interface{}) error

// Observer is notified of every applied transition.
type Observer func(from, to State, event Event)

type StateMachine struct {
	mu          sync.RWMutex
	current     State
	transitions map[State]map[Event]State
	callbacks   map[State]map[Event]Handler
	observers   []Observer
}

func New(initial State) *StateMachine {
	return &StateMachine{
		current:     initial,
		transitions: make(map[State]map[Event]State),
		callbacks:   make(map[State]map[Event]Handler),
	}
}

func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Is reports whether the machine is currently in state s.
func (sm *StateMachine) Is(s State) bool {
	return sm.Current() == s
}

func (sm *StateMachine) AddTransition(from, to State, event Event, callback Handler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.transitions[from]; !ok {
		sm.transitions[from] = make(map[Event]State)
		sm.callbacks[from] = make(map[Event]Handler)
	}
	sm.transitions[from][event] = to
	sm.callbacks[from][event] = callback
}

// OnTransition registers an observer called after every applied transition.
func (sm *StateMachine) OnTransition(o Observer) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.observers = append(sm.observers, o)
}

// Can reports whether event is valid from the current state.
func (sm *StateMachine) Can(event Event) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, _, ok := sm.lookup(event)
	return ok
}

func (sm *StateMachine) lookup(event Event) (State, Handler, bool) {
	if next, ok := sm.transitions[sm.current][event]; ok {
		return next, sm.callbacks[sm.current][event], true
	}
	if next, ok := sm.transitions[Any][event]; ok {
		return next, sm.callbacks[Any][event], true
	}
	return "", nil, false
}

// Fire triggers a state transition. It is thread-safe.
// The state is updated before the handler and observers run, and the lock is
// not held while they run, so handlers may call Current or Fire.
func (sm *StateMachine) Fire(event Event, args ...interface{}) error {
	sm.mu.Lock()
	next, handler, ok := sm.lookup(event)
	if !ok {
		cur := sm.current
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition from %s via %s", cur, event)
	}
	prev := sm.current
	sm.current = next
	observers := append([]Observer(nil), sm.observers...)
	sm.mu.Unlock()

	for _, o := range observers {
		o(prev, next, event)
	}

	if handler != nil {
		return handler(event, args...)
	}
	return nil
}

// Personal.AI order the ending
