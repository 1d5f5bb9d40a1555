package store

import (
	"reflect"
	"sync"

	"github.com/flowteam/core/status"
)

// Snapshot is the read-only projection of store state a Selector operates
// on. It's assembled fresh for every notification, never aliasing the
// store's own maps/slices, so a reaction can't accidentally mutate state
// out from under the mutex that isn't held while it runs.
type Snapshot struct {
	WorkflowStatus status.WorkflowStatus
	WorkflowResult any
	Tasks          []TaskSnapshot
}

// TaskSnapshot is one task's externally-relevant fields at the moment of a
// notification.
type TaskSnapshot struct {
	ID     string
	Name   string
	Status status.TaskStatus
	Result any
}

// Selector projects the part of a Snapshot a subscriber cares about.
// Selectors must be pure: given the same Snapshot they must always return
// an equal value.
type Selector func(Snapshot) any

// Reaction runs when a Selector's projected value changes from one
// notification to the next.
type Reaction func(Snapshot)

type subscription struct {
	id       int
	selector Selector
	reaction Reaction
	mu       sync.Mutex
	last     any
	hasLast  bool
}

// Subscribe registers a selector/reaction pair. The reaction fires on the
// first notification after registration (not on registration itself),
// whatever the projection, and afterwards whenever the projection differs
// from the one seen at the previous notification. The returned func
// unsubscribes.
func (s *Store) Subscribe(selector Selector, reaction Reaction) func() {
	s.mu.Lock()
	id := s.subSeq
	s.subSeq++
	sub := &subscription{id: id, selector: selector, reaction: reaction}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() { s.unsubscribe(id) }
}

func (s *Store) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify assembles a fresh Snapshot and evaluates every subscription's
// selector against it. A selector panicking is isolated: it's logged as a
// task-less workflow log entry and the other subscriptions still run.
func (s *Store) notify() {
	snap := s.snapshot()

	s.mu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		s.fireOne(sub, snap)
	}
}

func (s *Store) fireOne(sub *subscription, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.appendWorkflowLog("subscriber selector panicked, isolated from other subscribers")
		}
	}()

	projected := sub.selector(snap)

	sub.mu.Lock()
	changed := !sub.hasLast || !reflect.DeepEqual(sub.last, projected)
	sub.last = projected
	sub.hasLast = true
	sub.mu.Unlock()

	if changed {
		sub.reaction(snap)
	}
}

func (s *Store) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]TaskSnapshot, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		tasks = append(tasks, TaskSnapshot{ID: t.ID, Name: t.Name, Status: t.Status(), Result: t.Result()})
	}

	return Snapshot{
		WorkflowStatus: s.workflowStatus,
		WorkflowResult: s.workflowResult,
		Tasks:          tasks,
	}
}
