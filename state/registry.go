package state

import "github.com/rickchristie/director"

// subscription is a registry entry. removed is set on unsubscribe so an in-progress
// broadcast skips it.
type subscription struct {
	id      uint64
	sub     director.DifficultySubscriber
	removed bool
}

// Registry keeps difficulty subscribers in registration order and dispatches events to
// them synchronously.
//
// Subscribers may subscribe or unsubscribe from inside a callback. A broadcast walks the
// list as it was when the broadcast began: subscribers added mid-broadcast wait for the
// next one, subscribers removed mid-broadcast are skipped.
//
// Registry is not safe for concurrent use.
type Registry struct {
	subs   []*subscription
	nextID uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends sub and returns its id. A nil subscriber is ignored and yields 0.
func (r *Registry) Subscribe(sub director.DifficultySubscriber) uint64 {
	if sub == nil {
		return 0
	}
	r.nextID++
	r.subs = append(r.subs, &subscription{id: r.nextID, sub: sub})
	return r.nextID
}

// Unsubscribe removes the subscriber with the given id. Unknown ids are ignored.
func (r *Registry) Unsubscribe(id uint64) {
	for i, s := range r.subs {
		if s.id == id {
			s.removed = true
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers event to every subscriber, in registration order.
func (r *Registry) Dispatch(event *director.DifficultyChangedEvent) {
	snapshot := r.subs
	for _, s := range snapshot {
		if s.removed {
			continue
		}
		s.sub.OnDifficultyChanged(event)
	}
}

// Send delivers event to a single subscriber, if it is still registered.
func (r *Registry) Send(id uint64, event *director.DifficultyChangedEvent) {
	for _, s := range r.subs {
		if s.id == id && !s.removed {
			s.sub.OnDifficultyChanged(event)
			return
		}
	}
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	return len(r.subs)
}
