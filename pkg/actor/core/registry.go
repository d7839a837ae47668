package core

import (
	"sync"

	"github.com/jabolina/actor-mesh/pkg/actor/types"
)

// ActorAddedEvent is emitted once when an AID is first added to a
// scope; an Add that replaces an existing entry does not emit it again.
type ActorAddedEvent struct {
	AID   types.AID
	Scope types.Scope
}

// ActorRemovedEvent always carries the removed AID — one of the
// defects the specification flags in its source material is a path
// that emits this event without the aid; this contract disallows it.
type ActorRemovedEvent struct {
	AID types.AID
}

// Registry holds the three-scope table of known actors: PROCESS
// (hosted here), LOCAL (same host, other container) and REMOTE
// (other host). Its state is guarded by its own mutex: the container's
// event loop and discovery's receive goroutine both mutate it directly.
type Registry struct {
	mutex sync.Mutex
	// byScope[scope][fullAID] -> actor
	byScope map[types.Scope]map[types.AID]*types.Actor
	// bareIndex[scope][bareAID] -> ordered full AIDs, for pick()'s
	// round-robin policy within a bare group.
	bareIndex map[types.Scope]map[string][]types.AID
	// round tracks the next index to serve for a given bare group,
	// scanning PROCESS, then LOCAL, then REMOTE.
	round map[string]int

	onAdded   []func(ActorAddedEvent)
	onRemoved []func(ActorRemovedEvent)
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byScope: map[types.Scope]map[types.AID]*types.Actor{
			types.PROCESS: {},
			types.LOCAL:   {},
			types.REMOTE:  {},
		},
		bareIndex: map[types.Scope]map[string][]types.AID{
			types.PROCESS: {},
			types.LOCAL:   {},
			types.REMOTE:  {},
		},
		round: map[string]int{},
	}
}

// OnActorAdded registers a listener for actor-added events. The
// facade permits unlimited listeners, matching the public events
// contract.
func (r *Registry) OnActorAdded(f func(ActorAddedEvent)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.onAdded = append(r.onAdded, f)
}

// OnActorRemoved registers a listener for actor-removed events.
func (r *Registry) OnActorRemoved(f func(ActorRemovedEvent)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.onRemoved = append(r.onRemoved, f)
}

// Add inserts an actor under the given scope. An existing entry with
// the identical full AID in the same scope is replaced (the prior
// entry's lifecycle ends); bare-equal entries from other scopes
// coexist untouched.
func (r *Registry) Add(actor *types.Actor, scope types.Scope) {
	r.mutex.Lock()
	bare := actor.ID.Bare()
	table := r.byScope[scope]
	_, replacing := table[actor.ID]
	table[actor.ID] = actor

	if !replacing {
		idx := r.bareIndex[scope]
		idx[bare] = append(idx[bare], actor.ID)
	}
	listeners := append([]func(ActorAddedEvent){}, r.onAdded...)
	r.mutex.Unlock()

	if !replacing {
		for _, f := range listeners {
			f(ActorAddedEvent{AID: actor.ID, Scope: scope})
		}
	}
}

// Remove deletes the actor with the given full AID from the given
// scope. Removal is idempotent: removing an absent entry is a no-op
// that still emits nothing.
func (r *Registry) Remove(aid types.AID, scope types.Scope) {
	r.mutex.Lock()
	table := r.byScope[scope]
	if _, ok := table[aid]; !ok {
		r.mutex.Unlock()
		return
	}
	delete(table, aid)
	bare := aid.Bare()
	idx := r.bareIndex[scope]
	filtered := idx[bare][:0]
	for _, existing := range idx[bare] {
		if existing != aid {
			filtered = append(filtered, existing)
		}
	}
	idx[bare] = filtered
	listeners := append([]func(ActorRemovedEvent){}, r.onRemoved...)
	r.mutex.Unlock()

	for _, f := range listeners {
		f(ActorRemovedEvent{AID: aid})
	}
}

// scopeOrder is the lookup preference when no scope is given.
var scopeOrder = []types.Scope{types.PROCESS, types.LOCAL, types.REMOTE}

// Get returns the actor whose full AID matches aid. When scope is
// nil the lookup prefers PROCESS, then LOCAL, then REMOTE.
func (r *Registry) Get(aid types.AID, scope *types.Scope) (*types.Actor, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if scope != nil {
		a, ok := r.byScope[*scope][aid]
		return a, ok
	}
	for _, s := range scopeOrder {
		if a, ok := r.byScope[s][aid]; ok {
			return a, true
		}
	}
	return nil, false
}

// Pick resolves aid to a concrete, currently-known full AID. If aid
// is already full and known, it is returned as-is. If aid is bare,
// Pick round-robins across the known instances in that bare group,
// scanning PROCESS, then LOCAL, then REMOTE, and remembering the
// next offset to serve per bare group so repeated picks spread load
// across instances instead of pinning to the first one found.
func (r *Registry) Pick(aid types.AID) (types.AID, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !aid.IsBare() {
		for _, s := range scopeOrder {
			if _, ok := r.byScope[s][aid]; ok {
				return aid, true
			}
		}
		return "", false
	}

	bare := aid.Bare()
	for _, s := range scopeOrder {
		group := r.bareIndex[s][bare]
		if len(group) == 0 {
			continue
		}
		key := s.String() + "|" + bare
		i := r.round[key] % len(group)
		r.round[key] = i + 1
		return group[i], true
	}
	return "", false
}

// Snapshot returns every known actor in the given scope. Used by
// discovery to announce this container's hosted PROCESS AIDs.
func (r *Registry) Snapshot(scope types.Scope) []*types.Actor {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]*types.Actor, 0, len(r.byScope[scope]))
	for _, a := range r.byScope[scope] {
		out = append(out, a)
	}
	return out
}

// RemoveContainer drops every LOCAL/REMOTE entry hosted by the given
// container id, used when discovery reports a peer LEAVE.
func (r *Registry) RemoveContainer(containerID string) {
	for _, s := range []types.Scope{types.LOCAL, types.REMOTE} {
		r.mutex.Lock()
		var drop []types.AID
		for aid, a := range r.byScope[s] {
			if a.Container.ID == containerID {
				drop = append(drop, aid)
			}
		}
		r.mutex.Unlock()
		for _, aid := range drop {
			r.Remove(aid, s)
		}
	}
}
