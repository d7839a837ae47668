package actor

import (
	"github.com/google/uuid"
	"github.com/jabolina/actor-mesh/pkg/actor/types"
)

// AddActor registers a handler under aid, hosted by this container
// with scope PROCESS. A bare aid is completed with a fresh UUID
// resource so every hosted actor carries a fully-qualified identity;
// a resolved aid is used as-is. The actor-added event fires exactly
// once, before the handler is ever invoked, matching the ordering
// guarantee in the specification's concurrency section.
//
// It returns the fully-qualified AID assigned and the container, for
// chaining.
func (c *Container) AddActor(aid string, handler types.Handler) (types.AID, *Container) {
	full := resolveAID(types.AID(aid))
	c.post(func() { c.handleAddActor(full, handler) })
	return full, c
}

func resolveAID(aid types.AID) types.AID {
	if aid.IsBare() {
		return aid.WithResource(uuid.NewString())
	}
	return aid
}

func (c *Container) handleAddActor(full types.AID, handler types.Handler) {
	if !full.Valid() {
		c.log.Errorf("addActor: %q: %v", full, ErrInvalidAID)
		return
	}

	actor := &types.Actor{
		ID:        full,
		Container: c.net,
		Scope:     types.PROCESS,
		OnMessage: handler,
	}
	c.registry.Add(actor, types.PROCESS)
}

// RemoveActor removes the PROCESS registration for aid. Validates
// the identifier first; an invalid aid produces a logged validation
// error and no state change.
func (c *Container) RemoveActor(aid string) *Container {
	a := types.AID(aid)
	c.post(func() {
		if !a.Valid() {
			c.log.Errorf("removeActor: %q: %v", aid, ErrInvalidAID)
			return
		}
		c.registry.Remove(a, types.PROCESS)
	})
	return c
}

// actorContext builds the capability handed to a handler: its own
// id, this container's net identity, and a Send shortcut that
// injects the actor's own id as From.
func (c *Container) actorContext(self types.AID) *types.Context {
	return &types.Context{
		ID:        self,
		Container: c.net,
		Send: func(to string, content interface{}, opts ...types.SendOption) {
			c.Send(string(self), to, content, opts...)
		},
	}
}
