package core

import (
	"sync"

	"github.com/jabolina/actor-mesh/pkg/actor/types"
)

// Correlation is the request-lifecycle waiter table: who is waiting
// for a response keyed by request id, who is waiting for a drop
// signal keyed by request id, and who is waiting to learn a concrete
// AID resolved for a search keyed by the searched (possibly bare)
// AID. It replaces the event-emitter keys "res|<id>", "drop|<id>"
// and "<aid>!found" from the source material with typed maps, per
// the specification's design notes.
//
// A response listener and the synthetic timeout race to resolve the
// same id; ResolveResponse is idempotent, the first caller wins and
// the listener is removed before either side's callback runs.
type Correlation struct {
	mutex sync.Mutex
	res   map[string]func(*types.Response)
	drop  map[string][]func(*types.Request)
	found map[string][]func(types.AID)
}

// NewCorrelation builds an empty correlation table.
func NewCorrelation() *Correlation {
	return &Correlation{
		res:   map[string]func(*types.Response){},
		drop:  map[string][]func(*types.Request){},
		found: map[string][]func(types.AID){},
	}
}

// AwaitResponse registers the one-shot callback invoked the first
// time a response (real or synthetic timeout) arrives for id.
func (c *Correlation) AwaitResponse(id string, f func(*types.Response)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.res[id] = f
}

// ResolveResponse delivers res to the registered waiter for its id,
// if any, and tears the listener down. Returns false if nobody was
// waiting (already resolved, or never registered).
func (c *Correlation) ResolveResponse(id string, res *types.Response) bool {
	c.mutex.Lock()
	f, ok := c.res[id]
	if ok {
		delete(c.res, id)
	}
	c.mutex.Unlock()
	if !ok {
		return false
	}
	f(res)
	return true
}

// AwaitDrop registers a multi-shot listener invoked every time the
// transport drops an outgoing request with this id, until the drop
// listener is torn down via Forget.
func (c *Correlation) AwaitDrop(id string, f func(*types.Request)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.drop[id] = append(c.drop[id], f)
}

// SignalDrop notifies every drop listener registered for req.ID.
func (c *Correlation) SignalDrop(req *types.Request) {
	c.mutex.Lock()
	listeners := append([]func(*types.Request){}, c.drop[req.ID]...)
	c.mutex.Unlock()
	for _, f := range listeners {
		f(req)
	}
}

// Forget releases all correlation state for a request id: the
// response waiter and the drop listeners. Must be called once the
// request reaches a terminal state.
func (c *Correlation) Forget(id string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.res, id)
	delete(c.drop, id)
}

// AwaitFound registers a one-shot callback fired the next time aid
// resolves to a concrete actor, either synchronously from a registry
// hit or asynchronously once discovery answers.
func (c *Correlation) AwaitFound(aid string, f func(types.AID)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.found[aid] = append(c.found[aid], f)
}

// SignalFound resolves every waiter registered for aid with the
// concrete resolved AID, then clears them (one-shot).
func (c *Correlation) SignalFound(aid string, resolved types.AID) {
	c.mutex.Lock()
	listeners := c.found[aid]
	delete(c.found, aid)
	c.mutex.Unlock()
	for _, f := range listeners {
		f(resolved)
	}
}

// ForgetFound removes any still-pending search waiters for aid
// without resolving them, used by the research-timeout safeguard.
func (c *Correlation) ForgetFound(aid string) []func(types.AID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	listeners := c.found[aid]
	delete(c.found, aid)
	return listeners
}
