package actor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jabolina/actor-mesh/pkg/actor/core"
	"github.com/jabolina/actor-mesh/pkg/actor/types"
)

// Send issues a request from `from` to `to`. Before the container is
// started, the call is captured in the starting queue and replayed,
// in order, once Start completes. Options replace the dynamic
// "timeout may be a number/function/object" overload from the
// specification's source material with an explicit bundle.
func (c *Container) Send(from, to string, content interface{}, opts ...types.SendOption) *Container {
	c.post(func() { c.handleSend(from, to, content, opts) })
	return c
}

func (c *Container) handleSend(from, to string, content interface{}, opts []types.SendOption) {
	if c.state != stateStarted {
		c.startingQueue = append(c.startingQueue, pendingSend{from, to, content, opts})
		return
	}

	o := &types.SendOptions{}
	for _, opt := range opts {
		opt(o)
	}

	timeout := o.Timeout
	switch {
	case timeout <= 0 && o.Cb != nil:
		timeout = int64(DefaultSendTimeout / time.Millisecond)
	case timeout <= 0:
		timeout = int64(MaxSendTimeout / time.Millisecond)
	case timeout > int64(MaxSendTimeout/time.Millisecond):
		timeout = int64(MaxSendTimeout / time.Millisecond)
	}

	headers := o.Headers
	if headers == nil {
		headers = map[string]string{}
	}

	req := &types.Request{
		ID:      uuid.NewString(),
		From:    from,
		To:      to,
		OrigTo:  to,
		Content: content,
		Headers: headers,
		Date:    c.now(),
		Timeout: timeout,
		Cb:      o.Cb != nil,
	}

	if !req.Valid() {
		err := types.NewError(types.CodeTechErr, fmt.Errorf("invalid request from=%q to=%q timeout=%d", from, to, timeout))
		if o.Cb != nil {
			o.Cb(err, nil)
		} else {
			c.log.Errorf("send: %s", err)
		}
		return
	}

	env := &types.Envelope{Kind: types.REQ_OUT, Req: req}
	c.runMiddleware(types.REQ_OUT, env, nil, func() {
		if o.Cb != nil {
			c.arm(req, o.Cb)
		}
		c.internalSend(req)
	})
}

// arm registers the correlation state for a request expecting a
// response: a one-shot response waiter, a multi-shot drop listener
// driving retry, and the absolute-deadline timer that synthesises a
// TIMEOUT outcome. Only requests with a callback get any of this —
// fire-and-forget requests end the moment the transport returns.
func (c *Container) arm(req *types.Request, cb func(err *types.Error, res *types.Response)) {
	c.correlation.AwaitResponse(req.ID, func(res *types.Response) {
		cb(res.Err, res)
	})
	c.correlation.AwaitDrop(req.ID, func(r *types.Request) {
		c.onDrop(r)
	})
	time.AfterFunc(time.Duration(req.Timeout)*time.Millisecond, func() {
		c.post(func() {
			c.failRequest(req, types.NewError(types.CodeTimeout, nil))
		})
	})
}

// onDrop is the retry driver: while the request is still within its
// absolute deadline, wait RetryDelay and re-resolve from scratch;
// otherwise do nothing further, the armed timeout will complete the
// caller.
func (c *Container) onDrop(req *types.Request) {
	if req.Expired(c.now()) {
		return
	}
	time.AfterFunc(RetryDelay, func() {
		c.post(func() { c.internalSend(req) })
	})
}

// internalSend resolves req's destination and dispatches through
// the transport matching the resolved actor's scope. Reuses
// req.OrigTo (the original, possibly-bare destination) on every
// attempt so a retry can land on a different peer than the one that
// just dropped the request.
func (c *Container) internalSend(req *types.Request) {
	c.searchActor(types.AID(req.OrigTo), func(resolved types.AID, ok bool) {
		if !ok {
			c.failRequest(req, types.NewError(types.CodeNotFound, nil))
			return
		}
		if req.Expired(c.now()) {
			// a timeout event is already pending for this id.
			return
		}
		actor, found := c.registry.Get(resolved, nil)
		if !found {
			c.correlation.SignalDrop(req)
			return
		}
		req.To = string(resolved)
		if actor.Scope == types.PROCESS {
			_ = c.inproc.Send(core.Delivery{Req: req, Actor: actor})
			return
		}
		_ = c.remote.Send(core.Delivery{Req: req, Target: actor.Container})
	})
}

// searchActor resolves aid to a concrete AID, synchronously from the
// registry when already known, or asynchronously once discovery
// answers. cb is invoked at most once, with ok=false if neither the
// registry nor discovery resolve aid within ResearchTimeout — a
// safeguard independent of (and generally shorter than) the
// request's own absolute deadline.
func (c *Container) searchActor(aid types.AID, cb func(resolved types.AID, ok bool)) {
	key := string(aid)
	done := false
	c.correlation.AwaitFound(key, func(resolved types.AID) {
		c.post(func() {
			if done {
				return
			}
			done = true
			cb(resolved, true)
		})
	})

	if resolved, ok := c.registry.Pick(aid); ok {
		c.correlation.SignalFound(key, resolved)
	}
	if c.discovery != nil {
		c.discovery.NotifySearched(aid)
	}

	time.AfterFunc(ResearchTimeout, func() {
		c.post(func() {
			if done {
				return
			}
			done = true
			c.correlation.ForgetFound(key)
			cb("", false)
		})
	})
}

// failRequest completes req immediately with err, bypassing the wire
// RES_IN middleware station since the outcome never arrived over a
// transport — the same treatment the armed timeout gives TIMEOUT.
func (c *Container) failRequest(req *types.Request, err *types.Error) {
	res := &types.Response{
		ID:      req.ID,
		From:    req.To,
		To:      req.From,
		Err:     err,
		Date:    req.Date,
		Headers: req.Headers,
	}
	if c.correlation.ResolveResponse(req.ID, res) {
		c.correlation.Forget(req.ID)
	}
}

// runMiddleware runs the configured chain for one envelope at one
// station, strictly in registration order.
func (c *Container) runMiddleware(kind types.Kind, env *types.Envelope, reply types.ReplyFunc, done func()) {
	types.Chain(c.middleware, kind, env, reply, done)
}

// onceReply wraps a ReplyFunc so only its first invocation reaches
// the transport; later calls are silently ignored, giving the
// at-most-once guarantee regardless of whether a short-circuiting
// middleware or the handler itself ends up answering.
func onceReply(f types.ReplyFunc) types.ReplyFunc {
	fired := false
	return func(err *types.Error, content interface{}) {
		if fired {
			return
		}
		fired = true
		f(err, content)
	}
}

// handleOnReq resolves the target PROCESS actor, runs middleware
// REQ_IN (which may short-circuit by replying directly without ever
// invoking the handler), then dispatches to the handler deferred one
// tick. The handler's own reply runs middleware RES_OUT before
// reaching the transport.
func (c *Container) handleOnReq(ir core.IncomingRequest) {
	req := ir.Req
	process := types.PROCESS
	target, ok := c.registry.Get(types.AID(req.To), &process)
	sendFn := onceReply(ir.Reply)

	if !ok {
		c.log.Warnf("onReq: no PROCESS actor hosts %s", req.To)
		return
	}

	env := &types.Envelope{Kind: types.REQ_IN, Req: req}
	c.runMiddleware(types.REQ_IN, env, sendFn, func() {
		c.invoker.Spawn(func() {
			c.dispatchToHandler(target, req, sendFn)
		})
	})
}

func (c *Container) dispatchToHandler(target *types.Actor, req *types.Request, sendFn types.ReplyFunc) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("handler panic for %s: %v", req.To, r)
		}
	}()

	handlerReply := func(err *types.Error, content interface{}) {
		c.post(func() {
			res := &types.Response{
				ID:      req.ID,
				From:    req.To,
				To:      req.From,
				Err:     err,
				Content: content,
				Date:    req.Date,
				Headers: req.Headers,
			}
			env := &types.Envelope{Kind: types.RES_OUT, Res: res}
			c.runMiddleware(types.RES_OUT, env, sendFn, func() {
				sendFn(res.Err, res.Content)
			})
		})
	}

	ctx := c.actorContext(target.ID)
	target.OnMessage(ctx, req, handlerReply)
}

// handleOnRes runs middleware RES_IN, then resolves the waiting
// caller callback. If nobody is waiting (fire-and-forget, or the
// deadline already fired) the response is simply discarded.
func (c *Container) handleOnRes(res *types.Response) {
	env := &types.Envelope{Kind: types.RES_IN, Res: res}
	c.runMiddleware(types.RES_IN, env, nil, func() {
		if c.correlation.ResolveResponse(res.ID, res) {
			c.correlation.Forget(res.ID)
		}
	})
}
