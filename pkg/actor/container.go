// Package actor implements a distributed actor container: a
// process-local runtime hosting named message handlers and routing
// point-to-point request/response messages between them, whether the
// peer lives in this same process, on another container on this
// host, or on a remote host discovered over the network.
package actor

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jabolina/actor-mesh/pkg/actor/core"
	"github.com/jabolina/actor-mesh/pkg/actor/definition"
	"github.com/jabolina/actor-mesh/pkg/actor/types"
)

type lifecycleState int

const (
	stateIdle lifecycleState = iota
	stateLocking
	stateStarted
)

// pendingSend is a captured Send call, held in the starting queue
// until Start completes.
type pendingSend struct {
	from, to string
	content  interface{}
	opts     []types.SendOption
}

// Container is the public façade: actor registration, the request
// pipeline with correlation/timeout/retry, middleware, and the glue
// binding transports, registry and discovery together. Public methods
// return the Container so calls can be chained, matching the
// specification's fluent contract; ID returns the net identity
// instead, and AddActor returns the assigned AID alongside the
// Container.
type Container struct {
	commands chan func()
	closed   chan struct{}

	state lifecycleState
	net   types.NetInfo

	registry    *core.Registry
	correlation *core.Correlation
	invoker     core.Invoker
	inproc      *core.InprocTransport
	remote      *core.RemoteTransport
	discovery   *core.Discovery
	log         types.Logger

	middleware []types.Middleware
	properties map[string]interface{}

	startingQueue []pendingSend
}

// NewContainer builds a container identified by a fresh UUID. If log
// is nil, the default logrus-backed logger is used.
func NewContainer(log types.Logger) *Container {
	if log == nil {
		log = definition.NewDefaultLogger()
	}
	c := &Container{
		commands: make(chan func(), 4096),
		closed:   make(chan struct{}),
		net: types.NetInfo{
			ID:  uuid.NewString(),
			PID: os.Getpid(),
		},
		registry:    core.NewRegistry(),
		correlation: core.NewCorrelation(),
		invoker:     core.NewInvoker(),
		log:         log,
		properties:  map[string]interface{}{},
	}

	c.inproc = core.NewInprocTransport(c.invoker)
	c.inproc.OnRequest(func(ir core.IncomingRequest) { c.post(func() { c.handleOnReq(ir) }) })
	c.inproc.OnResponse(func(res *types.Response) { c.post(func() { c.handleOnRes(res) }) })

	go c.loop()
	return c
}

func (c *Container) loop() {
	for {
		select {
		case cmd := <-c.commands:
			cmd()
		case <-c.closed:
			return
		}
	}
}

// post schedules cmd to run on the container's single event-loop
// goroutine, preserving registration/arrival order across all public
// entry points.
func (c *Container) post(cmd func()) {
	select {
	case c.commands <- cmd:
	default:
		// The loop goroutine drains commands faster than any
		// realistic caller can enqueue them; a full buffer means the
		// loop is gone. Fall back to a blocking send so we never
		// silently drop a command.
		select {
		case c.commands <- cmd:
		case <-c.closed:
		}
	}
}

func (c *Container) now() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// ID returns this container's net identity.
func (c *Container) ID() types.NetInfo {
	return c.net
}

// OnActorAdded registers a listener for actor-added events.
func (c *Container) OnActorAdded(f func(core.ActorAddedEvent)) *Container {
	c.registry.OnActorAdded(f)
	return c
}

// OnActorRemoved registers a listener for actor-removed events.
func (c *Container) OnActorRemoved(f func(core.ActorRemovedEvent)) *Container {
	c.registry.OnActorRemoved(f)
	return c
}

// Use appends a middleware to the pipeline. Middleware run in
// registration order at all four stations.
func (c *Container) Use(mw types.Middleware) *Container {
	c.post(func() { c.middleware = append(c.middleware, mw) })
	return c
}

// Set updates a tunable property. The key "discoveryAddrs" delegates
// to discovery instead of landing in the generic properties map —
// comparing the key, never assigning it, the defect the
// specification's source material is flagged for.
func (c *Container) Set(key string, value interface{}) *Container {
	c.post(func() {
		if key == "discoveryAddrs" {
			addr, ok := value.(string)
			if !ok {
				c.log.Errorf("set(discoveryAddrs, ...) expects a string, got %T", value)
				return
			}
			if c.discovery != nil {
				c.discovery.SetDiscoveryAddrs(addr, func(err error) {
					if err != nil {
						c.log.Errorf("failed updating discovery addresses: %v", err)
					}
				})
			}
			return
		}
		c.properties[key] = value
	})
	return c
}

// Start begins the container's lifecycle: validates params, starts
// the remote transport, then discovery (if configured), transitions
// to started, drains the starting queue in order, then invokes cb.
func (c *Container) Start(params StartParams, cb func(err *types.Error)) *Container {
	c.post(func() { c.handleStart(params, cb) })
	return c
}

func (c *Container) handleStart(params StartParams, cb func(err *types.Error)) {
	switch c.state {
	case stateStarted:
		c.log.Warnf("start: container %s: %v", c.net.ID, ErrAlreadyStarted)
		return
	case stateLocking:
		c.log.Warnf("start: container %s: %v", c.net.ID, ErrTransitionInFlight)
		return
	}

	if !params.valid() {
		if cb != nil {
			cb(types.NewError(types.CodeTechErr, fmt.Errorf("invalid start params: %+v", params)))
		}
		return
	}

	c.state = stateLocking
	if params.IP != "" {
		c.net.IP = params.IP
	} else {
		c.net.IP = localIP()
	}

	c.remote = core.NewRemoteTransport(&c.net, c.invoker, c.log)
	c.remote.OnRequest(func(ir core.IncomingRequest) { c.post(func() { c.handleOnReq(ir) }) })
	c.remote.OnResponse(func(res *types.Response) { c.post(func() { c.handleOnRes(res) }) })
	c.remote.OnDrop(func(req *types.Request) { c.post(func() { c.correlation.SignalDrop(req) }) })

	c.remote.Start(func(err error) {
		if err != nil {
			c.state = stateIdle
			if cb != nil {
				cb(types.NewError(types.CodeTechErr, err))
			}
			return
		}
		c.startDiscovery(params, cb)
	})
}

func (c *Container) startDiscovery(params StartParams, cb func(err *types.Error)) {
	rendezvous := params.rendezvous()
	if rendezvous == "" {
		c.finishStart(cb)
		return
	}

	c.discovery = core.NewDiscovery(&c.net, c.registry, c.correlation, c.hostedAIDs, c.invoker, c.log)
	c.discovery.Start(rendezvous, func(err error) {
		if err != nil {
			c.state = stateIdle
			if cb != nil {
				cb(types.NewError(types.CodeTechErr, err))
			}
			return
		}
		c.finishStart(cb)
	})
}

func (c *Container) finishStart(cb func(err *types.Error)) {
	c.state = stateStarted
	queue := c.startingQueue
	c.startingQueue = nil
	for _, p := range queue {
		c.handleSend(p.from, p.to, p.content, p.opts)
	}
	if cb != nil {
		cb(nil)
	}
}

func (c *Container) hostedAIDs() []types.AID {
	actors := c.registry.Snapshot(types.PROCESS)
	out := make([]types.AID, len(actors))
	for i, a := range actors {
		out[i] = a.ID
	}
	return out
}

// Stop ends the container's lifecycle: stops discovery then the
// remote transport. It does not actively cancel in-flight callbacks;
// pending requests time out on their own once transports are gone.
func (c *Container) Stop(cb func(err *types.Error)) *Container {
	c.post(func() { c.handleStop(cb) })
	return c
}

func (c *Container) handleStop(cb func(err *types.Error)) {
	if c.state == stateIdle {
		c.log.Warnf("stop: container %s: %v", c.net.ID, ErrAlreadyStopped)
		return
	}
	if c.state == stateLocking {
		c.log.Warnf("stop: container %s: %v", c.net.ID, ErrTransitionInFlight)
		return
	}

	c.state = stateLocking
	if c.discovery != nil {
		c.discovery.Stop()
	}
	if c.remote != nil {
		c.remote.Stop(func(err error) {
			c.state = stateIdle
			if cb != nil {
				cb(nil)
			}
		})
		return
	}
	c.state = stateIdle
	if cb != nil {
		cb(nil)
	}
}
