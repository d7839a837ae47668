package core

import "github.com/jabolina/actor-mesh/pkg/actor/types"

// Delivery is everything a Transport needs to carry out a Send. For
// a PROCESS target, Actor is the resolved registry entry and carries
// the handler; for a LOCAL/REMOTE target, Target is the peer
// container's network info and Actor may be nil.
type Delivery struct {
	Req    *types.Request
	Actor  *types.Actor
	Target types.NetInfo
}

// IncomingRequest is handed to a transport's request listener when a
// request arrives for a PROCESS actor hosted here, whether it
// originated in this same container (inproc) or over the wire
// (remote).
type IncomingRequest struct {
	Req   *types.Request
	Reply types.ReplyFunc
}

// Transport is the delivery abstraction multiplexed by scope: inproc
// for PROCESS targets, remote for LOCAL/REMOTE targets. Both
// implementations expose the same event surface so the container's
// request pipeline never needs to know which one it is talking to.
type Transport interface {
	// Send accepts a request for delivery. It never blocks past the
	// point of handing off to the underlying channel/connection.
	Send(d Delivery) error

	// OnRequest registers the listener invoked when a request
	// arrives for an actor hosted by this container.
	OnRequest(f func(IncomingRequest))

	// OnResponse registers the listener invoked when a response for
	// a previously-sent request arrives.
	OnResponse(f func(*types.Response))

	// OnDrop registers the listener invoked when an outgoing request
	// could not be delivered: unreachable peer, queue overflow, or
	// peer refusal. The router uses this signal to retry.
	OnDrop(f func(*types.Request))
}

// Lifecycle is implemented by transports that own network resources
// and need an explicit start/stop, namely the remote transport.
type Lifecycle interface {
	Start(cb func(err error))
	Stop(cb func(err error))
}
