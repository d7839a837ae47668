package core

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jabolina/actor-mesh/pkg/actor/types"
	"github.com/jabolina/relt/pkg/relt"
)

// discoveryKind tags a discovery wire message. The wire is JSON,
// matching the teacher's own choice for its relt-backed transport
// (pkg/mcast/core/transport.go), self-describing enough that a peer
// running a newer/older protocol version can still decode the
// envelope and ignore a kind it does not recognise.
type discoveryKind string

const (
	kindAnnounce discoveryKind = "ANNOUNCE"
	kindSearch   discoveryKind = "SEARCH"
	kindAnswer   discoveryKind = "ANSWER"
	kindLeave    discoveryKind = "LEAVE"
)

// discoveryMessage is the wire shape for every discovery frame.
type discoveryMessage struct {
	Kind        discoveryKind `json:"kind"`
	ContainerID string        `json:"containerId"`
	Net         types.NetInfo `json:"net"`
	AIDs        []string      `json:"aids,omitempty"`
	AID         string        `json:"aid,omitempty"`
}

// HostedLister supplies the AIDs this container currently hosts, so
// Discovery can announce them without importing the registry's full
// surface.
type HostedLister func() []types.AID

// Discovery joins a multicast rendezvous group and answers "who
// hosts actor X?" by populating the registry with LOCAL (same host)
// or REMOTE (other host) entries. Grounded on the teacher's
// ReliableTransport, which wraps the same relt multicast library for
// an analogous group-broadcast shape.
type Discovery struct {
	log         types.Logger
	registry    *Registry
	correlation *Correlation
	invoker     Invoker
	self        *types.NetInfo
	hosted      HostedLister

	mutex sync.Mutex
	r     *relt.Relt
	group string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDiscovery builds a Discovery bound to self's identity. Start
// must be called before any announce/search/stop operation.
func NewDiscovery(self *types.NetInfo, registry *Registry, correlation *Correlation, hosted HostedLister, invoker Invoker, log types.Logger) *Discovery {
	return &Discovery{
		log:         log,
		registry:    registry,
		correlation: correlation,
		invoker:     invoker,
		self:        self,
		hosted:      hosted,
	}
}

// Start joins the rendezvous identified by addr (e.g.
// "224.0.0.1:5555") and announces this container's presence and
// hosted actors.
func (d *Discovery) Start(addr string, cb func(err error)) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = d.self.ID
	conf.Exchange = relt.GroupAddress(addr)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		cb(err)
		return
	}

	d.mutex.Lock()
	d.r = r
	d.group = addr
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.mutex.Unlock()

	d.invoker.Spawn(d.poll)
	d.announce()
	cb(nil)
}

func (d *Discovery) poll() {
	listener, err := d.r.Consume()
	if err != nil {
		d.log.Errorf("discovery: failed consuming rendezvous: %v", err)
		return
	}
	for {
		select {
		case <-d.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			if recv.Error != nil {
				d.log.Warnf("discovery: receive error: %v", recv.Error)
				continue
			}
			d.consume(recv.Data)
		}
	}
}

func (d *Discovery) consume(data []byte) {
	var msg discoveryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.log.Warnf("discovery: failed decoding message: %v", err)
		return
	}
	if msg.ContainerID == d.self.ID {
		return
	}

	scope := types.REMOTE
	if msg.Net.IP == d.self.IP {
		scope = types.LOCAL
	}

	switch msg.Kind {
	case kindAnnounce:
		d.learn(msg, scope)
	case kindSearch:
		d.answer(msg)
	case kindAnswer:
		d.learn(msg, scope)
		if msg.AID != "" {
			resolved := types.AID(msg.AID)
			d.correlation.SignalFound(msg.AID, resolved)
			d.correlation.SignalFound(resolved.Bare(), resolved)
		}
	case kindLeave:
		d.registry.RemoveContainer(msg.ContainerID)
	default:
		d.log.Warnf("discovery: unknown message kind %q", msg.Kind)
	}
}

func (d *Discovery) learn(msg discoveryMessage, scope types.Scope) {
	for _, raw := range msg.AIDs {
		aid := types.AID(raw)
		d.registry.Add(&types.Actor{
			ID:        aid,
			Container: msg.Net,
			Scope:     scope,
		}, scope)
		d.correlation.SignalFound(raw, aid)
		d.correlation.SignalFound(aid.Bare(), aid)
	}
}

// answer responds to a SEARCH for an AID we host, by re-announcing
// that single actor. Matches either the exact or bare form of the
// searched AID against our hosted PROCESS actors.
func (d *Discovery) answer(msg discoveryMessage) {
	searched := types.AID(msg.AID)
	for _, aid := range d.hosted() {
		if aid == searched || aid.BareEqual(searched) {
			d.broadcast(discoveryMessage{
				Kind:        kindAnswer,
				ContainerID: d.self.ID,
				Net:         *d.self,
				AIDs:        []string{string(aid)},
				AID:         string(aid),
			})
			return
		}
	}
}

// NotifySearched broadcasts a search request for aid (exact or
// bare) to every peer on the rendezvous. Idempotent: callers may
// call this repeatedly for the same aid with no ill effect beyond
// extra traffic.
func (d *Discovery) NotifySearched(aid types.AID) {
	d.broadcast(discoveryMessage{
		Kind:        kindSearch,
		ContainerID: d.self.ID,
		Net:         *d.self,
		AID:         string(aid),
	})
}

func (d *Discovery) announce() {
	d.broadcast(discoveryMessage{
		Kind:        kindAnnounce,
		ContainerID: d.self.ID,
		Net:         *d.self,
		AIDs:        aidsToStrings(d.hosted()),
	})
}

func aidsToStrings(aids []types.AID) []string {
	out := make([]string, len(aids))
	for i, a := range aids {
		out[i] = string(a)
	}
	return out
}

func (d *Discovery) broadcast(msg discoveryMessage) {
	d.mutex.Lock()
	r := d.r
	group := d.group
	d.mutex.Unlock()
	if r == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		d.log.Errorf("discovery: failed encoding message: %v", err)
		return
	}
	send := relt.Send{Address: relt.GroupAddress(group), Data: data}
	if err := r.Broadcast(d.ctx, send); err != nil {
		d.log.Errorf("discovery: failed broadcasting %s: %v", msg.Kind, err)
	}
}

// SetDiscoveryAddrs replaces the rendezvous address. Only one
// rendezvous is joined at a time in this implementation; joining a
// new one leaves the old one (implicitly, by restart).
func (d *Discovery) SetDiscoveryAddrs(addr string, cb func(err error)) {
	d.Stop()
	d.Start(addr, cb)
}

// Stop announces departure and leaves the rendezvous.
func (d *Discovery) Stop() {
	d.mutex.Lock()
	r := d.r
	cancel := d.cancel
	d.mutex.Unlock()
	if r == nil {
		return
	}
	d.broadcast(discoveryMessage{Kind: kindLeave, ContainerID: d.self.ID, Net: *d.self})
	if cancel != nil {
		cancel()
	}
	if err := r.Close(); err != nil {
		d.log.Errorf("discovery: failed closing rendezvous: %v", err)
	}
	d.mutex.Lock()
	d.r = nil
	d.mutex.Unlock()
}
