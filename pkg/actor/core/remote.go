package core

import (
	"encoding/gob"
	"fmt"
	"net"
	"sync"

	"github.com/jabolina/actor-mesh/pkg/actor/types"
)

// gob requires every concrete type carried through an interface{}
// field (Request.Content, Response.Content) to be registered before
// it can cross the wire. These cover the shapes a handler is likely
// to pass; a caller sending a bespoke struct must register it itself
// before starting the remote transport.
func init() {
	gob.Register("")
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register([]byte(nil))
	gob.Register([]interface{}(nil))
	gob.Register(map[string]interface{}(nil))
}

// frameKind tags a remote wire frame so the reader knows which
// payload field to decode. Self-describing and version-tolerant in
// the sense required by the specification: an unknown kind is
// logged and skipped rather than crashing the connection.
type frameKind byte

const (
	frameRequest frameKind = iota
	frameResponse
)

// frame is the remote wire envelope, framed request/response keyed
// implicitly by the connection's peer container id.
type frame struct {
	Kind frameKind
	Req  *types.Request
	Res  *types.Response
}

// conn wraps a net.Conn with its own gob encoder/decoder and a write
// mutex, since a gob stream is not safe for concurrent writers.
type conn struct {
	nc      net.Conn
	enc     *gob.Encoder
	dec     *gob.Decoder
	writeMu sync.Mutex
}

func newConn(nc net.Conn) *conn {
	return &conn{nc: nc, enc: gob.NewEncoder(nc), dec: gob.NewDecoder(nc)}
}

func (c *conn) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.Encode(f)
}

// RemoteTransport sends and receives requests between containers
// over plain TCP, framed with encoding/gob. It keeps one connection
// per peer container, dialed lazily and reused, mirroring the
// teacher's own per-peer connection model in its reliable transport.
type RemoteTransport struct {
	log     types.Logger
	invoker Invoker

	mutex    sync.Mutex
	conns    map[string]*conn // keyed by peer container id
	listener net.Listener

	self *types.NetInfo

	onReq func(IncomingRequest)
	onRes func(*types.Response)
	onDrp func(*types.Request)
}

// NewRemoteTransport builds a remote transport bound to self's IP.
// self.Port is filled in by Start once the listener picks an OS port
// (when self.Port is 0 at Start time).
func NewRemoteTransport(self *types.NetInfo, invoker Invoker, log types.Logger) *RemoteTransport {
	return &RemoteTransport{
		log:     log,
		invoker: invoker,
		conns:   map[string]*conn{},
		self:    self,
	}
}

func (r *RemoteTransport) OnRequest(f func(IncomingRequest))  { r.onReq = f }
func (r *RemoteTransport) OnResponse(f func(*types.Response)) { r.onRes = f }
func (r *RemoteTransport) OnDrop(f func(*types.Request))      { r.onDrp = f }

// Start binds the local listening endpoint. If self.Port is 0 the OS
// picks a free port, recorded back into self.Port.
func (r *RemoteTransport) Start(cb func(err error)) {
	addr := fmt.Sprintf("%s:%d", r.self.IP, r.self.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		cb(err)
		return
	}
	r.listener = ln
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		r.self.Port = tcpAddr.Port
	}
	r.invoker.Spawn(r.acceptLoop)
	cb(nil)
}

func (r *RemoteTransport) acceptLoop() {
	for {
		nc, err := r.listener.Accept()
		if err != nil {
			return
		}
		c := newConn(nc)
		r.invoker.Spawn(func() { r.readLoop(c) })
	}
}

func (r *RemoteTransport) readLoop(c *conn) {
	defer c.nc.Close()
	for {
		var f frame
		if err := c.dec.Decode(&f); err != nil {
			return
		}
		switch f.Kind {
		case frameRequest:
			if r.onReq != nil && f.Req != nil {
				r.onReq(IncomingRequest{Req: f.Req, Reply: r.replier(c, f.Req)})
			}
		case frameResponse:
			if r.onRes != nil && f.Res != nil {
				r.onRes(f.Res)
			}
		default:
			r.log.Warnf("remote transport: unknown frame kind %d", f.Kind)
		}
	}
}

func (r *RemoteTransport) replier(c *conn, req *types.Request) types.ReplyFunc {
	return func(err *types.Error, content interface{}) {
		res := &types.Response{
			ID:      req.ID,
			From:    req.To,
			To:      req.From,
			Err:     err,
			Content: content,
			Date:    req.Date,
			Headers: req.Headers,
		}
		if werr := c.write(frame{Kind: frameResponse, Res: res}); werr != nil {
			r.log.Errorf("remote transport: failed replying to %s: %v", req.ID, werr)
		}
	}
}

// Send implements Transport. For PROCESS actors this is never
// called; the router routes those through InprocTransport instead.
func (r *RemoteTransport) Send(d Delivery) error {
	c, err := r.connFor(d.Target)
	if err != nil {
		r.drop(d.Req)
		return err
	}
	if err := c.write(frame{Kind: frameRequest, Req: d.Req}); err != nil {
		r.closeConn(d.Target.ID)
		r.drop(d.Req)
		return err
	}
	return nil
}

func (r *RemoteTransport) drop(req *types.Request) {
	if r.onDrp != nil {
		r.onDrp(req)
	}
}

func (r *RemoteTransport) connFor(target types.NetInfo) (*conn, error) {
	r.mutex.Lock()
	if c, ok := r.conns[target.ID]; ok {
		r.mutex.Unlock()
		return c, nil
	}
	r.mutex.Unlock()

	nc, err := net.Dial("tcp", fmt.Sprintf("%s:%d", target.IP, target.Port))
	if err != nil {
		return nil, err
	}
	c := newConn(nc)

	r.mutex.Lock()
	r.conns[target.ID] = c
	r.mutex.Unlock()

	r.invoker.Spawn(func() { r.readLoop(c) })
	return c, nil
}

func (r *RemoteTransport) closeConn(containerID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if c, ok := r.conns[containerID]; ok {
		c.nc.Close()
		delete(r.conns, containerID)
	}
}

// Stop closes the listener and every connection this transport dialed,
// best-effort. Inbound connections accepted from peers are not tracked
// here; each closes when its peer closes its side.
func (r *RemoteTransport) Stop(cb func(err error)) {
	if r.listener != nil {
		r.listener.Close()
	}
	r.mutex.Lock()
	for id, c := range r.conns {
		c.nc.Close()
		delete(r.conns, id)
	}
	r.mutex.Unlock()
	cb(nil)
}

var (
	_ Transport = (*RemoteTransport)(nil)
	_ Lifecycle = (*RemoteTransport)(nil)
)
