package core

import "github.com/jabolina/actor-mesh/pkg/actor/types"

// InprocTransport delivers requests to PROCESS actors hosted by this
// same container. Delivery is deferred one scheduling tick behind a
// channel + worker goroutine, so a handler is never invoked on the
// caller's own call stack; it never drops, matching the
// specification's contract for the in-process peer.
type InprocTransport struct {
	queue    chan Delivery
	done     chan struct{}
	onReq    func(IncomingRequest)
	onRes    func(*types.Response)
	invoker  Invoker
}

// NewInprocTransport builds an inproc transport and starts its
// delivery worker.
func NewInprocTransport(invoker Invoker) *InprocTransport {
	t := &InprocTransport{
		queue:   make(chan Delivery, 256),
		done:    make(chan struct{}),
		invoker: invoker,
	}
	invoker.Spawn(t.run)
	return t
}

func (t *InprocTransport) run() {
	for {
		select {
		case <-t.done:
			return
		case d := <-t.queue:
			t.deliver(d)
		}
	}
}

func (t *InprocTransport) deliver(d Delivery) {
	if t.onReq == nil || d.Actor == nil {
		return
	}
	replied := make(chan struct{})
	reply := func(err *types.Error, content interface{}) {
		select {
		case <-replied:
			return
		default:
			close(replied)
		}
		if t.onRes == nil {
			return
		}
		t.onRes(&types.Response{
			ID:      d.Req.ID,
			From:    d.Req.To,
			To:      d.Req.From,
			Err:     err,
			Content: content,
			Date:    d.Req.Date,
			Headers: d.Req.Headers,
		})
	}
	t.onReq(IncomingRequest{Req: d.Req, Reply: reply})
}

// Send implements Transport. It never returns an error and never
// signals drop: the in-process path is always deliverable as long as
// the worker goroutine is running.
func (t *InprocTransport) Send(d Delivery) error {
	select {
	case t.queue <- d:
	case <-t.done:
	}
	return nil
}

func (t *InprocTransport) OnRequest(f func(IncomingRequest))   { t.onReq = f }
func (t *InprocTransport) OnResponse(f func(*types.Response))  { t.onRes = f }
func (t *InprocTransport) OnDrop(f func(*types.Request))       {}

// Close stops the delivery worker.
func (t *InprocTransport) Close() {
	close(t.done)
}

var _ Transport = (*InprocTransport)(nil)
