package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/jabolina/actor-mesh/pkg/actor/core"
	"github.com/jabolina/actor-mesh/pkg/actor/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedContainer(t *testing.T) *Container {
	t.Helper()
	c := NewContainer(nil)
	done := make(chan *types.Error, 1)
	c.Start(StartParams{}, func(err *types.Error) { done <- err })
	select {
	case err := <-done:
		require.Nil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("container never finished starting")
	}
	return c
}

func stopContainer(t *testing.T, c *Container) {
	t.Helper()
	done := make(chan struct{})
	c.Stop(func(err *types.Error) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("container never finished stopping")
	}
}

// Scenario 1: in-process ping.
func TestContainer_InProcessPing(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	received := make(chan *types.Request, 1)
	ping, _ := c.AddActor("ping", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {})
	pong, _ := c.AddActor("pong", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {
		received <- req
		reply(nil, "pong")
	})

	cbRes := make(chan *types.Response, 1)
	c.Send(string(ping), string(pong), "ping", types.WithCallback(func(err *types.Error, res *types.Response) {
		assert.Nil(t, err)
		cbRes <- res
	}))

	select {
	case req := <-received:
		assert.Equal(t, "ping", req.Content)
		assert.Equal(t, string(ping), req.From)
	case <-time.After(time.Second):
		t.Fatal("pong handler never received the request")
	}

	select {
	case res := <-cbRes:
		assert.Equal(t, "pong", res.Content)
	case <-time.After(time.Second):
		t.Fatal("sender callback never fired")
	}
}

// Scenario 2: timeout.
func TestContainer_Timeout(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	_, _ = c.AddActor("a", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {})

	cbRes := make(chan *types.Response, 1)
	var cbErr *types.Error
	c.Send("a", "nobody", "hi", types.WithTimeout(50), types.WithCallback(func(err *types.Error, res *types.Response) {
		cbErr = err
		cbRes <- res
	}))

	select {
	case res := <-cbRes:
		require.NotNil(t, cbErr)
		assert.Equal(t, types.CodeTimeout, cbErr.Code)
		require.NotNil(t, res.Err)
		assert.Equal(t, types.CodeTimeout, res.Err.Code)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout callback never fired")
	}
}

// Scenario 5: middleware short-circuit.
func TestContainer_MiddlewareShortCircuit(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	invoked := false
	target, _ := c.AddActor("guarded", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {
		invoked = true
		reply(nil, "should never run")
	})
	sender, _ := c.AddActor("caller", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {})

	c.Use(func(kind types.Kind, env *types.Envelope, reply types.ReplyFunc, next func()) {
		if kind == types.REQ_IN {
			reply(types.NewError("FORBIDDEN", nil), nil)
			return
		}
		next()
	})

	cbRes := make(chan *types.Response, 1)
	var cbErr *types.Error
	c.Send(string(sender), string(target), "x", types.WithCallback(func(err *types.Error, res *types.Response) {
		cbErr = err
		cbRes <- res
	}))

	select {
	case <-cbRes:
		require.NotNil(t, cbErr)
		assert.Equal(t, "FORBIDDEN", cbErr.Code)
		assert.False(t, invoked, "target handler must never run once middleware short-circuits")
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

// Scenario 6: starting queue preserves order.
func TestContainer_StartingQueuePreservesOrder(t *testing.T) {
	c := NewContainer(nil)

	var mu sync.Mutex
	var order []string
	target, _ := c.AddActor("sink", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {
		mu.Lock()
		order = append(order, req.Content.(string))
		mu.Unlock()
		reply(nil, nil)
	})

	c.Send("source", string(target), "first")
	c.Send("source", string(target), "second")
	c.Send("source", string(target), "third")

	done := make(chan *types.Error, 1)
	c.Start(StartParams{}, func(err *types.Error) { done <- err })
	select {
	case err := <-done:
		require.Nil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("container never finished starting")
	}
	defer stopContainer(t, c)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestContainer_SendToUnknownActorResolvesNotFound(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	cbRes := make(chan *types.Response, 1)
	var cbErr *types.Error
	// Timeout set well past ResearchTimeout so the NOTFOUND safeguard,
	// not the request's own deadline, is what resolves this call.
	c.Send("nobody/here", "still-nobody", "x", types.WithTimeout(int64(10*time.Second/time.Millisecond)), types.WithCallback(func(err *types.Error, res *types.Response) {
		cbErr = err
		cbRes <- res
	}))

	select {
	case <-cbRes:
		require.NotNil(t, cbErr)
		assert.Equal(t, types.CodeNotFound, cbErr.Code)
	case <-time.After(ResearchTimeout + 2*time.Second):
		t.Fatal("callback never fired")
	}
}

// Boundary: an invalid AID in send produces a synchronous validation
// error and never reaches searchActor/discovery.
func TestContainer_SendWithInvalidAIDFailsValidation(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	cbRes := make(chan *types.Response, 1)
	var cbErr *types.Error
	c.Send("/bad", "to", "x", types.WithCallback(func(err *types.Error, res *types.Response) {
		cbErr = err
		cbRes <- res
	}))

	select {
	case <-cbRes:
		require.NotNil(t, cbErr)
		assert.Equal(t, types.CodeTechErr, cbErr.Code)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestContainer_SendWithInvalidDestinationAIDFailsValidation(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	cbRes := make(chan *types.Response, 1)
	var cbErr *types.Error
	c.Send("from", "bad/", "x", types.WithCallback(func(err *types.Error, res *types.Response) {
		cbErr = err
		cbRes <- res
	}))

	select {
	case <-cbRes:
		require.NotNil(t, cbErr)
		assert.Equal(t, types.CodeTechErr, cbErr.Code)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestContainer_AddActorAssignsResourceOnBareID(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	full, _ := c.AddActor("worker", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {})
	assert.Equal(t, "worker", full.Bare())
	assert.NotEmpty(t, full.Resource())
}

func TestContainer_ActorAddedEventFiresBeforeDelivery(t *testing.T) {
	c := startedContainer(t)
	defer stopContainer(t, c)

	addedBeforeDelivery := false
	var addedOnce sync.Once
	c.OnActorAdded(func(e core.ActorAddedEvent) {
		if e.AID.Bare() == "pong-added" {
			addedOnce.Do(func() { addedBeforeDelivery = true })
		}
	})

	caller, _ := c.AddActor("caller", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {})
	pong, _ := c.AddActor("pong-added", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {
		reply(nil, nil)
	})

	cbRes := make(chan *types.Response, 1)
	c.Send(string(caller), string(pong), "x", types.WithCallback(func(err *types.Error, res *types.Response) {
		cbRes <- res
	}))

	select {
	case <-cbRes:
		assert.True(t, addedBeforeDelivery)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}
