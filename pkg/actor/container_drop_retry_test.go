package actor

import (
	"testing"
	"time"

	"github.com/jabolina/actor-mesh/pkg/actor/types"
	"github.com/stretchr/testify/require"
)

// Scenario 3 (drop-and-retry): the first delivery attempt drops,
// the retry at +RetryDelay succeeds, and the sender's callback fires
// exactly once. Modeled by registering two REMOTE instances of the
// same bare role — one pointing at an address nothing listens on, one
// at a real peer container — and relying on Registry.Pick's
// round-robin to hand the retry a different instance than the first
// attempt, the same way a real peer failover would look from the
// router's perspective.
func TestContainer_DropThenRetrySucceedsExactlyOnce(t *testing.T) {
	receiver := startedContainer(t)
	defer stopContainer(t, receiver)

	handlerHits := 0
	_, _ = receiver.AddActor("svc/good", func(ctx *types.Context, req *types.Request, reply types.ReplyFunc) {
		handlerHits++
		reply(nil, "ok")
	})

	sender := startedContainer(t)
	defer stopContainer(t, sender)

	badNet := types.NetInfo{ID: "bad-peer", IP: "127.0.0.1", Port: 1}
	goodNet := receiver.ID()

	sender.registry.Add(&types.Actor{ID: "svc/bad", Scope: types.REMOTE, Container: badNet}, types.REMOTE)
	sender.registry.Add(&types.Actor{ID: "svc/good", Scope: types.REMOTE, Container: goodNet}, types.REMOTE)

	callbacks := 0
	cbDone := make(chan *types.Response, 1)
	var cbErr *types.Error
	sender.Send("caller", "svc", "hi", types.WithTimeout(2000), types.WithCallback(func(err *types.Error, res *types.Response) {
		callbacks++
		cbErr = err
		cbDone <- res
	}))

	select {
	case res := <-cbDone:
		require.Nil(t, cbErr)
		require.Equal(t, "ok", res.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("send never completed after drop-and-retry")
	}

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, callbacks, "callback must fire exactly once")
	require.Equal(t, 1, handlerHits, "handler must be invoked exactly once")
}
