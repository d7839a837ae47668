package core

import (
	"testing"
	"time"

	"github.com/jabolina/actor-mesh/pkg/actor/types"
	"github.com/stretchr/testify/require"
)

// rendezvousAddr mirrors the literal multicast group used in spec.md's
// cross-container discovery scenario, on a distinct port so this test
// doesn't collide with any other group on the host.
const rendezvousAddr = "224.0.0.1:5550"

func newDiscoveryFixture(self *types.NetInfo, hosted []types.AID) (*Discovery, *Registry, *Correlation) {
	registry := NewRegistry()
	correlation := NewCorrelation()
	d := NewDiscovery(self, registry, correlation, func() []types.AID { return hosted }, NewInvoker(), noopLogger{})
	return d, registry, correlation
}

// Scenario 4 (cross-container via discovery): container A hosts
// "pong/one"; container B's search for the bare "pong" resolves once
// A answers B's SEARCH broadcast.
func TestDiscovery_SearchResolvesAcrossContainers(t *testing.T) {
	netA := &types.NetInfo{ID: "disco-a", IP: "127.0.0.1", Port: 9101}
	netB := &types.NetInfo{ID: "disco-b", IP: "127.0.0.1", Port: 9102}

	discoA, _, _ := newDiscoveryFixture(netA, []types.AID{"pong/one"})
	discoB, registryB, correlationB := newDiscoveryFixture(netB, nil)

	startDiscovery := func(d *Discovery) {
		done := make(chan error, 1)
		d.Start(rendezvousAddr, func(err error) { done <- err })
		require.NoError(t, <-done)
	}
	startDiscovery(discoA)
	startDiscovery(discoB)
	defer discoA.Stop()
	defer discoB.Stop()

	// let ANNOUNCE frames settle before searching.
	time.Sleep(200 * time.Millisecond)

	resolved := make(chan types.AID, 1)
	correlationB.AwaitFound("pong", func(aid types.AID) { resolved <- aid })
	discoB.NotifySearched("pong")

	select {
	case aid := <-resolved:
		require.Equal(t, types.AID("pong/one"), aid)
	case <-time.After(3 * time.Second):
		t.Fatal("search for pong never resolved via discovery")
	}

	actor, ok := registryB.Get("pong/one", nil)
	require.True(t, ok)
	require.Equal(t, "disco-a", actor.Container.ID)
	require.Equal(t, types.LOCAL, actor.Scope, "same-IP peer is classified LOCAL")
}

// LEAVE must drop every entry a container contributed to a peer's
// registry, keyed by container id.
func TestDiscovery_LeaveRemovesContainerEntries(t *testing.T) {
	netA := &types.NetInfo{ID: "disco-leave-a", IP: "127.0.0.1", Port: 9103}
	netB := &types.NetInfo{ID: "disco-leave-b", IP: "127.0.0.1", Port: 9104}

	discoA, _, _ := newDiscoveryFixture(netA, []types.AID{"worker/one"})
	discoB, registryB, _ := newDiscoveryFixture(netB, nil)

	startDiscovery := func(d *Discovery) {
		done := make(chan error, 1)
		d.Start(rendezvousAddr, func(err error) { done <- err })
		require.NoError(t, <-done)
	}
	startDiscovery(discoA)
	startDiscovery(discoB)
	defer discoB.Stop()

	require.Eventually(t, func() bool {
		_, ok := registryB.Get("worker/one", nil)
		return ok
	}, 3*time.Second, 50*time.Millisecond, "B never learned A's announced actor")

	discoA.Stop()

	require.Eventually(t, func() bool {
		_, ok := registryB.Get("worker/one", nil)
		return !ok
	}, 3*time.Second, 50*time.Millisecond, "B never dropped A's entries after LEAVE")
}
