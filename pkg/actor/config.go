package actor

import (
	"strconv"
	"time"
)

// Defaults for the request pipeline, named the way the teacher names
// its protocol constants in pkg/mcast/protocol.go.
const (
	// DefaultSendTimeout is used when a callback is supplied but no
	// explicit timeout is given.
	DefaultSendTimeout = 30 * time.Second
	// MaxSendTimeout caps the effective timeout for any send.
	MaxSendTimeout = 5 * time.Minute
	// RetryDelay is how long onDrop waits before re-resolving and
	// resending a dropped request.
	RetryDelay = 10 * time.Millisecond
	// ResearchTimeout caps how long searchActor waits for discovery
	// to resolve an AID before abandoning the search with NOTFOUND,
	// independent of (and typically shorter than) the request's own
	// deadline — the explicit safeguard the specification calls out
	// as missing from its source material.
	ResearchTimeout = 3 * time.Second
)

// StartParams are the recognised options to Start. Unknown fields in
// the caller's input are rejected with a TECHERR, matching the
// "validate params against the known schema" contract; in Go this is
// enforced simply by StartParams being a closed struct instead of an
// open map.
type StartParams struct {
	// IP overrides the local IP recorded in NetInfo.
	IP string
	// DiscoveryAddr is the rendezvous address, e.g. "224.0.0.1:5555".
	DiscoveryAddr string
	// DiscoveryPort, when set, is appended to DiscoveryAddr.
	DiscoveryPort int
	// Stats toggles observability; it has no semantic effect on
	// routing, it exists purely for parity with the specification.
	Stats string
}

func (p StartParams) rendezvous() string {
	if p.DiscoveryAddr == "" {
		return ""
	}
	if p.DiscoveryPort == 0 {
		return p.DiscoveryAddr
	}
	return p.DiscoveryAddr + ":" + strconv.Itoa(p.DiscoveryPort)
}

// valid rejects a StartParams with an unrecognised Stats value; every
// other field is free-form by construction (a Go struct has no
// "extra keys").
func (p StartParams) valid() bool {
	return p.Stats == "" || p.Stats == "on" || p.Stats == "off"
}
