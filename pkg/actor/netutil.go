package actor

import "net"

// localIP resolves this host's first non-loopback IPv4 address. It
// is the out-of-scope "local IP resolver" collaborator named in the
// specification; no pack repo wires a third-party candidate for this
// single primitive, so it stays on net, the standard library.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
