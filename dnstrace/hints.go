package dnstrace

import "net/netip"

// applyHints annotates a reached path with expert-mode observations that
// are suspicious but not themselves failures (C6, expert mode).
func applyHints(path *Path) {
	if !path.Reached || len(path.Hops) == 0 {
		return
	}

	last := &path.Hops[len(path.Hops)-1]

	if len(path.Hops) < 2 {
		last.Hints = append(last.Hints,
			"path too short (possible DNS hijacking, unless this is a local DNS resolver)")
		return
	}

	const privateNetworkRadius = 4
	if len(path.Hops) <= privateNetworkRadius {
		return
	}

	prev := path.Hops[len(path.Hops)-2]
	switch {
	case !prev.RouterIP.IsValid():
		last.Hints = append(last.Hints,
			"public DNS server is next to an invisible hop (probably a firewall)")
	case isPrivate(prev.RouterIP):
		last.Hints = append(last.Hints,
			"public DNS server is next to a private IP address (possible hijacking)")
	case isReserved(prev.RouterIP):
		last.Hints = append(last.Hints,
			"public DNS server is next to a reserved IP address (possible hijacking)")
	}
}

func isPrivate(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}

// isReserved reports whether addr falls in a reserved range rather than a
// private allocation: for IPv4, class E (240.0.0.0/4, which here includes
// 255.255.255.255); for IPv6, multicast and the unspecified address.
func isReserved(addr netip.Addr) bool {
	if addr.Is4() {
		return addr.As4()[0] >= 240
	}
	return addr.IsMulticast() || addr.IsInterfaceLocalMulticast() || addr.IsUnspecified()
}
