package blacklist

import "net"

// IPInCIDR reports whether ip falls inside the given network range.
// Invalid input degrades to "no match" so one malformed blacklist row
// cannot break the gate.
func IPInCIDR(ip, cidr string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	return network.Contains(parsed)
}
