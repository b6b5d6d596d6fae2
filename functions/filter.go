package functions

import (
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/frobware/go-pfq"
)

func verdict(ok bool) pfq.Result {
	if ok {
		return pfq.Pass()
	}
	return pfq.None()
}

func match(pkt pfq.Packet, fn func(*frame) bool) pfq.Result {
	f, ok := parse(pkt.Data())
	return verdict(ok && fn(&f))
}

func ip4Transport(proto tcpip.TransportProtocolNumber) func(*frame) bool {
	return func(f *frame) bool { return f.isIPv4() && f.transport == proto }
}

func ip6Transport(proto tcpip.TransportProtocolNumber) func(*frame) bool {
	return func(f *frame) bool { return f.isIPv6() && f.transport == proto }
}

func filterIP(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, (*frame).isIPv4)
}

func filterIP6(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, (*frame).isIPv6)
}

func filterUDP(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, ip4Transport(header.UDPProtocolNumber))
}

func filterTCP(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, ip4Transport(header.TCPProtocolNumber))
}

func filterICMP(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, ip4Transport(header.ICMPv4ProtocolNumber))
}

func filterUDP6(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, ip6Transport(header.UDPProtocolNumber))
}

func filterTCP6(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, ip6Transport(header.TCPProtocolNumber))
}

func filterICMP6(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, ip6Transport(header.ICMPv6ProtocolNumber))
}

// filterFlow passes TCP and UDP over either IP version.
func filterFlow(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, func(f *frame) bool {
		if f.src == nil {
			return false
		}
		_, _, ok := f.ports()
		return ok
	})
}

func filterVLAN(pkt pfq.Packet, _ any) pfq.Result {
	return match(pkt, func(f *frame) bool { return f.vlan })
}
