package functions

import (
	"encoding/binary"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

const (
	// vlanProtocolNumber is the 802.1Q TPID.
	vlanProtocolNumber tcpip.NetworkProtocolNumber = 0x8100
	vlanHeaderSize                                 = 4

	ipv4SrcOffset = 12
	ipv6SrcOffset = 8
)

// frame is the decoded view of one Ethernet frame. Fields past the
// link layer are only set when the corresponding header is complete.
type frame struct {
	eth   header.Ethernet
	vlan  bool
	vid   uint16
	proto tcpip.NetworkProtocolNumber

	l3 []byte
	// src and dst are the network addresses, 4 or 16 bytes.
	src, dst []byte

	transport tcpip.TransportProtocolNumber
	l4        []byte
}

func parse(b []byte) (frame, bool) {
	var f frame
	if len(b) < header.EthernetMinimumSize {
		return f, false
	}
	f.eth = header.Ethernet(b)
	f.proto = f.eth.Type()
	off := header.EthernetMinimumSize

	if f.proto == vlanProtocolNumber {
		if len(b) < off+vlanHeaderSize {
			return f, false
		}
		f.vlan = true
		f.vid = binary.BigEndian.Uint16(b[off:]) & 0x0fff
		f.proto = tcpip.NetworkProtocolNumber(binary.BigEndian.Uint16(b[off+2:]))
		off += vlanHeaderSize
	}
	f.l3 = b[off:]

	switch f.proto {
	case header.IPv4ProtocolNumber:
		f.parseIPv4()
	case header.IPv6ProtocolNumber:
		f.parseIPv6()
	}
	return f, true
}

func (f *frame) parseIPv4() {
	if len(f.l3) < header.IPv4MinimumSize {
		return
	}
	ip := header.IPv4(f.l3)
	hlen := int(ip.HeaderLength())
	if hlen < header.IPv4MinimumSize || hlen > len(f.l3) {
		return
	}
	f.src = f.l3[ipv4SrcOffset : ipv4SrcOffset+header.IPv4AddressSize]
	f.dst = f.l3[ipv4SrcOffset+header.IPv4AddressSize : ipv4SrcOffset+2*header.IPv4AddressSize]
	f.transport = tcpip.TransportProtocolNumber(ip.Protocol())
	// Only the first fragment carries the transport header.
	if ip.FragmentOffset() == 0 {
		f.l4 = f.l3[hlen:]
	}
}

func (f *frame) parseIPv6() {
	if len(f.l3) < header.IPv6MinimumSize {
		return
	}
	ip := header.IPv6(f.l3)
	f.src = f.l3[ipv6SrcOffset : ipv6SrcOffset+header.IPv6AddressSize]
	f.dst = f.l3[ipv6SrcOffset+header.IPv6AddressSize : ipv6SrcOffset+2*header.IPv6AddressSize]
	// Extension headers are not walked; next header is taken as the
	// transport protocol.
	f.transport = tcpip.TransportProtocolNumber(ip.NextHeader())
	f.l4 = f.l3[header.IPv6MinimumSize:]
}

func (f *frame) isIPv4() bool { return f.src != nil && f.proto == header.IPv4ProtocolNumber }
func (f *frame) isIPv6() bool { return f.src != nil && f.proto == header.IPv6ProtocolNumber }

// ports returns the TCP or UDP ports, if the transport header is present.
func (f *frame) ports() (src, dst uint16, ok bool) {
	switch f.transport {
	case header.TCPProtocolNumber:
		if len(f.l4) < header.TCPMinimumSize {
			return 0, 0, false
		}
		t := header.TCP(f.l4)
		return t.SourcePort(), t.DestinationPort(), true
	case header.UDPProtocolNumber:
		if len(f.l4) < header.UDPMinimumSize {
			return 0, 0, false
		}
		u := header.UDP(f.l4)
		return u.SourcePort(), u.DestinationPort(), true
	}
	return 0, 0, false
}

// word folds b into a 32-bit value four bytes at a time.
func word(b []byte) uint32 {
	var h uint32
	for len(b) >= 4 {
		h ^= binary.BigEndian.Uint32(b)
		b = b[4:]
	}
	for i, c := range b {
		h ^= uint32(c) << (8 * (3 - i))
	}
	return h
}
