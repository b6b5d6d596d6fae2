package functions

import "github.com/frobware/go-pfq"

func steer(pkt pfq.Packet, arg any, hash func(*frame) (uint32, bool)) pfq.Result {
	f, ok := parse(pkt.Data())
	if !ok {
		return pfq.None()
	}
	h, ok := hash(&f)
	if !ok {
		return pfq.None()
	}
	return pfq.Steering(classArg(arg), h)
}

// The hashes below are symmetric so both directions of a conversation
// land on the same socket.

func steerMAC(pkt pfq.Packet, arg any) pfq.Result {
	return steer(pkt, arg, func(f *frame) (uint32, bool) {
		return word([]byte(f.eth.SourceAddress())) ^ word([]byte(f.eth.DestinationAddress())), true
	})
}

func steerVLAN(pkt pfq.Packet, arg any) pfq.Result {
	return steer(pkt, arg, func(f *frame) (uint32, bool) {
		return uint32(f.vid), f.vlan
	})
}

func steerIP(pkt pfq.Packet, arg any) pfq.Result {
	return steer(pkt, arg, func(f *frame) (uint32, bool) {
		if !f.isIPv4() {
			return 0, false
		}
		return word(f.src) ^ word(f.dst), true
	})
}

func steerIP6(pkt pfq.Packet, arg any) pfq.Result {
	return steer(pkt, arg, func(f *frame) (uint32, bool) {
		if !f.isIPv6() {
			return 0, false
		}
		return word(f.src) ^ word(f.dst), true
	})
}

func steerFlow(pkt pfq.Packet, arg any) pfq.Result {
	return steer(pkt, arg, func(f *frame) (uint32, bool) {
		if f.src == nil {
			return 0, false
		}
		sp, dp, ok := f.ports()
		if !ok {
			return 0, false
		}
		return word(f.src) ^ word(f.dst) ^ uint32(sp^dp), true
	})
}
