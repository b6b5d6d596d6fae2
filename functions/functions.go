// Package functions provides the built-in packet functions registered
// by the function factory at start-up: filters that pass or drop a
// packet by protocol, forwarders that broadcast or hand packets to the
// kernel, and steering functions that dispatch by a header hash.
//
// Every function is pure. Frames shorter than the header a function
// needs are treated as not matching.
package functions

import "github.com/frobware/go-pfq"

// Filters pass matching packets on to the next pipeline stage and drop
// everything else.
var Filters = pfq.FunctionTable{
	{Name: "filter_ip", Func: filterIP},
	{Name: "filter_ip6", Func: filterIP6},
	{Name: "filter_udp", Func: filterUDP},
	{Name: "filter_tcp", Func: filterTCP},
	{Name: "filter_icmp", Func: filterICMP},
	{Name: "filter_udp6", Func: filterUDP6},
	{Name: "filter_tcp6", Func: filterTCP6},
	{Name: "filter_icmp6", Func: filterICMP6},
	{Name: "filter_flow", Func: filterFlow},
	{Name: "filter_vlan", Func: filterVLAN},
}

// Forwarders end a pipeline with a delivery decision.
var Forwarders = pfq.FunctionTable{
	{Name: "forward_drop", Func: forwardDrop},
	{Name: "forward_broadcast", Func: forwardBroadcast},
	{Name: "forward_kernel", Func: forwardKernel},
	{Name: "forward_class", Func: forwardClass},
}

// Steerers dispatch each packet to one socket chosen by a hash over
// the named header. Packets without that header are dropped.
var Steerers = pfq.FunctionTable{
	{Name: "steer_mac", Func: steerMAC},
	{Name: "steer_vlan", Func: steerVLAN},
	{Name: "steer_ip", Func: steerIP},
	{Name: "steer_ip6", Func: steerIP6},
	{Name: "steer_flow", Func: steerFlow},
}

// Builtin returns the tables the factory is initialised with.
func Builtin() []pfq.FunctionTable {
	return []pfq.FunctionTable{Filters, Forwarders, Steerers}
}

// classArg returns the class mask carried by a pipeline argument.
func classArg(arg any) pfq.ClassMask {
	switch v := arg.(type) {
	case pfq.ClassMask:
		if v != 0 {
			return v
		}
	case int:
		if v > 0 {
			return pfq.ClassMask(v)
		}
	}
	return pfq.ClassDefault
}
