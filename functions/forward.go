package functions

import "github.com/frobware/go-pfq"

func forwardDrop(pfq.Packet, any) pfq.Result {
	return pfq.None()
}

func forwardBroadcast(pfq.Packet, any) pfq.Result {
	return pfq.Broadcast(pfq.ClassAny)
}

// forwardKernel hands the packet to the kernel and to no socket.
func forwardKernel(pfq.Packet, any) pfq.Result {
	return pfq.ToKernel(pfq.None())
}

// forwardClass broadcasts to the classes given as the pipeline
// argument, or to the default class.
func forwardClass(_ pfq.Packet, arg any) pfq.Result {
	return pfq.Broadcast(classArg(arg))
}
