package engine

import (
	"log/slog"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
)

type stage struct {
	name string
	fn   pfq.Func
}

// Pipeline is a sequence of packet functions resolved once, when the
// pipeline is built. Running it does not touch the factory.
type Pipeline struct {
	stages []stage
	arg    any
}

// NewPipeline resolves names through r. A name that cannot be resolved
// is skipped, so the pipeline behaves as if that stage passed every
// packet. arg is handed to every stage on each call.
func NewPipeline(r group.Resolver, logger *slog.Logger, arg any, names ...string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{arg: arg}
	for _, name := range names {
		fn, ok := r.Lookup(name)
		if !ok {
			logger.Warn("pipeline stage bypassed", "component", "engine", "function", name)
			continue
		}
		p.stages = append(p.stages, stage{name: name, fn: fn})
	}
	return p
}

// Names returns the resolved stage names in order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.name
	}
	return out
}

// Run evaluates the stages in order and returns the first result that
// does not continue. An empty pipeline, or one where every stage
// continues, passes the packet.
func (p *Pipeline) Run(pkt pfq.Packet) pfq.Result {
	for _, s := range p.stages {
		if r := s.fn(pkt, p.arg); r.Type&pfq.ActionContinue == 0 {
			return r
		}
	}
	return pfq.Pass()
}

// Func adapts the pipeline to a single packet function so it can be
// registered and installed as a group's steering function.
func (p *Pipeline) Func() pfq.Func {
	return func(pkt pfq.Packet, _ any) pfq.Result { return p.Run(pkt) }
}
