package server

import (
	"golang.org/x/exp/slices"
)

// Registry holds the configured downstreams in config order.
type Registry struct {
	downstreams []Downstream
	def         int
}

// NewRegistry builds a registry from a validated downstream list. The entry
// marked default is used for new sessions, or the first one if none is.
func NewRegistry(downstreams []Downstream) *Registry {
	def := slices.IndexFunc(downstreams, func(d Downstream) bool { return d.Default })
	if def < 0 {
		def = 0
	}
	return &Registry{downstreams: slices.Clone(downstreams), def: def}
}

func (r *Registry) Default() (Downstream, bool) {
	if len(r.downstreams) == 0 {
		return Downstream{}, false
	}
	return r.downstreams[r.def], true
}

func (r *Registry) Lookup(name string) (Downstream, bool) {
	i := slices.IndexFunc(r.downstreams, func(d Downstream) bool { return d.Name == name })
	if i < 0 {
		return Downstream{}, false
	}
	return r.downstreams[i], true
}

func (r *Registry) All() []Downstream {
	return slices.Clone(r.downstreams)
}
