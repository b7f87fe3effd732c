package server

import (
	"net"
	"time"

	"github.com/patrickmn/go-cache"
)

// Resolver resolves downstream addresses and remembers them for a while so a
// burst of joins doesn't hit DNS once per connection.
type Resolver struct {
	cache   *cache.Cache
	resolve func(network, address string) (*net.TCPAddr, error)
}

func NewResolver(ttl time.Duration) *Resolver {
	return &Resolver{
		cache:   cache.New(ttl, 2*ttl),
		resolve: net.ResolveTCPAddr,
	}
}

func (r *Resolver) Resolve(address string) (*net.TCPAddr, error) {
	if v, ok := r.cache.Get(address); ok {
		return v.(*net.TCPAddr), nil
	}
	addr, err := r.resolve("tcp", address)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(address, addr)
	return addr, nil
}

// Forget drops a cached entry, e.g. after a failed dial.
func (r *Resolver) Forget(address string) {
	r.cache.Delete(address)
}
