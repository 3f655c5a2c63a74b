// Package identity manages the reusable client identities (user agent plus
// header set) and the proxy endpoints requests are sent through. Both live in
// fixed-size arenas indexed by rotating cursors; proxy health is a side table
// keyed by index so rotation order stays deterministic.
package identity

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/vthibault/annonce/internal/core/domain"
)

// DefaultCooldownCycles is how many selection cycles an unhealthy proxy sits
// out before it becomes eligible again.
const DefaultCooldownCycles = 10

// Pool selects identities and healthy proxies, and tracks proxy failures.
// Running without proxies is a fully supported mode.
type Pool struct {
	mu sync.Mutex

	identities []domain.Identity
	idCursor   int
	lastID     int // previous identity index, avoids repeats in random mode

	proxies        []domain.ProxyEndpoint
	proxyCursor    int
	health         []proxyHealth
	cooldownCycles int

	randIntn func(int) int
}

type proxyHealth struct {
	unhealthy bool
	// cyclesLeft counts down each time the proxy is passed over; at zero the
	// unhealthy flag clears.
	cyclesLeft int
}

// New creates a pool over the given catalogs. At least one identity is
// required; an empty proxy list disables the proxy layer.
func New(identities []domain.Identity, proxies []domain.ProxyEndpoint, cooldownCycles int) (*Pool, error) {
	if len(identities) == 0 {
		return nil, errors.New("identity pool requires at least one identity")
	}
	if cooldownCycles <= 0 {
		cooldownCycles = DefaultCooldownCycles
	}
	return &Pool{
		identities:     identities,
		lastID:         -1,
		proxies:        proxies,
		health:         make([]proxyHealth, len(proxies)),
		cooldownCycles: cooldownCycles,
		randIntn:       rand.Intn,
	}, nil
}

// NoIdentity marks the first attempt of a logical call: no previous pick to
// avoid yet.
const NoIdentity = -1

// Acquire returns the identity and proxy for the next physical attempt, plus
// the identity's index. prev is the index returned by the previous Acquire of
// the same logical call, or NoIdentity on the first attempt: whenever the
// catalog holds more than one identity the pick is guaranteed to differ from
// prev, even when concurrent calls interleave at the shared cursor. Identities
// rotate round-robin when proxies are configured, randomly (never repeating
// the previous pick) otherwise. The proxy is the next healthy one in rotation
// order; when every proxy is unhealthy the pool fails open and returns one
// anyway rather than halting.
func (p *Pool) Acquire(prev int) (domain.Identity, int, *domain.ProxyEndpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, idx := p.nextIdentity(prev)
	return id, idx, p.nextProxy()
}

func (p *Pool) nextIdentity(prev int) (domain.Identity, int) {
	n := len(p.identities)
	var idx int
	if len(p.proxies) > 0 || n == 1 {
		idx = p.idCursor
		p.idCursor = (p.idCursor + 1) % n
		if idx == prev && n > 1 {
			idx = p.idCursor
			p.idCursor = (p.idCursor + 1) % n
		}
	} else {
		idx = p.randIntn(n)
		avoid := prev
		if avoid == NoIdentity {
			avoid = p.lastID
		}
		if idx == avoid {
			idx = (idx + 1) % n
		}
	}
	p.lastID = idx
	return p.identities[idx], idx
}

func (p *Pool) nextProxy() *domain.ProxyEndpoint {
	if len(p.proxies) == 0 {
		return nil
	}

	for scanned := 0; scanned < len(p.proxies); scanned++ {
		idx := p.proxyCursor
		p.proxyCursor = (p.proxyCursor + 1) % len(p.proxies)

		h := &p.health[idx]
		if !h.unhealthy {
			ep := p.proxies[idx]
			return &ep
		}
		h.cyclesLeft--
		if h.cyclesLeft <= 0 {
			h.unhealthy = false
			ep := p.proxies[idx]
			return &ep
		}
	}

	// Every proxy is cooling down: fail open on plain rotation.
	idx := p.proxyCursor
	p.proxyCursor = (p.proxyCursor + 1) % len(p.proxies)
	ep := p.proxies[idx]
	return &ep
}

// ReportFailure marks a proxy unhealthy for the cooldown window. Failures may
// be transient, so the exclusion is never permanent.
func (p *Pool) ReportFailure(proxy *domain.ProxyEndpoint) {
	if proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.proxies {
		if p.proxies[i].Addr() == proxy.Addr() {
			p.health[i] = proxyHealth{unhealthy: true, cyclesLeft: p.cooldownCycles}
			return
		}
	}
}

// ReportSuccess clears a proxy's unhealthy flag.
func (p *Pool) ReportSuccess(proxy *domain.ProxyEndpoint) {
	if proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.proxies {
		if p.proxies[i].Addr() == proxy.Addr() {
			p.health[i] = proxyHealth{}
			return
		}
	}
}

// ProxyStatus is a point-in-time view of one proxy's health, for the health
// endpoint and metrics.
type ProxyStatus struct {
	Addr    string `json:"addr"`
	Healthy bool   `json:"healthy"`
}

// HealthSnapshot reports every proxy's current health.
func (p *Pool) HealthSnapshot() []ProxyStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ProxyStatus, len(p.proxies))
	for i := range p.proxies {
		out[i] = ProxyStatus{Addr: p.proxies[i].Addr(), Healthy: !p.health[i].unhealthy}
	}
	return out
}

// Identities reports the catalog size, used by the retry controller to decide
// whether rotation can guarantee a different identity.
func (p *Pool) Identities() int {
	return len(p.identities)
}
