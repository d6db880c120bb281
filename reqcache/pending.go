package reqcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// pending tracks in-flight fetches. Coalescing itself is delegated to
// singleflight; the registry adds a registered-at timestamp per key so the
// sweeper can forget orphaned flights and Stats can report what is in flight.
type pending struct {
	group    singleflight.Group
	mutex    sync.Mutex
	inflight map[string]time.Time
}

func newPending() *pending {
	return &pending{inflight: make(map[string]time.Time)}
}

// do runs fn under key, sharing one execution between every concurrent
// caller of the same key. The caller's context only governs its own wait:
// cancelling it abandons the wait without cancelling the shared execution.
func (p *pending) do(ctx context.Context, key string, now time.Time, fn func() (any, error)) (any, error) {
	p.register(key, now)
	ch := p.group.DoChan(key, func() (any, error) {
		defer p.clear(key)
		return fn()
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// register records when the first caller for key showed up. Later callers
// joining the same flight keep the original timestamp.
func (p *pending) register(key string, now time.Time) {
	p.mutex.Lock()
	if _, ok := p.inflight[key]; !ok {
		p.inflight[key] = now
	}
	p.mutex.Unlock()
}

func (p *pending) clear(key string) {
	p.mutex.Lock()
	delete(p.inflight, key)
	p.mutex.Unlock()
}

// sweepOrphans forgets registrations older than threshold. Waiters already
// attached to a forgotten flight still get its eventual result; the next new
// caller starts a fresh fetch instead of joining a flight that may never
// resolve.
func (p *pending) sweepOrphans(now time.Time, threshold time.Duration) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	var n int
	for key, registeredAt := range p.inflight {
		if now.Sub(registeredAt) >= threshold {
			p.group.Forget(key)
			delete(p.inflight, key)
			n++
		}
	}
	return n
}

func (p *pending) len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.inflight)
}
