package auction

import (
	"sync"

	"github.com/kilianp07/lineauction/core/model"
)

// poolLocks hands out one mutex per pool. Entries are reference counted and
// dropped when the last holder releases them.
type poolLocks struct {
	mu    sync.Mutex
	locks map[model.PoolKey]*poolLock
}

type poolLock struct {
	mu   sync.Mutex
	refs int
}

func newPoolLocks() *poolLocks {
	return &poolLocks{locks: make(map[model.PoolKey]*poolLock)}
}

// lock blocks until key is held and returns the release func.
func (p *poolLocks) lock(key model.PoolKey) func() {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &poolLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *poolLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
