package mediausage

import (
	"strings"
	"sync"
)

// projectLocks serialises read-modify-write cycles on one project's media
// collection. Different projects proceed in parallel.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *projectLocks) lock(projectID string) func() {
	key := strings.TrimSpace(projectID)
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
