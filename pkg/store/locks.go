package store

import "sync"

// lockPool hands out one mutex per note id. Different ids are fully
// independent, so this is the only coordination point in the store: the
// burn-after-reading read-then-delete and every read-modify-write upsert
// hold the id's mutex for their whole critical section.
type lockPool struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (p *lockPool) get(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.m[id] = l
	return l
}

var locks = &lockPool{m: make(map[string]*sync.Mutex)}
