package session

import (
	"context"
	"errors"
	"sync"
)

// Factory builds the handle for one configured registry account.
type Factory func(name string) (*Handle, error)

// Pool keeps one Handle per registry account so every command for an account
// shares a single session.
type Pool struct {
	handles map[string]*Handle
	mu      sync.RWMutex
	factory Factory
}

func NewPool(factory Factory) *Pool {
	return &Pool{
		handles: make(map[string]*Handle),
		factory: factory,
	}
}

func (p *Pool) Get(name string) (*Handle, error) {
	p.mu.RLock()
	if h, ok := p.handles[name]; ok {
		p.mu.RUnlock()
		return h, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[name]; ok {
		return h, nil
	}

	h, err := p.factory(name)
	if err != nil {
		return nil, err
	}
	p.handles[name] = h
	return h, nil
}

// CloseAll logs every session out and empties the pool.
func (p *Pool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, h := range p.handles {
		if err := h.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.handles = make(map[string]*Handle)
	return errors.Join(errs...)
}

func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handles)
}
