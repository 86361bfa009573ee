package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lite-lake/infra-regsync/internal/domain/contract"
)

func TestPool_Get(t *testing.T) {
	a := &fakeAdapter{}
	built := 0
	p := NewPool(func(name string) (*Handle, error) {
		built++
		return newTestHandle(a, "secret"), nil
	})

	h1, err := p.Get("sandbox")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	h2, _ := p.Get("sandbox")
	if h1 != h2 {
		t.Error("expected the same handle for the same account")
	}
	if _, err := p.Get("other"); err != nil {
		t.Fatalf("get other: %v", err)
	}
	if built != 2 || p.Size() != 2 {
		t.Errorf("expected 2 handles, built %d, size %d", built, p.Size())
	}
}

func TestPool_ConcurrentGet(t *testing.T) {
	var mu sync.Mutex
	built := 0
	p := NewPool(func(name string) (*Handle, error) {
		mu.Lock()
		built++
		mu.Unlock()
		return newTestHandle(&fakeAdapter{}, "secret"), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Get("sandbox")
		}()
	}
	wg.Wait()

	if built != 1 {
		t.Errorf("expected one handle, built %d", built)
	}
}

func TestPool_FactoryError(t *testing.T) {
	want := errors.New("unknown registry")
	p := NewPool(func(name string) (*Handle, error) { return nil, want })

	if _, err := p.Get("nope"); !errors.Is(err, want) {
		t.Errorf("expected factory error, got %v", err)
	}
	if p.Size() != 0 {
		t.Error("failed handle must not be cached")
	}
}

func TestPool_CloseAll(t *testing.T) {
	adapters := map[string]*fakeAdapter{"a": {}, "b": {}}
	p := NewPool(func(name string) (*Handle, error) {
		return newTestHandle(adapters[name], "secret"), nil
	})

	for name := range adapters {
		h, _ := p.Get(name)
		if _, err := h.Send(context.Background(), contract.CmdDomainCheck, nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	if err := p.CloseAll(context.Background()); err != nil {
		t.Fatalf("close all: %v", err)
	}
	for name, a := range adapters {
		if a.conns[0].closes.Load() != 1 {
			t.Errorf("%s: expected one logout", name)
		}
	}
	if p.Size() != 0 {
		t.Error("expected pool to be empty")
	}
}
