package parallelism

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool(3)
	var count int64
	for i := 0; i < 20; i++ {
		p.Submit(func() error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}
	errs := p.Close()
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if count != 20 {
		t.Errorf("expected 20 tasks to run, got %d", count)
	}
}

func TestPoolCollectsErrors(t *testing.T) {
	p := NewPool(2)
	boom := errors.New("boom")
	p.Submit(func() error { return boom })
	p.Submit(func() error { return nil })
	errs := p.Close()
	if len(errs) != 1 || errs[0] != boom {
		t.Fatalf("expected exactly one collected error, got %v", errs)
	}
}

func TestPoolSubmitAfterCloseFails(t *testing.T) {
	p := NewPool(1)
	p.Close()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Submit after Close to panic")
		}
	}()
	p.Submit(func() error { return nil })
}

func TestNewPoolClampsSizeToOne(t *testing.T) {
	p := NewPool(0)
	var ran bool
	p.Submit(func() error { ran = true; return nil })
	p.Close()
	if !ran {
		t.Error("expected the clamped pool to still run submitted tasks")
	}
}
