package common

import (
	"sync/atomic"
	"testing"
	"time"

	test "github.com/outbrain/golib/tests"
)

func TestPool_PopBlocksAtCapacity(t *testing.T) {
	p := NewPool([]int{1, 2})
	a := p.Pop()
	b := p.Pop()
	test.S(t).ExpectEquals(a+b, 3)
	test.S(t).ExpectEquals(p.Outstanding(), 2)
	test.S(t).ExpectEquals(p.Capacity(), 2)

	_, ok := p.TryPop()
	test.S(t).ExpectFalse(ok)

	got := make(chan int)
	go func() {
		got <- p.Pop()
	}()

	select {
	case <-got:
		t.Fatalf("third Pop must block")
	case <-time.After(50 * time.Millisecond):
	}

	p.Push(b)
	select {
	case v := <-got:
		test.S(t).ExpectEquals(v, b)
	case <-time.After(time.Second):
		t.Fatalf("Pop not woken by Push")
	}
}

func TestPool_LIFO(t *testing.T) {
	p := NewPool([]string{"a", "b", "c"})
	x := p.Pop()
	test.S(t).ExpectEquals(x, "c")
	y := p.Pop()
	p.Push(y)
	test.S(t).ExpectEquals(p.Pop(), y)
}

func TestPool_Synchronize(t *testing.T) {
	p := NewPool([]int{1, 2, 3})
	items := []int{p.Pop(), p.Pop()}

	var done int32
	finished := make(chan struct{})
	go func() {
		p.Synchronize()
		test.S(t).ExpectEquals(atomic.LoadInt32(&done), int32(2))
		close(finished)
	}()

	for _, it := range items {
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&done, 1)
		p.Push(it)
	}

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("Synchronize did not return")
	}
	test.S(t).ExpectEquals(p.Outstanding(), 0)
}

func TestPool_PushOnFullPanics(t *testing.T) {
	p := NewPool([]int{1})
	defer func() {
		test.S(t).ExpectNotNil(recover())
	}()
	p.Push(2)
}
