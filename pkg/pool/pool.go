// Package pool provides type-safe object pooling with usage statistics.
//
//	binds := pool.GetBinds(len(columns) * rows)
//	defer pool.PutBinds(binds)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool. It wraps sync.Pool with a reset hook and
// counters. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated atomic.Int64
		inUse     atomic.Int64
		gets      atomic.Int64
	}
}

// New creates a pool. newFn allocates when the pool is empty; reset, when
// set, runs before an object goes back into the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		p.stats.allocated.Add(1)
		return newFn()
	}
	return p
}

// Get takes an object from the pool, allocating one if none is free
func (p *Pool[T]) Get() T {
	p.stats.gets.Add(1)
	p.stats.inUse.Add(1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.stats.inUse.Add(-1)
	p.pool.Put(obj)
}

// Stats returns the number of objects allocated, currently checked out,
// and the total number of Get calls. gets minus allocated is the reuse count.
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return p.stats.allocated.Load(), p.stats.inUse.Load(), p.stats.gets.Load()
}

// bindSlice wraps a bind list so the pool stores a pointer
type bindSlice struct {
	values []interface{}
}

// maxPooledBinds keeps oversized bind lists out of the pool
const maxPooledBinds = 64 * 1024

var bindPool = New(
	func() *bindSlice { return &bindSlice{values: make([]interface{}, 0, 256)} },
	func(b *bindSlice) {
		clear(b.values)
		b.values = b.values[:0]
	},
)

// Binds is a pooled statement bind list
type Binds struct {
	slice *bindSlice
}

// GetBinds returns an empty bind list with room for capacity values
func GetBinds(capacity int) *Binds {
	b := bindPool.Get()
	if cap(b.values) < capacity {
		b.values = make([]interface{}, 0, capacity)
	}
	return &Binds{slice: b}
}

// Append adds values to the list
func (b *Binds) Append(values ...interface{}) {
	b.slice.values = append(b.slice.values, values...)
}

// Values returns the bind values. The slice is only valid until PutBinds.
func (b *Binds) Values() []interface{} {
	return b.slice.values
}

// PutBinds returns the list to the pool
func PutBinds(b *Binds) {
	if b == nil || b.slice == nil {
		return
	}
	if cap(b.slice.values) <= maxPooledBinds {
		bindPool.Put(b.slice)
	}
	b.slice = nil
}

// BindStats reports the bind pool statistics
func BindStats() (allocated, inUse, gets int64) {
	return bindPool.Stats()
}
