// Package pqueue is a priority queue ordered by a float priority. Items of
// equal priority keep their insertion order.
package pqueue

import (
	"sort"
)

func WithOrderDesc() Option {
	return func(o *options) {
		o.order = orderDesc
	}
}

type Option func(*options)

type order uint8

const (
	orderAsc order = iota
	orderDesc
)

type options struct {
	order order
}

type item[T any] struct {
	value T
	prior float64
	seq   int
}

func New[T any](opts ...Option) *Queue[T] {
	o := options{order: orderAsc}
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[T]{opts: o, sorted: true}
}

type Queue[T any] struct {
	opts   options
	items  []item[T]
	seq    int
	sorted bool
}

// PopAll drains the queue in priority order.
func (q *Queue[T]) PopAll() []T {
	q.sort()
	pulled := make([]T, len(q.items))
	for i := range q.items {
		pulled[i] = q.items[i].value
	}
	q.items = q.items[:0]
	return pulled
}

func (q *Queue[T]) Push(val T, priority float64) {
	q.items = append(q.items, item[T]{value: val, prior: priority, seq: q.seq})
	q.seq++
	q.sorted = false
}

func (q *Queue[T]) Len() int { return len(q.items) }

func (q *Queue[T]) Seek(idx int) (T, float64) {
	q.sort()
	x := q.items[idx]
	return x.value, x.prior
}

func (q *Queue[T]) sort() {
	if q.sorted {
		return
	}
	sort.Slice(q.items, func(i, j int) bool {
		a, b := q.items[i], q.items[j]
		if a.prior != b.prior {
			if q.opts.order == orderAsc {
				return a.prior < b.prior
			}
			return a.prior > b.prior
		}
		return a.seq < b.seq
	})
	q.sorted = true
}
