// Package iqueue is an unbounded FIFO between a sender and a receiver
// goroutine. Send never blocks for long; Loop moves values from the inbound
// channel into a list and hands them out in order on Receive.
package iqueue

import (
	"container/list"
)

func New[T any]() *Queue[T] {
	return &Queue[T]{
		queue: list.New(),
		send:  make(chan T, 1),
		recv:  make(chan T, 1),
	}
}

type Queue[T any] struct {
	queue *list.List
	send  chan T
	recv  chan T
}

func (iq *Queue[T]) Send(v T) {
	iq.send <- v
}

func (iq *Queue[T]) Receive() <-chan T {
	return iq.recv
}

// Len is the number of values buffered in the list. It is only meaningful
// from the goroutine running Loop.
func (iq *Queue[T]) Len() int {
	return iq.queue.Len()
}

// Close stops accepting values. Loop drains what is buffered, then closes
// the Receive channel.
func (iq *Queue[T]) Close() {
	close(iq.send)
}

func (iq *Queue[T]) Loop() {
	send := iq.send
	for {
		front := iq.queue.Front()
		if front != nil {
			select {
			case iq.recv <- front.Value.(T):
				iq.queue.Remove(front)
			case value, ok := <-send:
				if ok {
					iq.queue.PushBack(value)
				} else {
					send = nil
				}
			}
			continue
		}

		if send == nil {
			close(iq.recv)
			return
		}
		value, ok := <-send
		if !ok {
			close(iq.recv)
			return
		}
		iq.queue.PushBack(value)
	}
}
