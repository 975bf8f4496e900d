// Package engine provides the deterministic event queue that drives
// the simulation: a min-heap of events keyed by
// (time, sequence_number), stable with respect to insertion order
// among equal times.
package engine

import (
	"container/heap"

	"github.com/aehmttw/marketsim/internal/domain"
)

// eventHeap is a min-heap of events ordered by (Time, SeqNo).
type eventHeap []*domain.Event

func (h eventHeap) Len() int      { return len(h) }
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].SeqNo < h[j].SeqNo
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*domain.Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// EventQueue is the scheduler's priority queue. SeqNo is assigned at
// push time so that two events scheduled at the same virtual time run
// in insertion order — determinism must never depend on a
// content-defined hash.
type EventQueue struct {
	heap  eventHeap
	seqNo uint64
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(&q.heap)
	return q
}

// Push enqueues an event, assigning it the next sequence number.
func (q *EventQueue) Push(e *domain.Event) {
	q.seqNo++
	e.SeqNo = q.seqNo
	heap.Push(&q.heap, e)
}

// Pop removes and returns the earliest-ordered event. Panics if empty
// — callers must check Len first.
func (q *EventQueue) Pop() *domain.Event {
	return heap.Pop(&q.heap).(*domain.Event)
}

// Peek returns the earliest-ordered event without removing it, or nil
// if the queue is empty.
func (q *EventQueue) Peek() *domain.Event {
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0]
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.heap)
}
