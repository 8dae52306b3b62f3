package executor

import (
	"container/heap"

	"go.trai.ch/sw/internal/core/domain"
)

// readyQueue is a priority queue of ready commands keyed by
// (strict_order, fingerprint, name). The name tie-break keeps dequeue order
// total even for commands with equal fingerprints.
type readyQueue struct {
	items []*domain.Command
}

func newReadyQueue() *readyQueue {
	q := &readyQueue{}
	heap.Init(q)
	return q
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.StrictOrder != b.StrictOrder {
		return a.StrictOrder < b.StrictOrder
	}
	if a.Fingerprint() != b.Fingerprint() {
		return a.Fingerprint() < b.Fingerprint()
	}
	return a.Name.String() < b.Name.String()
}

func (q *readyQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *readyQueue) Push(x any) {
	q.items = append(q.items, x.(*domain.Command))
}

func (q *readyQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return item
}

func (q *readyQueue) push(c *domain.Command) {
	heap.Push(q, c)
}

func (q *readyQueue) pop() *domain.Command {
	return heap.Pop(q).(*domain.Command)
}

func (q *readyQueue) peek() *domain.Command {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}
