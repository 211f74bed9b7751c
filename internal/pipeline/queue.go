package pipeline

import "sync"

// resultQueue is the unbounded outbound queue. The worker never blocks
// pushing a result; the consumer polls at its own pace. A bounded
// channel would either block the firing cycle or drop results, and the
// batch flush must deliver exactly one result per firing record.
type resultQueue struct {
	mu    sync.Mutex
	items []*Result
}

func newResultQueue() *resultQueue {
	return &resultQueue{}
}

func (q *resultQueue) push(r *Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
}

// pop removes and returns the oldest result, or nil if the queue is
// empty. Never blocks.
func (q *resultQueue) pop() *Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	r := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return r
}

func (q *resultQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *resultQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
