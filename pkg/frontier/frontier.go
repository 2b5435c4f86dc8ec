// Package frontier tracks the URLs one crawl job has discovered but not yet
// visited.
package frontier

import "container/list"

// Budget reports whether the owning job may still grow its frontier.
type Budget func() bool

// Frontier is a FIFO queue with enqueue-time deduplication. A URL is added
// to the seen set at most once, so it is never yielded twice. A Frontier is
// owned by a single job and is not safe for concurrent use.
type Frontier struct {
	seen   map[string]struct{}
	queue  *list.List
	budget Budget
	popped int
}

// New creates an empty Frontier. A nil budget never refuses links.
func New(budget Budget) *Frontier {
	return &Frontier{
		seen:   make(map[string]struct{}),
		queue:  list.New(),
		budget: budget,
	}
}

// Enqueue appends url to the tail of the queue. It returns false without
// changing anything if url was seen before or the budget is exhausted.
func (f *Frontier) Enqueue(url string) bool {
	if _, ok := f.seen[url]; ok {
		return false
	}
	if f.budget != nil && !f.budget() {
		return false
	}
	f.seen[url] = struct{}{}
	f.queue.PushBack(url)
	return true
}

// Dequeue pops the head of the queue. ok is false when the queue is empty.
func (f *Frontier) Dequeue() (url string, ok bool) {
	elem := f.queue.Front()
	if elem == nil {
		return "", false
	}
	f.queue.Remove(elem)
	f.popped++
	return elem.Value.(string), true
}

// Len is the number of URLs waiting in the queue.
func (f *Frontier) Len() int {
	return f.queue.Len()
}

// Seen reports whether url was ever accepted by Enqueue.
func (f *Frontier) Seen(url string) bool {
	_, ok := f.seen[url]
	return ok
}

// Visited is the number of URLs handed out by Dequeue.
func (f *Frontier) Visited() int {
	return f.popped
}
