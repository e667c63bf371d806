// Package queue provides the bounded top-k heap used by exact search.
package queue

import "sort"

// Item is a candidate row and its distance to the query.
type Item struct {
	Row      uint32
	Distance float32
}

// before reports whether a ranks ahead of b: smaller distance first, and the
// lower row on equal distance so results are fully deterministic.
func before(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Row < b.Row
}

// TopK keeps the k best items seen so far.
//
// Internally it is a max-heap on rank: the root is the worst retained item,
// so a new candidate only needs one comparison to be rejected.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a TopK that retains at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{
		k:     k,
		items: make([]Item, 0, k),
	}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Cap returns k.
func (q *TopK) Cap() int { return q.k }

// Full reports whether k items are retained.
func (q *TopK) Full() bool { return len(q.items) >= q.k }

// Worst returns the lowest-ranked retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Offer considers an item and reports whether it was retained.
func (q *TopK) Offer(row uint32, dist float32) bool {
	if q.k == 0 {
		return false
	}
	item := Item{Row: row, Distance: dist}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !before(item, q.items[0]) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Sorted returns the retained items best-first and resets the queue.
func (q *TopK) Sorted() []Item {
	out := q.items
	sort.Slice(out, func(i, j int) bool { return before(out[i], out[j]) })
	q.items = make([]Item, 0, q.k)
	return out
}

// Reset clears the queue for reuse.
func (q *TopK) Reset() {
	q.items = q.items[:0]
}

// worse is the heap order: the parent must rank behind its children.
func (q *TopK) worse(i, j int) bool {
	return before(q.items[j], q.items[i])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.worse(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		w := l
		if r := l + 1; r < n && q.worse(r, l) {
			w = r
		}
		if !q.worse(w, i) {
			return
		}
		q.items[i], q.items[w] = q.items[w], q.items[i]
		i = w
	}
}
