package journal

import "sync"

// DefaultCapacity is the number of lines the ring keeps
const DefaultCapacity = 200

// Ring holds the newest lines, overwriting the oldest once full
type Ring struct {
	mu       sync.RWMutex
	lines    []string
	capacity int
	head     int
	count    int
}

// NewRing creates a ring. A non-positive capacity uses DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Add appends a line
func (r *Ring) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.head + r.count) % r.capacity
	r.lines[idx] = line

	if r.count < r.capacity {
		r.count++
	} else {
		r.head = (r.head + 1) % r.capacity
	}
}

// Lines returns the retained lines, oldest first
func (r *Ring) Lines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		result[i] = r.lines[(r.head+i)%r.capacity]
	}
	return result
}

// Last returns up to n of the newest lines, oldest first
func (r *Ring) Last(n int) []string {
	all := r.Lines()
	if n >= len(all) {
		return all
	}
	if n <= 0 {
		return nil
	}
	return all[len(all)-n:]
}

// Len returns the number of retained lines
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
