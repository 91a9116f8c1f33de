// Package journal collects log lines in memory, mirrors them to an
// append-only file and fans them out to live subscribers.
package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// Journal is an io.Writer for a *log.Logger. Each complete line written is
// kept in the ring, appended to the file and passed to subscribers.
type Journal struct {
	ring *Ring

	mu      sync.Mutex
	file    io.WriteCloser
	tee     io.Writer
	partial []byte
	subs    map[int]func(string)
	nextID  int
}

// New creates a journal without a file mirror
func New(capacity int) *Journal {
	return &Journal{
		ring: NewRing(capacity),
		subs: make(map[int]func(string)),
	}
}

// Open creates a journal mirrored to path in append mode. When the file
// cannot be opened the journal is still returned, ring-only, with the error.
func Open(path string, capacity int) (*Journal, error) {
	j := New(capacity)
	if path == "" {
		return j, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return j, fmt.Errorf("failed to open log file: %w", err)
	}
	j.file = f
	return j, nil
}

// Tee copies every line to w as well, e.g. stderr outside the terminal form.
// A nil w stops the copy.
func (j *Journal) Tee(w io.Writer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tee = w
}

// Write splits p into lines. A trailing fragment is held until its newline
// arrives.
func (j *Journal) Write(p []byte) (int, error) {
	j.mu.Lock()
	j.partial = append(j.partial, p...)
	var complete []string
	for {
		i := bytes.IndexByte(j.partial, '\n')
		if i < 0 {
			break
		}
		complete = append(complete, string(bytes.TrimRight(j.partial[:i], "\r")))
		j.partial = j.partial[i+1:]
	}
	if len(j.partial) == 0 {
		j.partial = nil
	}

	var ferr error
	for _, line := range complete {
		j.ring.Add(line)
		if j.file != nil {
			if _, err := io.WriteString(j.file, line+"\n"); err != nil && ferr == nil {
				ferr = err
			}
		}
		if j.tee != nil {
			io.WriteString(j.tee, line+"\n")
		}
	}
	subs := make([]func(string), 0, len(j.subs))
	for _, fn := range j.subs {
		subs = append(subs, fn)
	}
	j.mu.Unlock()

	for _, line := range complete {
		for _, fn := range subs {
			fn(line)
		}
	}
	if ferr != nil {
		return len(p), fmt.Errorf("failed to mirror log line: %w", ferr)
	}
	return len(p), nil
}

// Subscribe registers fn for every future line. The returned func removes it.
func (j *Journal) Subscribe(fn func(line string)) (cancel func()) {
	j.mu.Lock()
	id := j.nextID
	j.nextID++
	j.subs[id] = fn
	j.mu.Unlock()

	return func() {
		j.mu.Lock()
		delete(j.subs, id)
		j.mu.Unlock()
	}
}

// Lines returns the retained lines, oldest first
func (j *Journal) Lines() []string {
	return j.ring.Lines()
}

// Last returns up to n of the newest lines
func (j *Journal) Last(n int) []string {
	return j.ring.Last(n)
}

// Close closes the file mirror
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
