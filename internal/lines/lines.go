// Package lines loads the operator's substitution lines used by {messageN}.
package lines

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultMaxLines is the default capacity of a table
	DefaultMaxLines = 100

	// maxLineBytes bounds a single line read from the file
	maxLineBytes = 64 * 1024
)

// ErrOutOfRange is returned by Lookup for an index outside [1, Len()]
var ErrOutOfRange = errors.New("line index out of range")

// refPattern finds substitution references inside a line
var refPattern = regexp.MustCompile(`\{message([0-9]+)\}`)

// Table is an ordered, 1-indexed collection of lines. It is read-only after
// loading and safe for concurrent readers.
type Table struct {
	lines    []string
	dropped  int
	oversize int
	source   string
}

// New builds a table from in-memory lines, keeping at most max entries
func New(lines []string, max int) *Table {
	if max <= 0 {
		max = DefaultMaxLines
	}
	t := &Table{}
	for _, l := range lines {
		if len(t.lines) >= max {
			t.dropped++
			continue
		}
		t.lines = append(t.lines, strings.TrimRight(l, "\r\n"))
	}
	return t
}

// Load reads a newline-delimited file. Line terminators are stripped; lines
// beyond max are counted as dropped rather than silently ignored.
func Load(path string, max int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return &Table{source: path}, err
	}
	defer f.Close()

	t, err := Read(f, max)
	if err != nil {
		return &Table{source: path}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	t.source = path
	return t, nil
}

// Read parses lines from r. A line longer than maxLineBytes keeps its index
// but is loaded empty and counted by Oversize.
func Read(r io.Reader, max int) (*Table, error) {
	br := bufio.NewReader(r)

	var raw []string
	var line []byte
	oversize := map[int]bool{}
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !oversize[len(raw)] {
			if len(line)+len(chunk) > maxLineBytes {
				oversize[len(raw)] = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}
		raw = append(raw, string(line))
		line = line[:0]
	}

	t := New(raw, max)
	for i := range oversize {
		if i < len(t.lines) {
			t.oversize++
		}
	}
	return t, nil
}

// Len returns the number of loaded lines
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Oversize returns how many loaded lines exceeded the per-line size limit
// and were kept empty
func (t *Table) Oversize() int {
	if t == nil {
		return 0
	}
	return t.oversize
}

// Dropped returns how many lines exceeded the table capacity
func (t *Table) Dropped() int {
	if t == nil {
		return 0
	}
	return t.dropped
}

// Source returns the file the table was loaded from, if any
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Lookup returns line n (1-based)
func (t *Table) Lookup(n int) (string, error) {
	if n < 1 || n > t.Len() {
		return "", fmt.Errorf("%w: %d not in 1..%d", ErrOutOfRange, n, t.Len())
	}
	return t.lines[n-1], nil
}

// All returns a copy of the loaded lines
func (t *Table) All() []string {
	out := make([]string, t.Len())
	if t != nil {
		copy(out, t.lines)
	}
	return out
}

// Cycles reports substitution cycles: groups of lines whose {messageN}
// references lead back to themselves. Each cycle lists 1-based indexes in
// ascending order. References to missing lines are ignored.
func (t *Table) Cycles() [][]int {
	n := t.Len()
	edges := make([][]int, n+1)
	for i, l := range t.All() {
		for _, m := range refPattern.FindAllStringSubmatch(l, -1) {
			target, err := strconv.Atoi(m[1])
			if err != nil || target < 1 || target > n {
				continue
			}
			edges[i+1] = append(edges[i+1], target)
		}
	}

	// Tarjan's strongly connected components
	index := 0
	indexes := make([]int, n+1)
	lowlink := make([]int, n+1)
	onStack := make([]bool, n+1)
	var stack []int
	var cycles [][]int

	var visit func(v int)
	visit = func(v int) {
		index++
		indexes[v] = index
		lowlink[v] = index
		stack = append(stack, v)
		onStack[v] = true

		selfLoop := false
		for _, w := range edges[v] {
			if w == v {
				selfLoop = true
			}
			if indexes[w] == 0 {
				visit(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indexes[w])
			}
		}

		if lowlink[v] != indexes[v] {
			return
		}
		var comp []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		if len(comp) > 1 || selfLoop {
			sort.Ints(comp)
			cycles = append(cycles, comp)
		}
	}

	for v := 1; v <= n; v++ {
		if indexes[v] == 0 {
			visit(v)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
