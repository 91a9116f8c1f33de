package ui

import "log"

// keyAggregator folds consecutive presses of the same key into one log line
type keyAggregator struct {
	logger *log.Logger
	last   string
	count  int
}

// Press records one key press
func (a *keyAggregator) Press(name string) {
	if name == a.last && a.count > 0 {
		a.count++
		return
	}
	a.Flush()
	a.last = name
	a.count = 1
}

// Flush logs the pending run of presses, if any
func (a *keyAggregator) Flush() {
	if a.count > 0 {
		a.logger.Printf("UI: Key pressed: %s repeated %d time(s)", a.last, a.count)
	}
	a.last = ""
	a.count = 0
}
