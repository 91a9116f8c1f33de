package runner

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator field defaults
const (
	DefaultStartDelayMs = 3000
	DefaultLoopDelayMs  = 2000
	DefaultLoops        = 1
)

// RunConfig describes one run. It is built fresh from the operator's field
// values each time a run is triggered.
type RunConfig struct {
	Script       string `json:"script"`
	StartDelayMs int    `json:"start_delay_ms"`
	LoopDelayMs  int    `json:"loop_delay_ms"`
	Loops        int    `json:"loops"`
}

// Normalize clamps negative delays to zero and the loop count to at least one
func (c RunConfig) Normalize() RunConfig {
	c.StartDelayMs = max(c.StartDelayMs, 0)
	c.LoopDelayMs = max(c.LoopDelayMs, 0)
	c.Loops = max(c.Loops, 1)
	return c
}

// Validate reports values a caller should have rejected. maxScript bounds the
// script length in bytes; zero disables the check.
func (c RunConfig) Validate(maxScript int) error {
	if c.StartDelayMs < 0 {
		return fmt.Errorf("start delay must not be negative, got %d", c.StartDelayMs)
	}
	if c.LoopDelayMs < 0 {
		return fmt.Errorf("loop delay must not be negative, got %d", c.LoopDelayMs)
	}
	if c.Loops < 1 {
		return fmt.Errorf("loop count must be at least 1, got %d", c.Loops)
	}
	if maxScript > 0 && len(c.Script) > maxScript {
		return fmt.Errorf("script is %d bytes, limit is %d", len(c.Script), maxScript)
	}
	return nil
}

// ParseFields builds a RunConfig from raw operator field text. Each number is
// read from its leading digits, so "12x" is 12 and "abc" is 0, then clamped
// like any other value.
func ParseFields(script, startDelay, loopDelay, loops string) RunConfig {
	return RunConfig{
		Script:       script,
		StartDelayMs: atoi(startDelay),
		LoopDelayMs:  atoi(loopDelay),
		Loops:        atoi(loops),
	}.Normalize()
}

func atoi(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
