package runner

import (
	"strings"
	"testing"
)

func TestParseFields(t *testing.T) {
	tests := []struct {
		start, loopDelay, loops string
		want                    RunConfig
	}{
		{"3000", "2000", "1", RunConfig{StartDelayMs: 3000, LoopDelayMs: 2000, Loops: 1}},
		{" 10 ", "0", "4", RunConfig{StartDelayMs: 10, LoopDelayMs: 0, Loops: 4}},
		{"-5", "abc", "0", RunConfig{StartDelayMs: 0, LoopDelayMs: 0, Loops: 1}},
		{"", "", "", RunConfig{Loops: 1}},
		{"12x", "7", "-3", RunConfig{StartDelayMs: 12, LoopDelayMs: 7, Loops: 1}},
	}

	for _, tt := range tests {
		got := ParseFields("s", tt.start, tt.loopDelay, tt.loops)
		tt.want.Script = "s"
		if got != tt.want {
			t.Errorf("ParseFields(%q, %q, %q) = %+v, expected %+v", tt.start, tt.loopDelay, tt.loops, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := RunConfig{Script: "abc", Loops: 1}
	if err := ok.Validate(10); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name string
		cfg  RunConfig
		max  int
	}{
		{"negative start", RunConfig{StartDelayMs: -1, Loops: 1}, 0},
		{"negative loop delay", RunConfig{LoopDelayMs: -1, Loops: 1}, 0},
		{"zero loops", RunConfig{Loops: 0}, 0},
		{"too long", RunConfig{Script: strings.Repeat("a", 11), Loops: 1}, 10},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(tt.max); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}

	long := RunConfig{Script: strings.Repeat("a", 5000), Loops: 1}
	if err := long.Validate(0); err != nil {
		t.Errorf("Expected no limit at zero, got %v", err)
	}
}
