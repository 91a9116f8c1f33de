package protocol

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/slimemax/keyboardsim/internal/runner"
)

func TestParseRunRequest(t *testing.T) {
	defaults := runner.RunConfig{Script: "default", StartDelayMs: 3000, LoopDelayMs: 2000, Loops: 1}

	tests := []struct {
		name string
		body string
		want runner.RunConfig
	}{
		{"empty object", `{}`, defaults},
		{"script only", `{"script":"Hi{enter}"}`, runner.RunConfig{Script: "Hi{enter}", StartDelayMs: 3000, LoopDelayMs: 2000, Loops: 1}},
		{"all fields", `{"script":"x","start_delay_ms":0,"loop_delay_ms":5,"loops":3}`, runner.RunConfig{Script: "x", LoopDelayMs: 5, Loops: 3}},
	}

	for _, tt := range tests {
		req, err := ParseRunRequest(gjson.Parse(tt.body))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got := req.Apply(defaults); got != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, got)
		}
	}
}

func TestParseRunRequestErrors(t *testing.T) {
	bodies := []string{
		`{"script":5}`,
		`{"loops":"3"}`,
		`{"start_delay_ms":1.5}`,
		`[1,2]`,
	}
	for _, body := range bodies {
		if _, err := ParseRunRequest(gjson.Parse(body)); err == nil {
			t.Errorf("Expected error for %s", body)
		}
	}
}

func TestParseRunRequestMissing(t *testing.T) {
	req, err := ParseRunRequest(gjson.Get(`{"type":"run"}`, "payload"))
	if err != nil {
		t.Fatalf("Expected missing payload to be accepted, got %v", err)
	}
	if req.Script != nil || req.Loops != nil {
		t.Errorf("Expected empty request, got %+v", req)
	}
}
