package token

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/slimemax/keyboardsim/internal/input"
	"github.com/slimemax/keyboardsim/internal/lines"
)

func newTestLexer(msgs ...string) (*Lexer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLexer(lines.New(msgs, 0), log.New(&buf, "", 0)), &buf
}

func TestLexKeyTokens(t *testing.T) {
	lx, _ := newTestLexer()

	tests := []struct {
		text     string
		key      input.Key
		hold     bool
		holdMs   int
		consumed int
	}{
		{"{up}", input.KeyUp, false, 0, 4},
		{"{down}", input.KeyDown, false, 0, 6},
		{"{left}", input.KeyLeft, false, 0, 6},
		{"{right}", input.KeyRight, false, 0, 7},
		{"{enter}", input.KeyEnter, false, 0, 7},
		{"{shift}", input.KeyShift, false, 0, 7},
		{"{ctrl}", input.KeyCtrl, false, 0, 6},
		{"{alt}", input.KeyAlt, false, 0, 5},
		{"{space}", input.KeySpace, false, 0, 7},
		{"{down:100}", input.KeyDown, true, 100, 10},
		{"{space:1500}trailing", input.KeySpace, true, 1500, 12},
		{"{up:0}", input.KeyUp, true, 0, 6},
		{"{alt:2147483647}", input.KeyAlt, true, 2147483647, 16},
		{"{enter}{enter}", input.KeyEnter, false, 0, 7},
	}

	for _, tt := range tests {
		tok, n := lx.Lex(tt.text, 0)
		if n != tt.consumed {
			t.Errorf("Lex(%q): expected %d consumed, got %d", tt.text, tt.consumed, n)
			continue
		}
		if tok.Kind != KindKey || tok.Key != tt.key || tok.Hold != tt.hold || tok.HoldMs != tt.holdMs {
			t.Errorf("Lex(%q): unexpected token %+v", tt.text, tok)
		}
	}
}

func TestLexAtOffset(t *testing.T) {
	lx, _ := newTestLexer()
	text := "Hi{enter}"

	if _, n := lx.Lex(text, 0); n != 0 {
		t.Errorf("Expected no token at 0, got length %d", n)
	}
	tok, n := lx.Lex(text, 2)
	if n != 7 || tok.Key != input.KeyEnter {
		t.Errorf("Expected {enter} at 2, got %+v (len %d)", tok, n)
	}
	if _, n := lx.Lex(text, len(text)); n != 0 {
		t.Error("Expected no token past the end")
	}
}

func TestLexMalformed(t *testing.T) {
	lx, buf := newTestLexer("one")

	for _, text := range []string{
		"{",
		"{up",
		"{UP}",
		"{upx}",
		"{up:}",
		"{up:2147483648}",
		"{up:12",
		"{up:1a}",
		"{up: 10}",
		"{tab}",
		"{message}",
		"{message1",
		"{messagex}",
		"{message-1}",
		"{up:" + strings.Repeat("1", 32) + "}",
		"{up:99999999999999999999}",
		"plain",
	} {
		if tok, n := lx.Lex(text, 0); n != 0 {
			t.Errorf("Lex(%q): expected no token, got %+v (len %d)", text, tok, n)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("Expected lexical misses to log nothing, got %q", buf.String())
	}
}

func TestLexSubstitution(t *testing.T) {
	lx, buf := newTestLexer("first", "second{enter}", "third")

	tok, n := lx.Lex("{message2}rest", 0)
	if n != 10 {
		t.Fatalf("Expected 10 consumed, got %d", n)
	}
	if tok.Kind != KindSubstitution || tok.Index != 2 || tok.Text != "second{enter}" {
		t.Errorf("Unexpected token %+v", tok)
	}
	if !strings.Contains(buf.String(), `line 2: "second{enter}"`) {
		t.Errorf("Expected resolution log, got %q", buf.String())
	}

	tok, n = lx.Lex("{message003}", 0)
	if n != 12 || tok.Index != 3 {
		t.Errorf("Expected leading zeros to resolve line 3, got %+v (len %d)", tok, n)
	}
}

func TestLexSubstitutionOutOfRange(t *testing.T) {
	lx, buf := newTestLexer("a", "b", "c")

	for _, text := range []string{"{message5}", "{message0}", "{message" + strings.Repeat("9", 31) + "}"} {
		buf.Reset()
		if _, n := lx.Lex(text, 0); n != 0 {
			t.Errorf("Lex(%q): expected zero length, got %d", text, n)
		}
		if strings.Count(buf.String(), "out of range") != 1 {
			t.Errorf("Lex(%q): expected one resolution error, got %q", text, buf.String())
		}
	}
}

func TestLexSubstitutionWithoutTable(t *testing.T) {
	var buf bytes.Buffer
	lx := NewLexer(nil, log.New(&buf, "", 0))

	if _, n := lx.Lex("{message1}", 0); n != 0 {
		t.Errorf("Expected zero length, got %d", n)
	}
	if !strings.Contains(buf.String(), "(1..0)") {
		t.Errorf("Expected range in log, got %q", buf.String())
	}
}

func TestTokenString(t *testing.T) {
	tests := []struct {
		tok  Token
		want string
	}{
		{Token{Kind: KindKey, Key: input.KeyUp}, "{up}"},
		{Token{Kind: KindKey, Key: input.KeyAlt, Hold: true, HoldMs: 250}, "{alt:250}"},
		{Token{Kind: KindSubstitution, Index: 7}, "{message7}"},
		{Token{}, ""},
	}
	for _, tt := range tests {
		if got := tt.tok.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
