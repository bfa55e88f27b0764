package token

import (
	"regexp"
	"testing"
)

var shape = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)

func TestNewShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if !shape.MatchString(tok) {
			t.Fatalf("token %q does not match %s", tok, shape)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestPair(t *testing.T) {
	main, co, err := Pair(false)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if main == co {
		t.Error("expected independent tokens")
	}

	main, co, err = Pair(true)
	if err != nil {
		t.Fatalf("Pair(same): %v", err)
	}
	if main != co {
		t.Error("expected identical tokens on the same-user path")
	}
}
