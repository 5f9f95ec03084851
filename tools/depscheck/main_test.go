package main

import (
	"strings"
	"testing"
)

func TestFindViolations(t *testing.T) {
	input := `
{"ImportPath":"sulphate/internal/world","Imports":["sulphate/internal/space","sulphate/internal/sim"]}
{"ImportPath":"sulphate/internal/space","Imports":["sulphate/internal/units","sulphate/internal/simulator"]}
`
	violations, err := findViolations(strings.NewReader(input))
	if err != nil {
		t.Fatalf("findViolations: %v", err)
	}
	if len(violations) != 1 || violations[0] != "sulphate/internal/world -> sulphate/internal/sim" {
		t.Fatalf("unexpected violations %v", violations)
	}

	if _, err := findViolations(strings.NewReader("{")); err == nil {
		t.Fatalf("expected malformed input to fail")
	}
}
