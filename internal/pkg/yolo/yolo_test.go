package yolo

import (
	"strings"
	"testing"
)

func TestMarshal(t *testing.T) {
	lines := []Line{
		{ClassIndex: 0, X: 0.5, Y: 0.5, Width: 0.25, Height: 0.125},
		{ClassIndex: 3, X: 0.1, Y: 0.9, Width: 1, Height: 0},
	}
	got := Marshal(lines)
	want := "0 0.500000 0.500000 0.250000 0.125000\n3 0.100000 0.900000 1.000000 0.000000"
	if got != want {
		t.Errorf("Marshal = %q, want %q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("Marshal must not emit a trailing newline")
	}
}

func TestMarshal_Empty(t *testing.T) {
	if got := Marshal(nil); got != "" {
		t.Errorf("Marshal(nil) = %q, want empty", got)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	in := []Line{
		{ClassIndex: 2, X: 0.25, Y: 0.75, Width: 0.5, Height: 0.5},
		{ClassIndex: 0, X: 0.123456, Y: 0.654321, Width: 0.111111, Height: 0.222222},
	}
	out, err := Parse(Marshal(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Parse returned %d lines, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("line %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParse_SkipsBlankLines(t *testing.T) {
	out, err := Parse("\n0 0.5 0.5 0.1 0.1\n\n1 0.2 0.2 0.3 0.3\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Parse returned %d lines, want 2", len(out))
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"0 0.5 0.5 0.1",
		"x 0.5 0.5 0.1 0.1",
		"0 0.5 0.5 0.1 nope",
		"0 0.5 0.5 0.1 0.1 extra",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) should fail", c)
		}
	}
}
