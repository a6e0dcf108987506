package lexer

import (
	"reflect"
	"testing"
)

func TestTokenizeDelimiterSplit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		delims    []string
		expr      bool
		trim      bool
		split     bool
		want      []string
		wantError bool
	}{
		{
			name:   "no delimiters keeps brackets intact",
			input:  `(a b) c`,
			delims: nil,
			want:   []string{"(a b) c"},
		},
		{
			name:   "space delimiter splits outside brackets",
			input:  `(a b) c`,
			delims: []string{" "},
			want:   []string{"(a b)", "c"},
		},
		{
			name:   "semicolon splits statements",
			input:  `let x = 1; x + 1;`,
			delims: []string{";"},
			trim:   true,
			want:   []string{"let x = 1", " x + 1"},
		},
		{
			name:      "unbalanced closing bracket errors",
			input:     `a)`,
			delims:    []string{" "},
			wantError: true,
		},
		{
			name:      "unterminated string errors",
			input:     `"abc`,
			delims:    []string{" "},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.input, tt.delims, tt.expr, tt.trim, tt.split)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got tokens %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenizeExprMode(t *testing.T) {
	got, err := Tokenize("1 + 2 * 3 - 10", Space, true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1", "+", "2", "*", "3", "-", "10"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeLongestOperatorWins(t *testing.T) {
	got, err := Tokenize("x == y", Space, true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"x", "==", "y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeComment(t *testing.T) {
	got, err := Tokenize(`1 ~~ this is a comment ~~ + 2`, Space, true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1", "+", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeQuotedStringIsOpaque(t *testing.T) {
	got, err := Tokenize(`"hi there" + x`, Space, true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{`"hi there"`, "+", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeEscapeInsideString(t *testing.T) {
	got, err := Tokenize(`"a\"b"`, Space, true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{`"a"b"`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIsIdentifier(t *testing.T) {
	cases := map[string]bool{
		"x":       true,
		"foo_bar": true,
		"let":     false,
		"+":       false,
		"":        false,
	}
	for name, want := range cases {
		if got := IsIdentifier(name); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}
