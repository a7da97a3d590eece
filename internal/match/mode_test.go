package match_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"goldcheck/internal/failure"
	"goldcheck/internal/match"
)

func TestEvaluateModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		sep      string
		expected string
		actual   string
		wantErr  failure.Class
	}{
		{"default equals", "", "", "hello", "hello", ""},
		{"equals mismatch", "equals", "", "hello", "hell", failure.Assertion},
		{"contains", "contains", "", "ell", "hello", ""},
		{"index alias", "index", "", "ell", "hello", ""},
		{"contains mismatch", "contains", "", "xyz", "hello", failure.Assertion},
		{"not contains", "!contains", "", "xyz", "hello", ""},
		{"not index found", "!index", "", "ell", "hello", failure.Assertion},
		{"regex full match", "match", "", "h.*o", "hello", ""},
		{"regex partial is not full", "match", "", "ell", "hello", failure.Assertion},
		{"regex invalid", "match", "", "(", "hello", failure.Malformed},
		{"base64", "base64", "", base64.StdEncoding.EncodeToString([]byte("hello")), "hello", ""},
		{"base64 binary", "base64", "", base64.StdEncoding.EncodeToString([]byte{0, 1, 2}), string([]byte{0, 1, 2}), ""},
		{"base64 invalid", "base64", "", "!!!", "hello", failure.Malformed},
		{"collection reordered", "collection", "", "a,b", "b,a", ""},
		{"collection superset", "collection", "", "a,b", "a,b,c", failure.Assertion},
		{"collection multiplicity", "collection", "", "a,a,b", "a,b,b", failure.Assertion},
		{"collection custom sep", "collection", "|", "a|b", "b|a", ""},
		{"collection case insensitive mode", "Collection", "", "x,y", "y,x", ""},
		{"unknown mode", "fuzzy", "", "a", "a", failure.Malformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := match.Assertion{Test: "t", Field: "meta", Key: "K", Mode: tt.mode, Expected: tt.expected, Separator: tt.sep}
			err := match.Evaluate(a, tt.actual, true)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Evaluate returned %v", err)
				}
				return
			}
			if got := failure.ClassOf(err); got != tt.wantErr {
				t.Fatalf("Evaluate class = %q (%v), want %q", got, err, tt.wantErr)
			}
		})
	}
}

func TestEvaluateAbsentActualFails(t *testing.T) {
	a := match.Assertion{Test: "t", Field: "meta", Key: "FOO", Expected: "bar"}
	err := match.Evaluate(a, "", false)
	if !failure.Is(err, failure.Assertion) {
		t.Fatalf("expected assertion failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "bar") {
		t.Fatalf("message %q should name the expected value", err)
	}
}

func TestEvaluateUnknownModeFailsEvenWhenAbsent(t *testing.T) {
	err := match.Evaluate(match.Assertion{Mode: "nope", Expected: "x"}, "", false)
	if !failure.Is(err, failure.Malformed) {
		t.Fatalf("expected malformed failure, got %v", err)
	}
}

func TestEvaluateReflexiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.StringMatching(`[A-Za-z0-9 _]{1,24}`).Draw(t, "x")
		mode := rapid.SampledFrom([]string{match.Equals, match.Contains, match.Regex}).Draw(t, "mode")
		if err := match.Evaluate(match.Assertion{Mode: mode, Expected: x}, x, true); err != nil {
			t.Fatalf("Evaluate(%s, %q, %q) = %v", mode, x, x, err)
		}
	})
}

func TestEvaluateNotContainsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.StringMatching(`[ab]{1,3}`).Draw(t, "x")
		y := rapid.StringMatching(`[ab]{0,6}`).Draw(t, "y")
		err := match.Evaluate(match.Assertion{Mode: match.NotContains, Expected: x}, y, true)
		if want := !strings.Contains(y, x); (err == nil) != want {
			t.Fatalf("!contains(%q, %q) passed=%v, want %v", x, y, err == nil, want)
		}
	})
}

func TestEvaluateCollectionOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tokens := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,4}`), 1, 6).Draw(t, "tokens")
		perm := rapid.Permutation(tokens).Draw(t, "perm")
		a := match.Assertion{Mode: match.Collection, Expected: strings.Join(tokens, ",")}
		if err := match.Evaluate(a, strings.Join(perm, ","), true); err != nil {
			t.Fatalf("collection of permutation failed: %v", err)
		}
	})
}
