package golden_test

import (
	"testing"

	"goldcheck/internal/golden"
)

func TestForms(t *testing.T) {
	tests := []struct {
		resource string
		initial  string
		final    string
	}{
		{"testdata/TEXT.dat", "TEXT", ""},
		{"TEXT.dat", "TEXT", ""},
		{"/abs/dir/TEXT@2.dat", "TEXT", ""},
		{"dir/TEXT@DONE.dat", "TEXT", "DONE"},
		{"dir/UNKNOWN@HTML-3.dat", "UNKNOWN", "HTML-3"},
		{"dir/readme.txt", "readme", ""},
	}
	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			initial, final := golden.Forms(tt.resource)
			if initial != tt.initial || final != tt.final {
				t.Fatalf("Forms(%q) = (%q, %q), want (%q, %q)", tt.resource, initial, final, tt.initial, tt.final)
			}
		})
	}
}

func TestAnswerPath(t *testing.T) {
	if got := golden.AnswerPath("testdata/TEXT@2.dat"); got != "testdata/TEXT@2.xml" {
		t.Fatalf("AnswerPath = %q", got)
	}
}

func TestTestName(t *testing.T) {
	tests := []struct {
		dir      string
		resource string
		want     string
	}{
		{"testdata", "testdata/TEXT.dat", "TEXT"},
		{"testdata", "testdata/nested/TEXT@2.dat", "nested/TEXT@2"},
		{"", "rel/TEXT.dat", "rel/TEXT"},
		{"/fixtures", "/elsewhere/TEXT.dat", "TEXT"},
	}
	for _, tt := range tests {
		if got := golden.TestName(tt.dir, tt.resource); got != tt.want {
			t.Errorf("TestName(%q, %q) = %q, want %q", tt.dir, tt.resource, got, tt.want)
		}
	}
}
