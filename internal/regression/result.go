package regression

import (
	"time"

	"goldcheck/internal/failure"
)

// Result is the outcome of one test case.
type Result struct {
	RunID       string
	Test        string
	Resource    string
	Generated   bool
	Attachments int
	Events      int
	Duration    time.Duration
	Err         error
}

// Passed reports whether the case succeeded.
func (r Result) Passed() bool { return r.Err == nil }

// Class returns the failure class, or "" for a passing case.
func (r Result) Class() failure.Class { return failure.ClassOf(r.Err) }

// Summary collects the results of one RunAll call.
type Summary struct {
	RunID   string
	Results []Result
}

// Passed counts passing cases.
func (s Summary) Passed() int {
	n := 0
	for _, r := range s.Results {
		if r.Passed() {
			n++
		}
	}
	return n
}

// Failed counts failing cases.
func (s Summary) Failed() int { return len(s.Results) - s.Passed() }

// ByClass counts failures per class.
func (s Summary) ByClass() map[failure.Class]int {
	out := make(map[failure.Class]int)
	for _, r := range s.Results {
		if !r.Passed() {
			out[r.Class()]++
		}
	}
	return out
}
