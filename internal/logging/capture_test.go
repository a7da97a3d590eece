package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCaptureRecordsOrderedEvents(t *testing.T) {
	reg := NewRegistry(nil)
	logger := reg.Logger("place.Splitter")

	logger.Info("before capture")
	c := reg.StartCapture("place.Splitter")
	logger.Debug("first")
	logger.With(slog.String("k", "v")).Warn("second")
	logger.Error("third")
	events := c.Stop()
	logger.Info("after capture")

	want := []Event{
		{Level: "DEBUG", Message: "first"},
		{Level: "WARN", Message: "second"},
		{Level: "ERROR", Message: "third"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("captured events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, c.Stop()); diff != "" {
		t.Fatalf("second Stop changed events:\n%s", diff)
	}
}

func TestCaptureIsScopedToName(t *testing.T) {
	reg := NewRegistry(nil)
	a := reg.StartCapture("a")
	b := reg.StartCapture("b")
	reg.Logger("a").Info("for a")
	reg.Logger("b").Info("for b")

	if got := a.Stop(); len(got) != 1 || got[0].Message != "for a" {
		t.Fatalf("capture a = %v", got)
	}
	reg.Logger("b").Info("still b")
	if got := b.Stop(); len(got) != 2 {
		t.Fatalf("capture b = %v", got)
	}
}

func TestCaptureDetachesOnlyItsOwnRecorder(t *testing.T) {
	reg := NewRegistry(nil)
	outer := reg.StartCapture("x")
	inner := reg.StartCapture("x")
	reg.Logger("x").Info("one")
	inner.Stop()
	reg.Logger("x").Info("two")

	if got := outer.Stop(); len(got) != 2 {
		t.Fatalf("outer capture = %v, want two events", got)
	}
	if len(reg.entry("x").active()) != 0 {
		t.Fatal("expected no recorders left attached")
	}
}

func TestWithCaptureReleasesOnPanic(t *testing.T) {
	reg := NewRegistry(nil)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_, _ = reg.WithCapture("p", func() error {
			reg.Logger("p").Info("about to panic")
			panic("boom")
		})
	}()
	if len(reg.entry("p").active()) != 0 {
		t.Fatal("recorder leaked after panic")
	}
}

func TestWithCaptureReturnsEventsAndError(t *testing.T) {
	reg := NewRegistry(nil)
	sentinel := errors.New("failed")
	events, err := reg.WithCapture("q", func() error {
		reg.Logger("q").Warn("careful")
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if len(events) != 1 || events[0].Level != "WARN" {
		t.Fatalf("events = %v", events)
	}
}

func TestNamedLoggerWritesToBase(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reg.Logger("n").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug should be filtered by base level")
	}
	reg.Logger("n").Info("visible")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"n"`)) {
		t.Fatalf("expected component attr, got %s", buf.String())
	}
}
