package logging

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner); h != inner {
		t.Fatal("expected single handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With(slog.String("key", "value"))

	logger.Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Error("info handler should not receive debug messages")
	}
	if !bytes.Contains(debugBuf.Bytes(), []byte(`"key"`)) {
		t.Error("expected attrs in debug handler output")
	}

	logger.Info("both")
	if infoBuf.Len() == 0 {
		t.Error("expected info output")
	}
}
