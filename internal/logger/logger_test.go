package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		InfoLevel:  zapcore.InfoLevel,
		WarnLevel:  zapcore.WarnLevel,
		ErrorLevel: zapcore.ErrorLevel,
		DebugLevel: zapcore.DebugLevel,
		"bogus":    defaultZapLevel,
	}
	for in, want := range cases {
		if got := toZapLevel(in); got != want {
			t.Errorf("toZapLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestNew_NormalizesLevel(t *testing.T) {
	l := New("  WARN ")
	if l.Desugar().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !l.Desugar().Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled")
	}
}

func TestOrNopAndNamed_NilSafe(t *testing.T) {
	var l *Logger
	OrNop(l).Infow("discarded")
	l.Named("realtime").Infow("discarded")
}
