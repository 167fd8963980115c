package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Info("Updater", "hidden %d", 1)
	l.Warn("Updater", "shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line written at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [Updater] shown 2") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("Warning")
	if err != nil || level != WARN {
		t.Fatalf("ParseLevel(Warning) = %v, %v", level, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestEveryAllowsFirstOfEachBatch(t *testing.T) {
	e := NewEvery(3)
	var allowed []int
	for i := 1; i <= 7; i++ {
		if e.Allow() {
			allowed = append(allowed, i)
		}
	}
	if len(allowed) != 3 || allowed[0] != 1 || allowed[1] != 4 || allowed[2] != 7 {
		t.Fatalf("unexpected allowed calls: %v", allowed)
	}
}
