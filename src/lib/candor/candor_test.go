package candor

import (
	"strings"
	"testing"
)

func reset(t *testing.T, buf *strings.Builder) {
	t.Helper()
	prevOut := SetOutput(buf)
	prevLvl := SetLevel(ErrorMask | WarnMask | InfoMask | DebugMask)
	OnFatal(nil)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetLevel(prevLvl)
		OnFatal(nil)
	})
}

func TestPrefixes(t *testing.T) {
	var buf strings.Builder
	reset(t, &buf)

	Errorf("e %d", 1)
	Warnf("w")
	Infof("i")
	Debugf("d")

	want := "ERROR:e 1\n WARN:w\n INFO:i\nDEBUG:d\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestMasking(t *testing.T) {
	var buf strings.Builder
	reset(t, &buf)

	SetLevel(ErrorMask)
	Infof("hidden")
	Debugf("hidden")
	Errorf("shown")
	if got := buf.String(); got != "ERROR:shown\n" {
		t.Errorf("got %q", got)
	}
}

func TestSetLevelReturnsPrevious(t *testing.T) {
	var buf strings.Builder
	reset(t, &buf)

	prev := SetLevel(ErrorMask)
	if prev != ErrorMask|WarnMask|InfoMask|DebugMask {
		t.Errorf("prev = %#x", prev)
	}
	if Level() != ErrorMask {
		t.Errorf("Level() = %#x", Level())
	}
}

func TestFatalfIgnoresMaskAndEscalates(t *testing.T) {
	var buf strings.Builder
	reset(t, &buf)

	SetLevel(Nothing)
	var code int
	OnFatal(func(c int) { code = c })
	Fatalf(3, "boom")
	if buf.String() != "FATAL:boom\n" {
		t.Errorf("got %q", buf.String())
	}
	if code != 3 {
		t.Errorf("fatal hook code = %d, want 3", code)
	}
}

func TestNilSinkIsSilent(t *testing.T) {
	var buf strings.Builder
	reset(t, &buf)
	SetOutput(nil)
	Errorf("dropped") // must not panic
	Fatalf(1, "dropped")
	if buf.Len() != 0 {
		t.Errorf("buffer got %q", buf.String())
	}
}

func TestNewlineAppended(t *testing.T) {
	var buf strings.Builder
	reset(t, &buf)
	Infof("no newline")
	if !strings.HasSuffix(buf.String(), "no newline\n") {
		t.Errorf("got %q", buf.String())
	}
}
