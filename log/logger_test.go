package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)
	SetLevel(Notice)
	defer SetLevel(Notice)

	logger := New("test")
	logger.Debug("debug-line")
	logger.Notice("notice-line")

	out := buf.String()
	if strings.Contains(out, "debug-line") {
		t.Fatalf("expected debug output to be filtered at notice level; got %q", out)
	}
	if !strings.Contains(out, "notice-line") || !strings.Contains(out, "[test]") {
		t.Fatalf("expected notice output tagged with the module name; got %q", out)
	}

	buf.Reset()
	SetLevel(Debug)
	logger.Debugf("value %d", 42)
	if !strings.Contains(buf.String(), "value 42") {
		t.Fatalf("expected debug output after raising verbosity; got %q", buf.String())
	}
}

func TestPlainFormatForNonTerminalSinks(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	New("plain").Warning("no colors")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected no ANSI color codes for a non-terminal sink; got %q", buf.String())
	}
}
