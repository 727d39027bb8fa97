package monitoring

import (
	"fmt"
	"log"
	"testing"
)

func TestSetLoggerRedirects(t *testing.T) {
	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { SetLogger(log.Printf) })

	Logf("cell %d/%d: %s", 3, 9, "POD+RBF")

	if len(got) != 1 {
		t.Fatalf("captured %d lines, want 1", len(got))
	}
	if got[0] != "cell 3/9: POD+RBF" {
		t.Errorf("line = %q", got[0])
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	var calls int
	SetLogger(func(string, ...interface{}) { calls++ })
	t.Cleanup(func() { SetLogger(log.Printf) })

	Logf("before mute")
	SetLogger(nil)
	Logf("after mute")

	if calls != 1 {
		t.Errorf("sink called %d times, want 1", calls)
	}
}
