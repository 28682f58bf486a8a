package console

import (
	"bytes"
	"testing"
	"time"
)

func TestSinkOutput(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)

	_ = s.WriteLive("\rBTC 50000")
	_ = s.WriteSnapshot(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "equity=100")
	_ = s.NewLine()

	want := "\rBTC 50000\n2026-01-02 03:04:05 equity=100\n\n\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n got %q\nwant %q", got, want)
	}
}
