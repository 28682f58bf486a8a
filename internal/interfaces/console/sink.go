package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"fundarb/internal/application/port"
)

// Sink 终端输出：live 行原地刷新，快照行追加
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink w 为 nil 时写 stdout
func NewSink(w io.Writer) port.Sink {
	if w == nil {
		w = os.Stdout
	}
	return &Sink{w: w}
}

func (s *Sink) WriteLive(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.w, line) // no newline
	return err
}

// WriteSnapshot 打印快照行后留一个空行占位，live 行等下一次变化再刷新
func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "\n%s %s\n\n", ts.Format("2006-01-02 15:04:05"), line)
	return err
}

func (s *Sink) NewLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.w, "\n")
	return err
}
