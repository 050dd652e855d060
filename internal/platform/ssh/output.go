package ssh

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// prefixWriter writes complete lines to out, each prefixed with [name].
type prefixWriter struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
	buf    bytes.Buffer
}

func newPrefixWriter(out io.Writer, name string) *prefixWriter {
	return &prefixWriter{out: out, prefix: fmt.Sprintf("[%s] ", name)}
}

func (w *prefixWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// incomplete line stays buffered
			w.buf.Write(line)
			break
		}
		if _, err := fmt.Fprintf(w.out, "%s%s", w.prefix, line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes a trailing incomplete line.
func (w *prefixWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		_, _ = fmt.Fprintf(w.out, "%s%s\n", w.prefix, w.buf.String())
		w.buf.Reset()
	}
}
