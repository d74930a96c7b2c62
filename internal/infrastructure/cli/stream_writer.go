package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/sgpt-go/internal/ports"
)

// StreamWriter is the ports.StreamSink of the terminal. Plain output is
// written as it arrives; markdown output is buffered and rendered once the
// answer is complete.
type StreamWriter struct {
	out      io.Writer
	renderer *Renderer
	prettify bool
	onFirst  func()

	started bool
	buf     strings.Builder
}

// NewStreamWriter builds a sink on out. onFirst, if set, runs before the
// first chunk is handled, e.g. to stop a spinner.
func NewStreamWriter(out io.Writer, renderer *Renderer, prettify bool, onFirst func()) *StreamWriter {
	return &StreamWriter{out: out, renderer: renderer, prettify: prettify, onFirst: onFirst}
}

func (s *StreamWriter) WriteChunk(text string) {
	s.start()
	if text == "" {
		return
	}
	if s.prettify {
		s.buf.WriteString(text)
		return
	}
	fmt.Fprint(s.out, text)
}

// Done flushes the answer and resets the writer for the next one.
func (s *StreamWriter) Done() {
	s.start()
	if s.prettify {
		fmt.Fprint(s.out, s.renderer.Render(s.buf.String(), true))
		s.buf.Reset()
	} else {
		fmt.Fprintln(s.out)
	}
	s.started = false
}

func (s *StreamWriter) start() {
	if s.started {
		return
	}
	s.started = true
	if s.onFirst != nil {
		s.onFirst()
	}
}

var _ ports.StreamSink = (*StreamWriter)(nil)
