package compile

import (
	"io"
	"strings"
	"sync"
)

// OutputSink is an append-only channel for progress and diagnostic text. Text is
// written exactly as given; callers include line breaks.
type OutputSink interface {
	Output(text string)
}

// WriterSink forwards output to an io.Writer. Write errors are ignored.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Output implements OutputSink.
func (s *WriterSink) Output(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, text)
}

// BufferSink collects output in memory.
type BufferSink struct {
	mu  sync.Mutex
	buf strings.Builder
}

// Output implements OutputSink.
func (s *BufferSink) Output(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.WriteString(text)
}

// String returns everything written so far.
func (s *BufferSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// FlushTo copies the buffered output to dst.
func (s *BufferSink) FlushTo(dst OutputSink) {
	if text := s.String(); text != "" {
		dst.Output(text)
	}
}
