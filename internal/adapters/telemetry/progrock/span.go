package progrock

import (
	"fmt"

	"github.com/vito/progrock"
	"go.trai.ch/sw/internal/core/ports"
)

var _ ports.Span = (*Span)(nil)

// Span implements ports.Span wrapping *progrock.VertexRecorder.
type Span struct {
	vertex *progrock.VertexRecorder
	err    error
}

// Write streams command output into the vertex's stdout.
func (s *Span) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// End completes the vertex with the recorded error, if any.
func (s *Span) End() {
	s.vertex.Done(s.err)
}

// RecordError stores the error reported when the vertex completes.
func (s *Span) RecordError(err error) {
	s.err = err
}

// SetAttribute renders the attribute into the vertex's output; cached
// skips mark the vertex as such.
func (s *Span) SetAttribute(key string, value any) {
	if key == "sw.cached" {
		if cached, ok := value.(bool); ok && cached {
			s.vertex.Cached()
			return
		}
	}
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}
