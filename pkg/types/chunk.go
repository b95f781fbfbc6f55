package types

import "fmt"

// Chunk is a line-aligned byte range of one file. Start and End are both inclusive.
// End is always a line terminator or the last byte of the file.
type Chunk struct {
	Seq   int   `json:"seq"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes in the chunk.
func (c Chunk) Len() int64 {
	return c.End - c.Start + 1
}

func (c Chunk) String() string {
	return fmt.Sprintf("chunk#%d[%d,%d]", c.Seq, c.Start, c.End)
}

// DiagnosticKind classifies a non-fatal problem reported alongside a result.
type DiagnosticKind string

const (
	DiagPattern DiagnosticKind = "pattern"
	DiagIO      DiagnosticKind = "io"
	DiagDropped DiagnosticKind = "dropped"
	DiagCache   DiagnosticKind = "cache"
	DiagCancel  DiagnosticKind = "canceled"
)

// Incomplete reports whether a diagnostic of this kind means some input was not scanned.
func (k DiagnosticKind) Incomplete() bool {
	return k == DiagIO || k == DiagDropped || k == DiagCancel
}

// Diagnostic is a non-fatal problem surfaced next to a best-effort result.
// Chunk is -1 when the problem is not tied to a chunk.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Path    string         `json:"path,omitempty" yaml:"path,omitempty"`
	Chunk   int            `json:"chunk" yaml:"chunk"`
	Message string         `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	switch {
	case d.Path != "" && d.Chunk >= 0:
		return fmt.Sprintf("[%s] %s chunk %d: %s", d.Kind, d.Path, d.Chunk, d.Message)
	case d.Path != "":
		return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Path, d.Message)
	default:
		return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
	}
}
