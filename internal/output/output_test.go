package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestPrinter_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	pr := NewPrinter(&out, &errOut)

	pr.Text(Report{
		Snapshot: &result.Snapshot{
			Records: []types.MatchRecord{
				{File: strPtr("b.log"), LineNumber: intPtr(2), Text: strPtr("two")},
				{File: strPtr("a.log"), LineNumber: intPtr(10), Text: strPtr("ten")},
				{File: strPtr("a.log"), LineNumber: intPtr(9), Text: strPtr("nine")},
			},
			Count:       1234,
			Partial:     true,
			Diagnostics: []types.Diagnostic{{Kind: types.DiagIO, Path: "c.log", Chunk: -1, Message: "permission denied"}},
		},
		Diagnostics: []types.Diagnostic{{Kind: types.DiagPattern, Chunk: -1, Message: `pattern "(": missing )`}},
		Elapsed:     1500 * time.Microsecond,
	})

	assert.Equal(t, "1,234 matches\na.log:9:nine\na.log:10:ten\nb.log:2:two\nelapsed: 1.5ms\n", out.String())
	assert.Equal(t,
		"chunkgrep: [pattern] pattern \"(\": missing )\nchunkgrep: [io] c.log: permission denied\n",
		errOut.String())
}

func TestPrinter_Text_countOnly(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out, &bytes.Buffer{})

	pr.Text(Report{
		Snapshot:  &result.Snapshot{Records: []types.MatchRecord{{}, {}}, Count: 2},
		CountOnly: true,
		Cached:    true,
	})
	assert.Equal(t, "2 matches\nelapsed: 0s (cached)\n", out.String())
}

func TestPrinter_Text_jqValues(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out, &bytes.Buffer{})

	pr.Text(Report{
		Snapshot: &result.Snapshot{Count: 2},
		Values:   []any{"a.log", map[string]any{"n": 1}},
	})
	assert.Contains(t, out.String(), "a.log\n{\"n\":1}\n")
}

func TestPrinter_JSON(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out, &bytes.Buffer{})

	require.NoError(t, pr.JSON(Report{
		Snapshot: &result.Snapshot{Records: []types.MatchRecord{{Text: strPtr("x")}}, Count: 1},
		Elapsed:  42 * time.Millisecond,
	}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, float64(1), doc["count"])
	assert.Equal(t, float64(42), doc["elapsed_ms"])
	assert.Equal(t, false, doc["partial"])
	assert.Equal(t, []any{map[string]any{"text": "x"}}, doc["records"])
}

func TestPrinter_YAML(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out, &bytes.Buffer{})

	require.NoError(t, pr.YAML(Report{
		Snapshot: &result.Snapshot{
			Records: []types.MatchRecord{{LineNumber: intPtr(7), Text: strPtr("boom")}},
			Count:   1,
		},
		Diagnostics: []types.Diagnostic{{Kind: types.DiagIO, Path: "gone.log", Chunk: -1, Message: "no such file"}},
	}))

	assert.Equal(t, `count: 1
records:
  - line_number: 7
    text: boom
partial: true
cached: false
elapsed_ms: 0
diagnostics:
  - kind: io
    path: gone.log
    chunk: -1
    message: no such file
`, out.String())
}

func TestReport_Partial(t *testing.T) {
	assert.False(t, Report{Snapshot: &result.Snapshot{}}.Partial())
	assert.True(t, Report{Diagnostics: []types.Diagnostic{{Kind: types.DiagIO}}}.Partial())
	assert.False(t, Report{Diagnostics: []types.Diagnostic{{Kind: types.DiagPattern}}}.Partial())
}

func TestFormatRecord(t *testing.T) {
	assert.Equal(t, "", FormatRecord(types.MatchRecord{}))
	assert.Equal(t, "f:3:p:t", FormatRecord(types.MatchRecord{
		File: strPtr("f"), LineNumber: intPtr(3), Pattern: strPtr("p"), Text: strPtr("t"),
	}))
}
