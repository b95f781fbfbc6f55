// Package chunk splits files into line-aligned byte ranges and scans them.
package chunk

import (
	"errors"
	"fmt"
	"io"

	"github.com/usestring/chunkgrep/pkg/types"
)

// Planner defaults.
const (
	DefaultTargetChunks        = 10
	DefaultMaxChunkBytes int64 = 300 << 20 // 300 MiB
)

// PlanConfig controls how a file is partitioned.
type PlanConfig struct {
	TargetChunks  int   // Desired chunk count, normally the worker count (default: 10)
	MaxChunkBytes int64 // Upper bound on the naive chunk length (default: 300 MiB)
}

func (c PlanConfig) withDefaults() PlanConfig {
	if c.TargetChunks <= 0 {
		c.TargetChunks = DefaultTargetChunks
	}
	if c.MaxChunkBytes <= 0 {
		c.MaxChunkBytes = DefaultMaxChunkBytes
	}
	return c
}

// ChunkLength returns the naive chunk length for a file of size bytes:
// size/TargetChunks, capped at MaxChunkBytes and never below one byte.
func (c PlanConfig) ChunkLength(size int64) int64 {
	c = c.withDefaults()
	length := size / int64(c.TargetChunks)
	if length > c.MaxChunkBytes {
		length = c.MaxChunkBytes
	}
	if length < 1 {
		length = 1
	}
	return length
}

// Walk computes chunk boundaries for the first size bytes of r and calls fn for each
// chunk as soon as its end is known. A naive end that falls inside a line is moved
// forward, one byte read at a time, to the next '\n' or to the last byte of the file.
// The cost of that scan is bounded by the longest line.
//
// Walk stops at the first error returned by fn.
func Walk(r io.ReaderAt, size int64, cfg PlanConfig, fn func(types.Chunk) error) error {
	if size <= 0 {
		return nil
	}
	length := cfg.ChunkLength(size)

	var one [1]byte
	seq := 0
	for start := int64(0); start < size; seq++ {
		end := start + length - 1
		if end >= size-1 {
			end = size - 1
		} else {
			for end < size-1 {
				if _, err := r.ReadAt(one[:], end); err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("scanning for line end at offset %d: %w", end, err)
				}
				if one[0] == '\n' {
					break
				}
				end++
			}
		}

		if err := fn(types.Chunk{Seq: seq, Start: start, End: end}); err != nil {
			return err
		}
		start = end + 1
	}
	return nil
}

// Plan returns every chunk Walk would produce.
func Plan(r io.ReaderAt, size int64, cfg PlanConfig) ([]types.Chunk, error) {
	var chunks []types.Chunk
	err := Walk(r, size, cfg, func(c types.Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	return chunks, err
}
