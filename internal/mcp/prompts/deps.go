// Package prompts contains MCP prompt implementations for chunkgrep.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	MaxRecords   int
	CacheEnabled bool
}
