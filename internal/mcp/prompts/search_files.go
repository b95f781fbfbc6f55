package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleSearchFiles serves the search workflow guide.
// The caching section is included only when the result cache is enabled.
func HandleSearchFiles(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments
		goal := args["goal"]
		path := args["path"]

		var sb strings.Builder

		sb.WriteString("# Searching Files with chunkgrep\n\n")
		if goal != "" {
			sb.WriteString(fmt.Sprintf("**Goal**: %s\n", goal))
		}
		if path != "" {
			sb.WriteString(fmt.Sprintf("**Target**: `%s`\n", path))
		}
		if goal != "" || path != "" {
			sb.WriteString("\n")
		}

		sb.WriteString("## Workflow\n\n")
		sb.WriteString("1. **Count first**: call `chunkgrep_search` with `flags: {count_only: true}` to size the result\n")
		sb.WriteString("2. **Narrow**: add or tighten patterns until the count is manageable\n")
		sb.WriteString(fmt.Sprintf("3. **Read records**: drop `count_only`; at most %d records come back per call, sorted by file then line\n", cfg.MaxRecords))
		sb.WriteString("4. **Project**: use `jq` to pull out just what you need (e.g. `.file`, `.text | capture(\"id=(?<id>\\\\d+)\")`)\n\n")

		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Goal | Parameter | Example |\n")
		sb.WriteString("|------|-----------|--------|\n")
		sb.WriteString("| Search specific files | `files` | `files: [\"app.log\"]` |\n")
		sb.WriteString("| Search a tree | `recursive` + `directories` | `recursive: true, directories: [\"logs\"]` |\n")
		sb.WriteString("| Several alternatives | `patterns` | `patterns: [\"timeout\", \"deadline exceeded\"]` |\n")
		sb.WriteString("| Ignore case | `flags.case_insensitive` | `flags: {case_insensitive: true}` |\n")
		sb.WriteString("| Lines WITHOUT a match | `flags.invert` | `flags: {invert: true}` |\n")
		sb.WriteString("| Which pattern matched | `flags.pattern` | `flags: {pattern: true, line_text: true}` |\n")
		sb.WriteString("| Filter records | `where` | `where: \".line_number > 1000\"` |\n")

		sb.WriteString("\n**Key rules**:\n")
		sb.WriteString("- Patterns use RE2 syntax: no backreferences or lookaround\n")
		sb.WriteString("- A line matching two patterns yields two records and counts twice\n")
		sb.WriteString("- `invert` yields one record per pattern the line does NOT match\n")
		sb.WriteString("- `count_only` cannot be combined with `line_number`, `line_text`, `file_name` or `pattern`\n")
		sb.WriteString("- A pattern that fails to compile is skipped and reported in `diagnostics`\n")
		sb.WriteString("- `partial: true` means some file or chunk was not scanned; check `diagnostics`\n")

		if cfg.CacheEnabled {
			sb.WriteString("\n## Caching\n\n")
			sb.WriteString("Identical searches (same patterns, files and flags) are answered from cache within the TTL and report `cached: true`. ")
			sb.WriteString("If files changed since the last search, call `chunkgrep_cache_purge` first. ")
			sb.WriteString("Partial results are never cached.\n")
		}

		sb.WriteString("\n## Resources\n\n")
		sb.WriteString("- `chunkgrep://config` - effective worker, chunking and cache settings\n")
		sb.WriteString("- `chunkgrep://plan/{path}` - how a large file is split into line-aligned chunks\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for searching files with chunkgrep",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
