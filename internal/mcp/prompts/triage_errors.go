package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var defaultErrorLevels = []string{"ERROR", "FATAL", "panic"}

// HandleTriageErrors serves the error triage workflow.
func HandleTriageErrors(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments
		path := args["path"]
		if path == "" {
			return nil, fmt.Errorf("path argument is required")
		}

		levels := splitLevels(args["levels"])
		patterns := make([]string, len(levels))
		for i, l := range levels {
			patterns[i] = fmt.Sprintf("%q", `\b`+l+`\b`)
		}
		patternList := "[" + strings.Join(patterns, ", ") + "]"

		var sb strings.Builder

		sb.WriteString(fmt.Sprintf("# Error Triage: `%s`\n\n", path))

		sb.WriteString("## Step 1: Totals\n\n")
		sb.WriteString(fmt.Sprintf("Call `chunkgrep_search` with `patterns: %s`, `files` or `directories: [\"%s\"]` (with `recursive: true` for a directory) and `flags: {count_only: true}`.\n\n", patternList, path))

		sb.WriteString("## Step 2: Per-file breakdown\n\n")
		sb.WriteString("Repeat with `flags: {file_name: true}` and `jq: \".file\"`. Tally the values to find the noisiest files.\n\n")

		sb.WriteString("## Step 3: Group messages\n\n")
		sb.WriteString("On the noisiest file use `flags: {line_number: true, line_text: true, pattern: true}`. ")
		sb.WriteString("Group lines by message after stripping timestamps and ids; `jq: \".text | sub(\\\"[0-9]+\\\"; \\\"N\\\"; \\\"g\\\")\"` collapses numbers.\n")
		sb.WriteString(fmt.Sprintf("Each call returns at most %d records; check `truncated` and narrow the patterns rather than paging.\n\n", cfg.MaxRecords))

		sb.WriteString("## Step 4: Report\n\n")
		sb.WriteString("Summarize: total count per level, top files, the 3-5 most frequent message groups with one example line (file:line) each, ")
		sb.WriteString("and any `diagnostics` showing unreadable files (a `partial` result undercounts).\n")

		return &sdkmcp.GetPromptResult{
			Description: "Error triage workflow for " + path,
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}

func splitLevels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultErrorLevels
	}
	return out
}
