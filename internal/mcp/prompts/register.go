package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	// Prompt 1: Search workflow guide
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "search_files",
		Description: "RECOMMENDED: Guide for searching large files and directories with chunkgrep_search. Start here - explains flags, limits, jq projection and caching.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "goal",
				Description: "What you are looking for (e.g., 'timeouts talking to the payments API')",
				Required:    false,
			},
			{
				Name:        "path",
				Description: "File or directory to search",
				Required:    false,
			},
		},
	}, HandleSearchFiles(cfg))

	// Prompt 2: Error triage
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "triage_errors",
		Description: "Find, count and group error lines across log files, starting from totals and drilling into the noisiest files.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "path",
				Description: "Log file or directory to triage",
				Required:    true,
			},
			{
				Name:        "levels",
				Description: "Comma-separated level keywords to treat as errors (default: ERROR,FATAL,panic)",
				Required:    false,
			},
		},
	}, HandleTriageErrors(cfg))
}
