package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/chunkgrep/internal/chunk"
	"github.com/usestring/chunkgrep/internal/mcp/tools"
	"github.com/usestring/chunkgrep/pkg/types"
)

// Resource URI scheme: chunkgrep://
// Supported URIs:
//   chunkgrep://cache/stats
//   chunkgrep://config
//   chunkgrep://plan/{path}    (path is URL-escaped)

const (
	uriCacheStats = "chunkgrep://cache/stats"
	uriConfig     = "chunkgrep://config"
	uriPlanPrefix = "chunkgrep://plan/"
)

// registerResources registers resources, resource templates and their handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriCacheStats,
		Name:        "Cache Stats",
		Description: "Result cache counters. Same content as the chunkgrep_cache_stats tool.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.3,
		},
	}, s.handleResourceCacheStats)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriConfig,
		Name:        "Engine Settings",
		Description: "Effective worker, queue, chunking, admission policy and cache settings.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.3,
		},
	}, s.handleResourceConfig)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: uriPlanPrefix + "{path}",
		Name:        "Chunk Plan",
		Description: "Line-aligned chunks a file would be split into under the current settings. Useful to understand how a large file is parallelized.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.2,
		},
	}, s.handleResourcePlan)
}

// Resource handlers

func (s *Server) handleResourceCacheStats(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, s.deps.CacheStats())
}

type settings struct {
	Workers         int    `json:"workers"`
	QueueCapacity   int    `json:"queue_capacity"`
	FileWorkers     int    `json:"file_workers"`
	MaxChunkBytes   int64  `json:"max_chunk_bytes"`
	AdmissionPolicy string `json:"admission_policy"`
	CacheEnabled    bool   `json:"cache_enabled"`
	CacheTTLMs      int64  `json:"cache_ttl_ms"`
	CacheMaxEntries int    `json:"cache_max_entries"`
	MaxRecords      int    `json:"max_records"`
}

func (s *Server) handleResourceConfig(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	cfg := s.deps.Config
	return toResourceResult(req.Params.URI, settings{
		Workers:         cfg.Workers,
		QueueCapacity:   cfg.QueueCapacity,
		FileWorkers:     cfg.FileWorkers,
		MaxChunkBytes:   cfg.MaxChunkBytes,
		AdmissionPolicy: cfg.AdmissionPolicy,
		CacheEnabled:    s.deps.Cache != nil,
		CacheTTLMs:      cfg.CacheTTL.Milliseconds(),
		CacheMaxEntries: cfg.CacheMaxEntries,
		MaxRecords:      s.deps.MaxRecords(),
	})
}

type chunkPlan struct {
	Path        string        `json:"path"`
	Size        int64         `json:"size"`
	ChunkLength int64         `json:"chunk_length"`
	Chunks      []types.Chunk `json:"chunks"`
}

func (s *Server) handleResourcePlan(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	path, err := parsePlanURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	engineCfg, err := s.deps.Config.Engine()
	if err != nil {
		return nil, tools.ErrInvalidInput(err.Error())
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, tools.WrapSearchError(&types.IOError{Path: path, Chunk: -1, Err: err})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, tools.WrapSearchError(&types.IOError{Path: path, Chunk: -1, Err: err})
	}
	if info.IsDir() {
		return nil, tools.ErrInvalidInput(fmt.Sprintf("%s is a directory", path))
	}

	chunks, err := chunk.Plan(f, info.Size(), engineCfg.Plan)
	if err != nil {
		return nil, tools.WrapSearchError(err)
	}
	if chunks == nil {
		chunks = []types.Chunk{}
	}

	return toResourceResult(req.Params.URI, chunkPlan{
		Path:        path,
		Size:        info.Size(),
		ChunkLength: engineCfg.Plan.ChunkLength(info.Size()),
		Chunks:      chunks,
	})
}

// Helper functions

// parsePlanURI extracts the file path from a chunkgrep://plan/ URI.
func parsePlanURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, uriPlanPrefix) {
		return "", tools.ErrInvalidInput("invalid URI: expected " + uriPlanPrefix + "{path}")
	}
	path, err := url.PathUnescape(strings.TrimPrefix(uri, uriPlanPrefix))
	if err != nil {
		return "", tools.ErrInvalidInput(fmt.Sprintf("invalid path escaping: %v", err))
	}
	if path == "" {
		return "", tools.ErrInvalidInput("plan URI requires a file path")
	}
	return path, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
