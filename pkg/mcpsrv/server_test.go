package mcpsrv

import (
	"context"
	"path/filepath"
	"testing"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/chunkgrep/internal/config"
)

type echoInput struct {
	Text string `json:"text"`
}

type echoOutput struct {
	Text string `json:"text"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Workers:         2,
		QueueCapacity:   4,
		FileWorkers:     1,
		AdmissionPolicy: "grow",
		CacheEnabled:    true,
		CachePath:       filepath.Join(t.TempDir(), "cache.json"),
		CacheMaxEntries: 4,
		MCPMaxRecords:   10,
		LogLevel:        "error",
	}
}

func TestNewServer_wiresCacheAndCustomTools(t *testing.T) {
	var gotDeps *Deps
	srv, err := NewServer(
		WithConfig(testConfig(t)),
		WithoutBuiltinPrompts(),
		WithTool(&mcp.Tool{Name: "echo", Description: "Echo text"},
			func(ctx context.Context, req *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, echoOutput, error) {
				return nil, echoOutput(in), nil
			}),
		WithDepsTool(&mcp.Tool{Name: "deps_echo", Description: "Echo with deps"},
			func(d *Deps) func(context.Context, *mcp.CallToolRequest, echoInput) (*mcp.CallToolResult, echoOutput, error) {
				gotDeps = d
				return func(ctx context.Context, req *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, echoOutput, error) {
					return nil, echoOutput(in), nil
				}
			}),
	)
	require.NoError(t, err)
	defer srv.Close()

	require.NotNil(t, gotDeps)
	assert.Same(t, srv.Deps(), gotDeps)
	require.NotNil(t, srv.Deps().Cache)
	assert.Same(t, srv.Deps().Cache, srv.Deps().Search)
	assert.NotNil(t, srv.MCPServer())
}

func TestNewServer_withoutCache(t *testing.T) {
	srv, err := NewServer(WithConfig(testConfig(t)), WithoutCache())
	require.NoError(t, err)
	defer srv.Close()

	assert.Nil(t, srv.Deps().Cache)
	assert.NotNil(t, srv.Deps().Search)
}

func TestNewServer_customResourceAndInstructions(t *testing.T) {
	srv, err := NewServer(
		WithConfig(testConfig(t)),
		WithoutCache(),
		WithInstructions("search logs only"),
		WithResource(&mcp.Resource{URI: "test://hello", Name: "hello", MIMEType: "text/plain"},
			func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
				return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{URI: req.Params.URI, Text: "hi"}}}, nil
			}),
	)
	require.NoError(t, err)
	defer srv.Close()

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil).Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	assert.Equal(t, "search logs only", cs.InitializeResult().Instructions)

	res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "test://hello"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "hi", res.Contents[0].Text)
}

func TestNewServer_invalidPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdmissionPolicy = "bogus"

	_, err := NewServer(WithConfig(cfg))
	assert.ErrorContains(t, err, "invalid engine configuration")
}
