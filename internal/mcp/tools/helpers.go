// Package tools contains MCP tool implementations for chunkgrep.
package tools

// MIME type constant.
const MimeJSON = "application/json"
