// Package api provides the HTTP API of the knowledge base: document
// upload and management, semantic search, chat and admin statistics.
package api

import "github.com/papercomputeco/kbase/pkg/documents"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// UploadDir holds uploads while they are processed.
	UploadDir string

	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize int

	// EnableMCP mounts the MCP server at /mcp.
	EnableMCP bool
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":3000"
	}
	if c.UploadDir == "" {
		c.UploadDir = "./uploads"
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = documents.MaxFileSize
	}
}
