package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/kbase/pkg/vector"
)

var (
	searchToolName    = "search_documents"
	searchDescription = "Search the company knowledge base using semantic search. Returns the document chunks most relevant to the query text, with their source filename and similarity."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant document chunks"`
	Limit int    `json:"limit,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID         string  `json:"id"`
	Filename   string  `json:"filename"`
	Type       string  `json:"type"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float32 `json:"similarity"`
	Content    string  `json:"content"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	logger.Debug("MCP search request",
		"query", input.Query,
		"limit", limit,
	)

	results, err := s.config.Searcher.Search(ctx, input.Query, limit)
	if err != nil {
		logger.Error("failed to search documents", "error", err)
		return toolError(fmt.Sprintf("Failed to search documents: %v", err)), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: make([]SearchResult, len(results)),
		Count:   len(results),
	}
	for i, result := range results {
		output.Results[i] = buildSearchResult(result)
	}

	// Tools returning structured content also return it serialized in a
	// TextContent block for clients that only read text.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// buildSearchResult converts a vector query result into a SearchResult.
func buildSearchResult(result vector.QueryResult) SearchResult {
	return SearchResult{
		ID:         result.ID,
		Filename:   vector.StringMeta(result.Metadata, vector.MetaFilename),
		Type:       vector.StringMeta(result.Metadata, vector.MetaType),
		ChunkIndex: vector.IntMeta(result.Metadata, vector.MetaChunkIndex),
		Similarity: result.Similarity,
		Content:    result.Content,
	}
}
