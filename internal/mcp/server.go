package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/buscador/internal/document"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/matcher"
	"github.com/Aman-CERP/buscador/internal/search"
	"github.com/Aman-CERP/buscador/pkg/version"
)

// Tool limits for the search tool.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Searcher is the query side of the engine.
type Searcher interface {
	Search(ctx context.Context, query string) search.Response
	Status() (*index.Manifest, error)
}

// Server bridges MCP clients with the search engine and the context matcher.
type Server struct {
	mcp       *mcp.Server
	engine    Searcher
	extractor matcher.Extractor
	docsRoot  string
	logger    *slog.Logger
}

// SearchInput is the input schema of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"full-text query; supports field:value, quotes, + and -"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchOutput is the output schema of the search tool.
type SearchOutput struct {
	Query   string                  `json:"query"`
	Total   int                     `json:"total"`
	Results []document.SearchResult `json:"results"`
}

// FindInput is the input schema of the find_in_file tool.
type FindInput struct {
	Path  string `json:"path" jsonschema:"document path relative to the document root"`
	Query string `json:"query" jsonschema:"literal text to locate, case-insensitive"`
	Width *int   `json:"width,omitempty" jsonschema:"context characters on each side of a match, default 50"`
}

// FindOutput is the output schema of the find_in_file tool.
type FindOutput struct {
	Path    string                `json:"path"`
	Query   string                `json:"query"`
	Matches []document.QueryMatch `json:"matches"`
}

// IndexStatusInput takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput describes the committed index.
type IndexStatusOutput struct {
	Ready         bool   `json:"ready"`
	Message       string `json:"message,omitempty"`
	BuildID       string `json:"build_id,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	IndexedCount  int    `json:"indexed_count"`
	DocumentCount int    `json:"document_count"`
	DatabaseCount int    `json:"database_count"`
	Skipped       int    `json:"skipped"`
}

// NewServer creates an MCP server with the search, find_in_file and
// index_status tools registered.
func NewServer(engine Searcher, ex matcher.Extractor, docsRoot string) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if ex == nil {
		return nil, errors.New("extractor is required")
	}

	s := &Server{
		engine:    engine,
		extractor: ex,
		docsRoot:  docsRoot,
		logger:    slog.Default(),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "buscador",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Full-text search over indexed documents (PDF, Word, Excel, PowerPoint, text) and database values. Returns the source (documento or table), the matched field and a highlighted snippet.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_in_file",
		Description: "Locate every occurrence of a literal text inside one document, with surrounding context and the sheet or slide where it appears.",
	}, s.handleFind)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether an index has been built, when, and how many documents and database values it holds.",
	}, s.handleIndexStatus)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 3))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	requestID := newRequestID()
	start := time.Now()

	resp := s.engine.Search(ctx, in.Query)
	if resp.Error != "" {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("query", in.Query),
			slog.String("error", resp.Error))
		if resp.Err() != nil {
			return nil, SearchOutput{}, MapError(resp.Err())
		}
		return nil, SearchOutput{}, &MCPError{Code: ErrCodeInternalError, Message: resp.Error}
	}

	results := resp.Results
	if limit := clampLimit(in.Limit); len(results) > limit {
		results = results[:limit]
	}

	s.logger.Info("mcp_search_completed",
		slog.String("request_id", requestID),
		slog.Int("result_count", len(results)),
		slog.Duration("duration", time.Since(start)))

	resp.Results, resp.Total = results, len(results)
	return textResult(FormatSearchResults(resp)),
		SearchOutput{Query: resp.Query, Total: resp.Total, Results: results}, nil
}

func (s *Server) handleFind(ctx context.Context, _ *mcp.CallToolRequest, in FindInput) (*mcp.CallToolResult, FindOutput, error) {
	if in.Query == "" {
		return nil, FindOutput{}, NewInvalidParamsError("query parameter is required")
	}

	path, err := matcher.ResolvePath(s.docsRoot, in.Path)
	if err != nil {
		return nil, FindOutput{}, MapError(err)
	}

	width := matcher.DefaultWidth
	if in.Width != nil {
		width = *in.Width
	}

	res, err := matcher.FindInFile(ctx, s.extractor, path, in.Query, width)
	if err != nil {
		s.logger.Warn("mcp_find_failed",
			slog.String("path", in.Path),
			slog.String("error", err.Error()))
		return nil, FindOutput{}, MapError(err)
	}

	return textResult(FormatMatches(in.Path, in.Query, res)),
		FindOutput{Path: in.Path, Query: in.Query, Matches: res.Matches}, nil
}

func (s *Server) handleIndexStatus(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	m, err := s.engine.Status()
	if err != nil {
		return nil, IndexStatusOutput{Ready: false, Message: search.MsgIndexNotFound}, nil
	}
	return nil, IndexStatusOutput{
		Ready:         true,
		BuildID:       m.BuildID,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		IndexedCount:  m.IndexedCount,
		DocumentCount: m.DocumentCount,
		DatabaseCount: m.DatabaseCount,
		Skipped:       m.Skipped,
	}, nil
}

// Serve runs the server over stdio until ctx is done.
// Stdout carries JSON-RPC exclusively; nothing else may write to it.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// textResult carries markdown for display; the typed output is attached as
// structured content by the SDK.
func textResult(markdown string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: markdown}}}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// newRequestID returns a short ID for log correlation.
func newRequestID() string {
	return uuid.NewString()[:8]
}
