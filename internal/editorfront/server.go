// server.go wires queries.go's pure logic onto MCP tools, grounded on the
// teacher's internal/mcp/server.go: a *mcp.Server built with
// mcp.NewServer, one AddTool call per tool with a jsonschema.Schema input
// shape, and mcp.StdioTransport as the wire transport, so this package
// never frames its own JSON-RPC.
package editorfront

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/typechecker"
)

// Querier is the subset of *typechecker.Typechecker the MCP tools need.
// Narrowed to an interface so Server can be constructed in tests without a
// running typechecker thread.
type Querier interface {
	RunQuery(q typechecker.Query, paths []string) (any, error)
}

// Server exposes a Querier's hover/definition/references/completion
// operations as MCP tools over stdio. The typecheck_run_info tool reports
// whether a path is indexed in the last committed run; run state is not
// pushed to the client. Instead every Typecheck/Retypecheck run the CLI
// drives logs a start/end/cancelled line through logger (NotifyRunInfo),
// the same diagnosticLogger-over-stderr idiom the teacher's server
// falls back to wherever it lacks a live ServerSession to push a
// client-bound notification through.
type Server struct {
	server *mcp.Server
	q      Querier
	logger *log.Logger
}

// NewServer builds the MCP server and registers its tools. logger receives
// one line per typecheck run start/end/cancellation; pass log.Default() for
// stderr.
func NewServer(q Querier, logger *log.Logger) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: "rbtc-editorfront", Version: "0.1.0"}, nil),
		q:      q,
		logger: logger,
	}
	s.registerTools()
	return s
}

// NotifyRunInfo logs a typecheck-run-info line: state is one of "started",
// "ended", "cancelled". Called by the CLI's watch/serve loop around each
// Typecheck/Retypecheck call, so a long-running check's progress is visible
// even though there is no live MCP request to attach a response to.
func (s *Server) NotifyRunInfo(state string, files []string) {
	s.logger.Printf("typecheck-run-info: %s files=%v", state, files)
}

// Run blocks serving tool calls over stdio until ctx is cancelled or the
// transport closes.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "hover",
		Description: "Describe the symbol under a cursor position in a file last typechecked.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":      {Type: "string", Description: "File path, as typechecked"},
				"line":      {Type: "integer", Description: "0-based line"},
				"character": {Type: "integer", Description: "0-based column"},
			},
			Required: []string{"path", "line", "character"},
		},
	}, s.handleHover)

	s.server.AddTool(&mcp.Tool{
		Name:        "definition",
		Description: "Find where the symbol under a cursor position was declared.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":      {Type: "string", Description: "File path, as typechecked"},
				"line":      {Type: "integer", Description: "0-based line"},
				"character": {Type: "integer", Description: "0-based column"},
			},
			Required: []string{"path", "line", "character"},
		},
	}, s.handleDefinition)

	s.server.AddTool(&mcp.Tool{
		Name:        "references",
		Description: "Find every use of the symbol under a cursor position, across every typechecked file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":      {Type: "string", Description: "File path, as typechecked"},
				"line":      {Type: "integer", Description: "0-based line"},
				"character": {Type: "integer", Description: "0-based column"},
			},
			Required: []string{"path", "line", "character"},
		},
	}, s.handleReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "completion",
		Description: "List member names visible from the class or module enclosing a cursor position.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":      {Type: "string", Description: "File path, as typechecked"},
				"line":      {Type: "integer", Description: "0-based line"},
				"character": {Type: "integer", Description: "0-based column"},
				"prefix":    {Type: "string", Description: "Filter completions to names starting with this"},
			},
			Required: []string{"path", "line", "character"},
		},
	}, s.handleCompletion)

	s.server.AddTool(&mcp.Tool{
		Name:        "typecheck_run_info",
		Description: "Report whether path is indexed in the last committed typecheck run.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"path": {Type: "string", Description: "File path to check"}},
			Required:   []string{"path"},
		},
	}, s.handleRunInfo)
}

// positionParams is the path/line/character shape every position-based tool
// shares.
type positionParams struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

func parsePositionParams(raw json.RawMessage) (positionParams, error) {
	var p positionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return positionParams{}, fmt.Errorf("invalid parameters: %w", err)
	}
	return p, nil
}

func (s *Server) handleHover(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePositionParams(req.Params.Arguments)
	if err != nil {
		return errorResult("hover", err), nil
	}

	result, err := s.q.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		if len(files) == 0 {
			return HoverInfo{Found: false}, nil
		}
		ref := files[0]
		f := gs.Files.Get(ref)
		offset := offsetOf(f, Position{Line: p.Line, Character: p.Character})
		return Hover(gs, trees[ref], offset), nil
	}, []string{p.Path})
	if err != nil {
		return errorResult("hover", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDefinition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePositionParams(req.Params.Arguments)
	if err != nil {
		return errorResult("definition", err), nil
	}

	result, err := s.q.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		if len(files) == 0 {
			return map[string]bool{"found": false}, nil
		}
		ref := files[0]
		f := gs.Files.Get(ref)
		offset := offsetOf(f, Position{Line: p.Line, Character: p.Character})
		loc, ok := Definition(gs, trees[ref], offset)
		if !ok {
			return map[string]bool{"found": false}, nil
		}
		return loc, nil
	}, []string{p.Path})
	if err != nil {
		return errorResult("definition", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePositionParams(req.Params.Arguments)
	if err != nil {
		return errorResult("references", err), nil
	}

	// References needs every indexed file's tree, not just the requested
	// one: first ask for the full committed file set (RunQuery's trees map
	// only covers the paths it's given), then re-query with every path so
	// trees comes back populated for all of them.
	result, err := s.q.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		all := gs.Files.All()
		out := make([]string, len(all))
		for i, ref := range all {
			out[i] = gs.Files.Get(ref).Path
		}
		return out, nil
	}, nil)
	if err != nil {
		return errorResult("references", err), nil
	}
	allPaths, _ := result.([]string)
	if len(allPaths) == 0 {
		return jsonResult([]Location{})
	}

	result, err = s.q.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		var target core.SymbolRef
		var found bool
		for ref, tree := range trees {
			f := gs.Files.Get(ref)
			if f.Path != p.Path {
				continue
			}
			offset := offsetOf(f, Position{Line: p.Line, Character: p.Character})
			target, found = symbolAt(tree, offset)
		}
		if !found {
			return []Location{}, nil
		}
		return References(gs, trees, target), nil
	}, allPaths)
	if err != nil {
		return errorResult("references", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleCompletion(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		positionParams
		Prefix string `json:"prefix"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("completion", fmt.Errorf("invalid parameters: %w", err)), nil
	}

	result, err := s.q.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		if len(files) == 0 {
			return []string{}, nil
		}
		ref := files[0]
		f := gs.Files.Get(ref)
		offset := offsetOf(f, Position{Line: params.Line, Character: params.Character})
		return Completion(gs, trees[ref], offset, params.Prefix), nil
	}, []string{params.Path})
	if err != nil {
		return errorResult("completion", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRunInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("typecheck_run_info", fmt.Errorf("invalid parameters: %w", err)), nil
	}

	result, err := s.q.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		return map[string]bool{"indexed": len(files) == 1}, nil
	}, []string{params.Path})
	if err != nil {
		return errorResult("typecheck_run_info", err), nil
	}
	return jsonResult(result)
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

func errorResult(operation string, err error) *mcp.CallToolResult {
	payload := map[string]any{"success": false, "operation": operation, "error": err.Error()}
	content, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		content = []byte(`{"success":false}`)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}, IsError: true}
}
