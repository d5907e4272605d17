package editorfront

import (
	"context"
	"encoding/json"
	"log"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/typechecker"
)

// fakeQuerier runs q directly against a fixture's GlobalState and tree,
// standing in for a running Typechecker so the MCP handlers are testable
// without a scheduler thread.
type fakeQuerier struct {
	fx fixture
}

func (f fakeQuerier) RunQuery(q typechecker.Query, paths []string) (any, error) {
	var files []core.FileRef
	trees := map[core.FileRef]ast.Node{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		files = append(files, f.fx.file)
		trees[f.fx.file] = f.fx.tree
	}
	if len(paths) == 0 {
		// References' first pass asks for every indexed file with a nil
		// path list; the fixture only ever has one.
		files = []core.FileRef{f.fx.file}
		trees[f.fx.file] = f.fx.tree
	}
	return q(f.fx.gs, files, trees)
}

func req(t *testing.T, v any) *mcp.CallToolRequest {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: b}}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	fx := newFixture(t)
	return NewServer(fakeQuerier{fx: fx}, log.New(discard{}, "", 0))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestHandleHoverDescribesTheSymbolUnderTheCursor(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleHover(context.Background(), req(t, positionParams{Path: "greeter.rb", Line: 1, Character: 6}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var info HoverInfo
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &info))
	require.True(t, info.Found)
	require.Equal(t, "method", info.Kind)
}

func TestHandleHoverRejectsMalformedParameters(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleHover(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: []byte("not json")}})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestHandleDefinitionJumpsToTheClassDeclaration(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleDefinition(context.Background(), req(t, positionParams{Path: "greeter.rb", Line: 4, Character: 2}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var loc Location
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &loc))
	require.Equal(t, "greeter.rb", loc.Path)
}

func TestHandleCompletionListsClassMembers(t *testing.T) {
	s := newTestServer(t)

	type completionParams struct {
		positionParams
		Prefix string `json:"prefix"`
	}
	result, err := s.handleCompletion(context.Background(), req(t, completionParams{
		positionParams: positionParams{Path: "greeter.rb", Line: 1, Character: 6},
	}))
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &names))
	require.Equal(t, []string{"hello"}, names)
}

func TestHandleReferencesFindsTheTopLevelUse(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleReferences(context.Background(), req(t, positionParams{Path: "greeter.rb", Line: 0, Character: 6}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var locs []Location
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &locs))
	require.Len(t, locs, 1)
	require.Equal(t, "greeter.rb", locs[0].Path)
}

func TestHandleRunInfoReportsWhetherThePathIsIndexed(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleRunInfo(context.Background(), req(t, map[string]string{"path": "greeter.rb"}))
	require.NoError(t, err)

	var info map[string]bool
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &info))
	require.True(t, info["indexed"])
}
