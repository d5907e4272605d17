package typechecker

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInitializeIndexesEveryFile(t *testing.T) {
	tc := New()
	defer tc.Destroy()

	err := tc.Initialize([]FileUpdate{
		{Path: "greeter.py", Content: []byte("class Greeter:\n    def hello(self, name):\n        return name\n")},
	})
	require.NoError(t, err)
	require.Len(t, tc.indexed, 1)
}

func TestTypecheckCommitsAFastPathEditThatOnlyChangesALiteral(t *testing.T) {
	tc := New()
	defer tc.Destroy()

	src := "class Greeter:\n    def hello(self, name):\n        return 1\n"
	require.NoError(t, tc.Initialize([]FileUpdate{{Path: "greeter.py", Content: []byte(src)}}))

	edited := "class Greeter:\n    def hello(self, name):\n        return 2\n"
	committed := tc.Typecheck([]FileUpdate{{Path: "greeter.py", Content: []byte(edited)}})
	require.True(t, committed)
}

func TestTypecheckForcesSlowPathWhenAMethodIsAdded(t *testing.T) {
	tc := New()
	defer tc.Destroy()

	src := "class Greeter:\n    def hello(self, name):\n        return name\n"
	require.NoError(t, tc.Initialize([]FileUpdate{{Path: "greeter.py", Content: []byte(src)}}))

	edited := "class Greeter:\n    def hello(self, name):\n        return name\n    def bye(self, name):\n        return name\n"
	committed := tc.Typecheck([]FileUpdate{{Path: "greeter.py", Content: []byte(edited)}})
	require.True(t, committed)
	require.Len(t, tc.indexed, 1)
}

func TestRetypecheckRerunsExplicitFilesFromIndexedContent(t *testing.T) {
	tc := New()
	defer tc.Destroy()

	src := "class Greeter:\n    def hello(self, name):\n        return name\n"
	require.NoError(t, tc.Initialize([]FileUpdate{{Path: "greeter.py", Content: []byte(src)}}))

	committed := tc.Retypecheck([]string{"greeter.py"})
	require.True(t, committed)
}

func TestRunQueryReadsCommittedSnapshotWithoutMutatingLiveState(t *testing.T) {
	tc := New()
	defer tc.Destroy()

	src := "class Greeter:\n    def hello(self, name):\n        return name\n"
	require.NoError(t, tc.Initialize([]FileUpdate{{Path: "greeter.py", Content: []byte(src)}}))

	epochBefore := tc.sched.GlobalState().Epoch()
	result, err := tc.RunQuery(func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error) {
		return len(files), nil
	}, []string{"greeter.py"})

	require.NoError(t, err)
	require.Equal(t, 1, result)
	require.Equal(t, epochBefore, tc.sched.GlobalState().Epoch())
}

func TestDestroyHandsOutGlobalStateAndStopsTheThread(t *testing.T) {
	tc := New()
	gs := tc.Destroy()
	require.NotNil(t, gs)
}
