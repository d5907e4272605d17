package diagnostics

import (
	"testing"

	"github.com/standardbeagle/rbtc/internal/core"
)

func TestBuilderChainProducesReadableError(t *testing.T) {
	d := New(CodeUnresolvedConstant, core.NoLoc, "unresolved constant Foo").WithSuggestion("Food")
	want := `unresolved-constant: unresolved constant Foo (did you mean "Food"?)`
	if got := d.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

