package watchfront

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rbtc/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Include: []string{"**/*.py"},
		Exclude: []string{"**/.git/**"},
	}
}

type collector struct {
	mu    sync.Mutex
	batch [][]PathEdit
}

func (c *collector) record(edits []PathEdit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batch = append(c.batch, edits)
}

func (c *collector) all() []PathEdit {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []PathEdit
	for _, b := range c.batch {
		out = append(out, b...)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DeliversCreateAndWrite(t *testing.T) {
	root := t.TempDir()
	c := &collector{}

	w, err := New(testConfig(), root, 50*time.Millisecond, c.record)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	file := filepath.Join(root, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0644))

	waitFor(t, func() bool { return len(c.all()) > 0 })

	edits := c.all()
	require.Len(t, edits, 1)
	assert.Equal(t, file, edits[0].Path)
}

func TestWatcher_IgnoresExcludedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	c := &collector{}

	w, err := New(testConfig(), root, 50*time.Millisecond, c.record)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real.py"), []byte("y = 2\n"), 0644))

	waitFor(t, func() bool { return len(c.all()) > 0 })

	for _, e := range c.all() {
		assert.NotContains(t, e.Path, ".git")
	}
}

func TestWatcher_CoalescesRapidWrites(t *testing.T) {
	root := t.TempDir()
	c := &collector{}

	w, err := New(testConfig(), root, 100*time.Millisecond, c.record)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	file := filepath.Join(root, "hot.py")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte("z = 1\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, func() bool { return len(c.all()) > 0 })
	time.Sleep(150 * time.Millisecond)

	var matches int
	for _, e := range c.all() {
		if e.Path == file {
			matches++
		}
	}
	assert.Equal(t, 1, matches, "rapid successive writes to one path should coalesce into a single edit per debounce window")
}

func TestWatcher_RecursesIntoNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := &collector{}

	w, err := New(testConfig(), root, 50*time.Millisecond, c.record)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond)

	file := filepath.Join(sub, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("a = 1\n"), 0644))

	waitFor(t, func() bool { return len(c.all()) > 0 })
	assert.Contains(t, pathsOf(c.all()), file)
}

func pathsOf(edits []PathEdit) []string {
	out := make([]string, len(edits))
	for i, e := range edits {
		out[i] = e.Path
	}
	return out
}

func TestQueue_LatestKindWins(t *testing.T) {
	q := newQueue()
	q.add("/a.py", KindCreate)
	q.add("/a.py", KindWrite)
	q.add("/b.py", KindWrite)

	edits := q.drain()
	require.Len(t, edits, 2)
	assert.Equal(t, KindWrite, edits[0].Kind)
	assert.Equal(t, "/a.py", edits[0].Path)

	assert.Empty(t, q.drain(), "drain should empty the queue")
}
