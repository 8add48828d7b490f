package activectx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/active-context/internal/activedoc"
	"github.com/flarebyte/active-context/internal/taskrun"
	"github.com/flarebyte/active-context/internal/testutil"
)

func newLoader(t *testing.T, src string) *Manager {
	t.Helper()
	runner := taskrun.NewRunner(nil, taskrun.Options{Workers: 1})
	t.Cleanup(runner.Close)
	m, err := New(Options{SourceDir: src, Runner: runner, Generator: &recordingGenerator{}})
	require.NoError(t, err)
	return m
}

func TestLoadActiveContextsForFiles_Partition(t *testing.T) {
	src := t.TempDir()
	testutil.MkdirAll(t, src, "pkg", "other")
	docs := activedoc.NewStore(src)
	_, err := docs.Write("pkg", "# pkg\n\n## 当前变更\n\nadded cache\n\n## 文档\n\npkg docs\n")
	require.NoError(t, err)

	res := newLoader(t, src).LoadActiveContextsForFiles([]string{"pkg/a.py", "other/z.py"})
	require.Len(t, res.Contexts, 1)
	doc, ok := res.Contexts["pkg"]
	require.True(t, ok)
	assert.Equal(t, []string{"pkg/a.py"}, doc.Files)
	assert.Equal(t, "added cache", doc.Sections.CurrentChange)
	assert.Equal(t, "pkg docs", doc.Sections.Document)
	assert.Equal(t, docs.PathFor("pkg"), doc.StoragePath)
	assert.Equal(t, []string{"other/z.py"}, res.NotFoundFiles)
}

func TestLoadActiveContextsForFiles_MissingDirectories(t *testing.T) {
	src := t.TempDir()
	res := newLoader(t, src).LoadActiveContextsForFiles([]string{"gone/a.py"})
	assert.Empty(t, res.Contexts)
	assert.Equal(t, []string{"gone/a.py"}, res.NotFoundFiles)

	res = newLoader(t, src).LoadActiveContextsForFiles(nil)
	assert.Empty(t, res.Contexts)
	assert.Empty(t, res.NotFoundFiles)
}

func TestLoadActiveContextsForFiles_SubstringAttachment(t *testing.T) {
	src := t.TempDir()
	testutil.MkdirAll(t, src, "pkg", "pkg/sub")
	docs := activedoc.NewStore(src)
	_, err := docs.Write("pkg", "## 文档\nroot")
	require.NoError(t, err)

	paths := []string{"pkg/a.py", "pkg/sub/b.py"}
	res := newLoader(t, src).LoadActiveContextsForFiles(paths)
	require.Contains(t, res.Contexts, "pkg")
	// pkg/sub has no document, but its file path contains "pkg".
	assert.Equal(t, paths, res.Contexts["pkg"].Files)
	assert.Empty(t, res.NotFoundFiles)
}

func TestLoadActiveContextsForFiles_RootDocumentOnlyTakesTopLevelFiles(t *testing.T) {
	src := t.TempDir()
	testutil.MkdirAll(t, src, "other")
	docs := activedoc.NewStore(src)
	_, err := docs.Write(".", "# project root\n\n## 文档\n\nroot docs\n")
	require.NoError(t, err)

	res := newLoader(t, src).LoadActiveContextsForFiles([]string{"main.go", "other/z.py"})
	require.Len(t, res.Contexts, 1)
	root, ok := res.Contexts["."]
	require.True(t, ok)
	assert.Equal(t, []string{"main.go"}, root.Files)
	assert.Equal(t, "root docs", root.Sections.Document)
	assert.Equal(t, []string{"other/z.py"}, res.NotFoundFiles)
}

func TestLoadActiveContextsForFiles_TopLevelFileWithoutRootDocument(t *testing.T) {
	src := t.TempDir()
	res := newLoader(t, src).LoadActiveContextsForFiles([]string{"main.go"})
	assert.Empty(t, res.Contexts)
	assert.Equal(t, []string{"main.go"}, res.NotFoundFiles)
}
