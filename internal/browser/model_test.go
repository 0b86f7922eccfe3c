//go:build !windows

package browser

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/inode"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func moveCursorTo(t *testing.T, m Model, name string) Model {
	t.Helper()
	items := m.listing(m.currentDir)
	for i, it := range items {
		if it.Name == name {
			for m.cursor > i {
				m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
			}
			for m.cursor < i {
				m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
			}
			return m
		}
	}
	t.Fatalf("no entry named %s in %s", name, m.currentDir)
	return m
}

func TestCursorStaysInBounds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "one")
	writeFile(t, filepath.Join(root, "b"), "two")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)
}

func TestTopAndBottomJump(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeFile(t, filepath.Join(root, name), name)
	}

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, runeKey('G'))
	assert.Equal(t, 3, m.cursor)
	m = press(t, m, runeKey('g'))
	assert.Equal(t, 0, m.cursor)
}

func TestEnterDescendsAndBackAscends(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(sub, "file"), "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, sub, m.currentDir)
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, root, m.currentDir)
}

func TestBackNeverLeavesRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, root, m.currentDir)
}

func TestEnterOnFileDoesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, root, m.currentDir)
}

func TestToggleFileSelectsAndDeselects(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	writeFile(t, a, "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.Contains(t, m.selection, a)
	assert.True(t, m.marked[a])

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Empty(t, m.selection)
	assert.False(t, m.marked[a])
}

func TestToggleDirectorySelectsAllFilesBeneath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	f1 := filepath.Join(sub, "one")
	f2 := filepath.Join(sub, "deep", "two")
	writeFile(t, f1, "first file")
	writeFile(t, f2, "second file")
	writeFile(t, filepath.Join(root, "outside"), "x")

	m := NewModel(root, fsys.Guard{})
	m = moveCursorTo(t, m, "sub")
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})

	assert.Contains(t, m.selection, f1)
	assert.Contains(t, m.selection, f2)
	assert.NotContains(t, m.selection, filepath.Join(root, "outside"))
	assert.Len(t, m.selection, 2)
}

func TestToggleDirectoryTwiceLeavesNoResidue(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(sub, "one"), "first file")
	writeFile(t, filepath.Join(sub, "deep", "two"), "second file")

	m := NewModel(root, fsys.Guard{})
	m = moveCursorTo(t, m, "sub")
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.Len(t, m.selection, 2)

	m = moveCursorTo(t, m, "sub")
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Empty(t, m.selection)
	assert.False(t, m.marked[sub])
}

func TestQuitAbortsWithEmptyResult(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	writeFile(t, a, "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.NotEmpty(t, m.selection)

	m = press(t, m, runeKey('q'))
	assert.True(t, m.Aborted())
	assert.Empty(t, m.Result())
}

func TestConfirmRequiresSelection(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	writeFile(t, a, "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, runeKey('d'))
	assert.True(t, m.Aborted())

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = press(t, m, runeKey('d'))
	assert.False(t, m.Aborted())

	res := m.Result()
	require.Len(t, res, 1)
	info, err := os.Lstat(a)
	require.NoError(t, err)
	assert.Equal(t, inode.FromFileInfo(info).Identity, res[a])
}

func TestSelectedBytesCountsEachInodeOnce(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	writeFile(t, a, "shared payload")
	require.NoError(t, os.Link(a, b))

	m := NewModel(root, fsys.Guard{})
	m = moveCursorTo(t, m, "a")
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = moveCursorTo(t, m, "b")
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.Len(t, m.selection, 2)

	info, err := os.Lstat(a)
	require.NoError(t, err)
	assert.Equal(t, inode.FromFileInfo(info).Usage(), m.selectedBytes())
}

func TestListingSortedBySizeDescending(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small"), "x")
	writeFile(t, filepath.Join(root, "large"), "a considerably longer payload than the other file")

	m := NewModel(root, fsys.Guard{})
	items := m.listing(root)
	require.Len(t, items, 2)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Bytes, items[i].Bytes)
	}
}

func TestViewRendersWithoutPanic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "content")

	m := NewModel(root, fsys.Guard{})
	m = press(t, m, tea.WindowSizeMsg{Width: 3, Height: 2})
	assert.NotPanics(t, func() { _ = m.View() })

	m = press(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	out := m.View()
	assert.Contains(t, out, "Selected: 0 files")
}
