// Package browser is the interactive ncdu-style selector for choosing files
// and directories to purge. It is a thin presentation layer over the same
// inode indexing and aggregation primitives the non-interactive policies
// use: listings show hardlink-deduplicated aggregate sizes, and the outcome
// is a selection of file paths with their inode identities.
package browser

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/index"
	"github.com/lumipallolabs/linkpurge/internal/inode"
	"github.com/lumipallolabs/linkpurge/internal/sizer"
)

// Entry is one row in a directory listing.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Bytes int64
	ID    inode.Identity
	HasID bool // regular files only
}

// Selection is the outcome of a browsing session: every marked regular
// file path and its inode identity. Empty means aborted or nothing chosen.
type Selection map[string]inode.Identity

// Model is the browser state machine. Update is a pure function over the
// model value, so selection behavior is testable without a terminal.
type Model struct {
	root       string
	guard      fsys.Guard
	currentDir string
	cursor     int
	scroll     int
	width      int
	height     int

	listings  map[string][]Entry // computed once per directory, cached
	marked    map[string]bool    // marked paths, files and directories
	selection Selection
	mimeCache map[string]string

	keys   KeyMap
	styles Styles

	done    bool
	aborted bool
}

// NewModel creates a browser rooted at root.
func NewModel(root string, guard fsys.Guard) Model {
	return Model{
		root:       root,
		guard:      guard,
		currentDir: root,
		width:      80,
		height:     24,
		listings:   make(map[string][]Entry),
		marked:     make(map[string]bool),
		selection:  make(Selection),
		mimeCache:  make(map[string]string),
		keys:       DefaultKeyMap(),
		styles:     DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.listing(m.currentDir)

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.aborted = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Confirm):
		if len(m.selection) > 0 {
			m.done = true
			return m, tea.Quit
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}

	case key.Matches(msg, m.keys.PageDown):
		if len(items) > 0 {
			m.cursor += m.visibleRows()
			if m.cursor > len(items)-1 {
				m.cursor = len(items) - 1
			}
		}

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0

	case key.Matches(msg, m.keys.Bottom):
		if len(items) > 0 {
			m.cursor = len(items) - 1
		}

	case key.Matches(msg, m.keys.Enter):
		if m.cursor >= 0 && m.cursor < len(items) && items[m.cursor].IsDir {
			m.currentDir = items[m.cursor].Path
			m.cursor = 0
			m.scroll = 0
		}

	case key.Matches(msg, m.keys.Back):
		parent := filepath.Dir(m.currentDir)
		if m.currentDir != m.root && parent != m.currentDir {
			m.currentDir = parent
			m.cursor = 0
			m.scroll = 0
		}

	case key.Matches(msg, m.keys.Toggle):
		m.toggle(items)
	}

	m.clampScroll()
	return m, nil
}

// toggle marks or unmarks the highlighted entry. Marking a directory walks
// it fresh and selects every regular file currently beneath it; unmarking
// removes every selected path under it, leaving no residue.
func (m *Model) toggle(items []Entry) {
	if m.cursor < 0 || m.cursor >= len(items) {
		return
	}
	it := items[m.cursor]

	if m.marked[it.Path] {
		delete(m.marked, it.Path)
		if it.IsDir {
			prefix := it.Path + string(filepath.Separator)
			for p := range m.selection {
				if strings.HasPrefix(p, prefix) {
					delete(m.selection, p)
				}
			}
		} else {
			delete(m.selection, it.Path)
		}
	} else {
		m.marked[it.Path] = true
		if it.IsDir {
			files, err := index.FilesUnder(it.Path, m.guard)
			if err == nil {
				for p, id := range files {
					m.selection[p] = id
				}
			}
		} else if it.HasID {
			m.selection[it.Path] = it.ID
		}
	}

	if m.cursor < len(items)-1 {
		m.cursor++
	}
}

// listing scans a directory on first visit and caches the result for the
// session. Directory sizes are deep aggregates, each computed with its own
// dedup scope: the number reads as "size if deleted alone". Listings are
// sorted by size descending.
func (m *Model) listing(dir string) []Entry {
	if cached, ok := m.listings[dir]; ok {
		return cached
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.listings[dir] = nil
		return nil
	}
	items := make([]Entry, 0, len(entries))
	for _, ent := range entries {
		info, err := ent.Info()
		if err != nil {
			continue
		}
		rec := inode.FromFileInfo(info)
		if !m.guard.Allows(rec.Identity.Dev) {
			continue
		}
		e := Entry{Name: ent.Name(), Path: filepath.Join(dir, ent.Name())}
		mode := info.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			e.Bytes = rec.Usage()
		case mode.IsDir():
			e.IsDir = true
			e.Bytes = sizer.SubtreeUsage(e.Path, false, m.guard)
		case mode.IsRegular():
			e.Bytes = rec.Usage()
			e.ID = rec.Identity
			e.HasID = true
		default:
			e.Bytes = rec.Usage()
		}
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Bytes != items[j].Bytes {
			return items[i].Bytes > items[j].Bytes
		}
		return items[i].Name < items[j].Name
	})
	m.listings[dir] = items
	return items
}

func (m *Model) clampScroll() {
	rows := m.visibleRows()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+rows {
		m.scroll = m.cursor - rows + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) visibleRows() int {
	rows := m.height - 6
	if rows < 1 {
		rows = 1
	}
	return rows
}

// selectedBytes sums the usage of selected files, counting each inode once.
// Paths that vanished since selection contribute nothing.
func (m Model) selectedBytes() int64 {
	var total int64
	seen := make(map[inode.Identity]struct{}, len(m.selection))
	for path, id := range m.selection {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		total += inode.FromFileInfo(info).Usage()
	}
	return total
}

// Aborted reports whether the session ended without a confirmed selection.
func (m Model) Aborted() bool {
	return m.aborted || !m.done
}

// Result returns the final selection. Aborting returns an empty selection.
func (m Model) Result() Selection {
	if m.Aborted() {
		return Selection{}
	}
	return m.selection
}

// Run opens the browser over root and blocks until the operator confirms or
// aborts. Quit and interrupt both mean "select nothing".
func Run(root string, guard fsys.Guard) (Selection, error) {
	p := tea.NewProgram(NewModel(root, guard), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	model, ok := final.(Model)
	if !ok {
		return Selection{}, nil
	}
	return model.Result(), nil
}
