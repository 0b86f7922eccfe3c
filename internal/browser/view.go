package browser

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := "linkpurge: " + m.currentDir
	if len(header) > m.width-1 && m.width > 4 {
		header = "..." + header[len(header)-(m.width-4):]
	}
	b.WriteString(m.styles.Header.Render(header))
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.helpLine()))
	b.WriteString("\n")

	status := fmt.Sprintf("Selected: %d files, %s",
		len(m.selection), humanize.IBytes(uint64(m.selectedBytes())))
	b.WriteString(m.styles.Status.Render(status))
	b.WriteString("\n")
	divider := minInt(m.width-1, 100)
	if divider < 0 {
		divider = 0
	}
	b.WriteString(strings.Repeat("-", divider))
	b.WriteString("\n")

	items := m.listing(m.currentDir)
	rows := m.visibleRows()
	for i := 0; i < rows; i++ {
		idx := m.scroll + i
		if idx >= len(items) {
			break
		}
		b.WriteString(m.renderRow(items[idx], idx == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Footer.Render(m.footerLine(items)))
	return b.String()
}

func (m Model) renderRow(e Entry, current bool) string {
	mark := "[ ]"
	if m.marked[e.Path] {
		mark = "[X]"
	}
	prefix := " "
	if e.IsDir {
		prefix = "/"
	}
	name := e.Name
	maxName := m.width - 22
	if maxName > 3 && len(name) > maxName {
		name = name[:maxName-3] + "..."
	}
	line := fmt.Sprintf("%s %12s %s%s", mark, humanize.IBytes(uint64(e.Bytes)), prefix, name)
	if len(line) > m.width-1 && m.width > 1 {
		line = line[:m.width-1]
	}

	switch {
	case current:
		return m.styles.Cursor.Render(line)
	case m.marked[e.Path]:
		return m.styles.Marked.Render(line)
	case e.IsDir:
		return m.styles.Dir.Render(line)
	default:
		return m.styles.Normal.Render(line)
	}
}

func (m Model) helpLine() string {
	parts := make([]string, 0, 8)
	for _, binding := range m.keys.ShortHelp() {
		help := binding.Help()
		parts = append(parts, help.Key+": "+help.Desc)
	}
	return strings.Join(parts, " | ")
}

// footerLine shows the detected media type of the highlighted regular file.
func (m Model) footerLine(items []Entry) string {
	if m.cursor < 0 || m.cursor >= len(items) {
		return ""
	}
	it := items[m.cursor]
	if it.IsDir || !it.HasID {
		return ""
	}
	return m.mimeOf(it.Path)
}

func (m Model) mimeOf(path string) string {
	if v, ok := m.mimeCache[path]; ok {
		return v
	}
	v := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		v = mt.String()
	}
	m.mimeCache[path] = v
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
