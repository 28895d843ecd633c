package tui

import (
	"fmt"
	"strings"

	"ytune/internal/browse"
	"ytune/internal/domain"
	"ytune/internal/tui/styles"
)

// chromeRows is everything on screen that is not a list row: header, the
// blank line under it, and the two footer lines.
const chromeRows = 4

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	var parts []string
	switch m.state.Mode() {
	case browse.ModeLibrary:
		parts = append(parts, styles.TitleStyle.Render("LIBRARY"))
	case browse.ModeAlbums:
		parts = append(parts, styles.TitleStyle.Render("ALBUMS"))
	case browse.ModeAlbumDetail:
		parts = append(parts, styles.TitleStyle.Render("ALBUM"),
			styles.AccentStyle.Render(m.state.AlbumName()))
	case browse.ModePlaylist:
		parts = append(parts, styles.TitleStyle.Render("PLAYLIST"))
	}
	parts = append(parts, styles.DimStyle.Render(fmt.Sprintf("(%d)", m.count())))
	if s := m.state.Loop().Status(); s != "" {
		parts = append(parts, styles.AccentStyle.Render(s))
	}
	if m.state.PlayingIndex() >= 0 {
		if m.state.Paused() {
			parts = append(parts, styles.AccentStyle.Render(styles.PausedChar))
		} else {
			parts = append(parts, styles.PlayingStyle.Render(styles.PlayingChar))
		}
	}
	if m.unfiltered != nil {
		parts = append(parts, styles.SubtitleStyle.Render("filter: "+m.filterInput.Value()))
	}
	return " " + strings.Join(parts, " ")
}

func (m Model) count() int {
	if m.state.Mode() == browse.ModeAlbums {
		return len(m.state.Albums())
	}
	return len(m.state.Items())
}

func (m Model) listView() string {
	if m.state.Mode() == browse.ModeAlbums {
		return m.albumRows()
	}
	return m.trackRows()
}

func (m Model) trackRows() string {
	items := m.state.Items()
	if len(items) == 0 {
		return "  " + styles.DimStyle.Render("nothing here")
	}
	var b strings.Builder
	start, end := m.window(len(items))
	for i := start; i < end; i++ {
		b.WriteString(m.trackRow(i, items[i]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) trackRow(i int, t *domain.Track) string {
	marker := " "
	switch {
	case i == m.state.PlayingIndex():
		marker = styles.PlayingStyle.Render(styles.PlayingChar)
	case !t.Cached():
		marker = styles.MissingStyle.Render(styles.MissingChar)
	}
	line := fmt.Sprintf("%s %s %s", marker, t.DisplayTitle(),
		styles.DimStyle.Render(t.FormattedDuration()))
	if i == m.state.Selected() {
		return styles.HighlightStyle.Render(fmt.Sprintf("%s %s %s", marker,
			t.DisplayTitle(), t.FormattedDuration()))
	}
	return " " + line
}

func (m Model) albumRows() string {
	albums := m.state.Albums()
	if len(albums) == 0 {
		return "  " + styles.DimStyle.Render("no albums")
	}
	var b strings.Builder
	start, end := m.window(len(albums))
	for i := start; i < end; i++ {
		a := albums[i]
		detail := fmt.Sprintf("(%d tracks)", a.TrackCount)
		if a.Description == "playlist" {
			detail = "[playlist] " + detail
		}
		var line string
		if i == m.state.Selected() {
			line = styles.HighlightStyle.Render(fmt.Sprintf("%s %s", a.Name, detail))
		} else {
			line = fmt.Sprintf("  %s %s", a.Name, styles.DimStyle.Render(detail))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) window(n int) (int, int) {
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}
	start := m.state.Offset()
	if start > n {
		start = n
	}
	end := start + rows
	if end > n {
		end = n
	}
	return start, end
}

func (m Model) footerView() string {
	if m.confirmDelete {
		verb := "delete artifact"
		if m.state.Mode() == browse.ModeAlbumDetail {
			verb = "remove from album"
		}
		return " " + styles.ErrorStyle.Render(verb+"? (y/n)")
	}
	if m.filtering {
		return " " + m.filterInput.View()
	}
	if m.namingAlbum {
		return " " + m.albumInput.View()
	}
	if m.status != "" {
		return " " + styles.SubtitleStyle.Render(m.status)
	}
	var help []string
	switch m.state.Mode() {
	case browse.ModeAlbums:
		help = []string{"enter open", "h back", "q quit"}
	case browse.ModeAlbumDetail:
		help = []string{"enter play", "space pause", "l loop", "d remove", "h back", "q quit"}
	case browse.ModePlaylist:
		help = []string{"enter play", "space pause", "l loop", "/ filter", "q quit"}
	default:
		help = []string{"enter play", "space pause", "l loop", "a albums", "c album", "/ filter", "d delete", "q quit"}
	}
	return " " + styles.DimStyle.Render(strings.Join(help, "  "))
}
