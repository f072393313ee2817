package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jiuzhougroup/soulsync/api"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.screen {
	case screenPlaylist:
		b.WriteString(m.renderPlaylist())
	case screenQuotes:
		b.WriteString(m.renderQuotes())
	case screenMarket:
		b.WriteString(m.renderMarket())
	}

	b.WriteString("\n")
	b.WriteString(m.renderPlayer())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	tabs := []string{"音乐", "语录", "行情"}
	parts := make([]string, 0, len(tabs)+1)
	parts = append(parts, titleStyle.Render("SoulSync"))
	for i, name := range tabs {
		style := tabStyle
		if screen(i) == m.screen {
			style = activeTabStyle
		}
		parts = append(parts, style.Render(fmt.Sprintf("%d %s", i+1, name)))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, parts...)

	if m.search.Focused() || m.search.Value() != "" {
		header += "  " + m.search.View()
	}
	return header
}

func (m Model) renderPlaylist() string {
	if len(m.filtered) == 0 {
		return dimStyle.Render("  没有匹配的曲目")
	}

	current := m.ctrl.CurrentTrack()
	var b strings.Builder
	for i, track := range m.filtered {
		marker := "  "
		if current != nil && track.ID == current.ID {
			marker = "♪ "
		}
		line := fmt.Sprintf("%s%s — %s", marker, track.Title, track.Artist)
		if track.IsNarration {
			line += " " + narrationBadge.Render("语音")
		} else if track.Bitrate != "" {
			line += " " + dimStyle.Render(track.Bitrate)
		}
		if i == m.selected {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderQuotes() string {
	var b strings.Builder
	i := 0
	for _, g := range m.galleries {
		b.WriteString(titleStyle.Render(g.Title) + dimStyle.Render(" "+g.Subtitle))
		b.WriteString("\n")
		for _, q := range g.Quotes {
			line := fmt.Sprintf("%s：%s", q.Character, truncate(q.Text, 40))
			if i == m.quoteSel {
				b.WriteString(selectedStyle.Render(line))
			} else {
				b.WriteString(itemStyle.Render(line))
			}
			b.WriteString("\n")
			i++
		}
	}
	return b.String()
}

func (m Model) renderMarket() string {
	if m.ticker == nil {
		return dimStyle.Render("  行情已关闭")
	}

	var b strings.Builder
	for _, q := range m.ticker.Quotes() {
		change := fmt.Sprintf("%+.2f%%", q.Change)
		style := upStyle
		if q.Change < 0 {
			style = downStyle
		}
		b.WriteString(itemStyle.Render(fmt.Sprintf("%-4s %-8s %12.2f  %s  %s",
			q.Symbol, q.Name, q.Price, style.Render(change), sparkline(q.History, 30))))
		b.WriteString("\n")
	}
	return b.String()
}

// renderPlayer draws the bottom bar: the track line, progress and,
// when expanded, the active view mode.
func (m Model) renderPlayer() string {
	track := m.ctrl.CurrentTrack()
	if track == nil {
		return playerBarStyle.Render(dimStyle.Render("播放列表为空"))
	}
	state := m.ctrl.State()

	icon := "⏸"
	if state.Playing {
		icon = "▶"
	}
	line := fmt.Sprintf("%s %s — %s", icon, track.Title, track.Artist)
	if track.IsNarration {
		line += " " + narrationBadge.Render("语音")
	}
	if state.Ducked {
		line += dimStyle.Render(" (已压低)")
	}
	line += dimStyle.Render(fmt.Sprintf("  音量 %d%%", int(state.Volume*100)))

	width := m.width - 6
	if width < 10 {
		width = 10
	}

	var progress string
	if track.IsNarration {
		// Narration has no seekable timeline; show it as fully lit
		// while speaking.
		filled := 0
		if state.Playing {
			filled = width
		}
		progress = renderBar(filled, width) + " " + dimStyle.Render("语音")
	} else {
		filled := 0
		if state.Duration > 0 {
			filled = int(state.Position / state.Duration * float64(width))
		}
		progress = renderBar(filled, width) + " " +
			dimStyle.Render(fmt.Sprintf("%s / %s", formatClock(state.Position), formatClock(state.Duration)))
	}

	body := line + "\n" + progress
	if state.Expanded {
		body += "\n" + m.renderExpandedView(track, state)
	}

	if m.status != "" {
		body += "\n" + downStyle.Render(m.status)
	}
	return playerBarStyle.Width(m.width - 2).Render(body)
}

func (m Model) renderExpandedView(track *api.Track, state api.PlaybackState) string {
	switch state.View {
	case api.ViewLyrics:
		return m.renderLyrics()
	case api.ViewHistory:
		return m.renderHistory()
	default:
		cover := track.Cover
		if cover == "" {
			cover = "（无封面）"
		}
		return dimStyle.Render("封面: " + cover)
	}
}

func (m Model) renderLyrics() string {
	lines := m.ctrl.Lyrics()
	if len(lines) == 0 {
		return dimStyle.Render("No Lyrics")
	}
	active := m.ctrl.ActiveLyric()

	// A window of lines around the active one, teleprompter style.
	start := active - 2
	if start < 0 {
		start = 0
	}
	end := start + 5
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i == active {
			b.WriteString(activeLyricStyle.Render("▸ " + lines[i].Text))
		} else {
			b.WriteString(dimStyle.Render("  " + lines[i].Text))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderHistory() string {
	entries := m.ctrl.History()
	if len(entries) == 0 {
		return dimStyle.Render("还没有播放记录")
	}

	var b strings.Builder
	for i, entry := range entries {
		if i >= 8 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("… 另有 %d 条", len(entries)-i)))
			break
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("%2d. ", i+1)))
		b.WriteString(fmt.Sprintf("%s — %s\n", entry.Title, entry.Artist))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHelp() string {
	if m.search.Focused() {
		return helpStyle.Render("enter 确认 · esc 清除")
	}
	help := "space 播放/暂停 · ctrl+←/→ 切歌 · enter 选择 · / 搜索 · e 展开 · v 视图 · tab 页面 · q 退出"
	if m.screen == screenQuotes {
		help = "s 朗读台词 · esc 停止朗读 · " + help
	}
	return helpStyle.Render(help)
}

func renderBar(filled, width int) string {
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return activeLyricStyle.Render(strings.Repeat("━", filled)) +
		dimStyle.Render(strings.Repeat("─", width-filled))
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline compresses a price history into a fixed-width run of block
// characters.
func sparkline(history []float64, width int) string {
	if len(history) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(history) > width {
		history = history[len(history)-width:]
	}

	lo, hi := history[0], history[0]
	for _, v := range history {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range history {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

func formatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
