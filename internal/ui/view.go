package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"karolbroda.com/karaline/internal/artwork"
	"karolbroda.com/karaline/internal/colors"
	"karolbroda.com/karaline/internal/terminal"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.width, m.height
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}

	var lines []string
	if m.session == nil {
		lines = m.renderWaiting(width, height-m.footerHeight())
	} else {
		if !m.hideHeader {
			lines = append(lines, m.renderHeader(width)...)
		}
		lines = append(lines, m.renderBody(width, height-len(lines)-m.footerHeight())...)
	}

	for len(lines) < height-m.footerHeight() {
		lines = append(lines, "")
	}
	lines = append(lines, m.renderFooter(width))

	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderWaiting(width, height int) []string {
	banner := figure.NewFigure("karaline", "small", true).Slicify()
	gradient := colors.Gradient(m.palette.Primary, m.palette.Secondary, 20)
	if m.caps == nil || !m.caps.SupportsRGB() {
		// a gradient quantized to 256 colors bands badly
		gradient = []string{m.palette.Primary}
	}

	block := make([]string, 0, len(banner)+2)
	for _, line := range banner {
		line = strings.TrimRight(line, " ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		block = append(block, colors.RenderGradientText(line, gradient, true))
	}
	waitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Italic(true)
	block = append(block, "", waitStyle.Render(m.waitingText))

	out := make([]string, 0, height)
	for i := 0; i < (height-len(block))/2; i++ {
		out = append(out, "")
	}
	for _, line := range block {
		out = append(out, centerText(line, width))
	}
	return out
}

func (m Model) renderHeader(width int) []string {
	lines := []string{""}

	artWidth, artHeight := 12, 6
	if width < 80 {
		artWidth, artHeight = 8, 4
	}
	if width < 50 || (m.height > 0 && m.height < 25) || m.session.Image == nil {
		artWidth, artHeight = 0, 0
	}

	info := m.renderTrackInfo(width - artWidth - 4)

	kitty := ""
	if artWidth > 0 && m.caps != nil && m.caps.SupportsKittyGraphics {
		kitty = terminal.EncodeImageForKitty(m.session.Image, artWidth, artHeight)
	}

	if kitty != "" {
		lines = append(lines, "  "+kitty)
		for i := 0; i < artHeight-1; i++ {
			lines = append(lines, "")
		}
		for _, l := range info {
			lines = append(lines, "  "+l)
		}
	} else {
		art := artwork.RenderHalfBlockArt(m.session.Image, artWidth, artHeight)
		rows := max(len(art), len(info))
		for i := 0; i < rows; i++ {
			var b strings.Builder
			if artWidth > 0 {
				b.WriteString("  ")
				if i < len(art) {
					b.WriteString(art[i])
				} else {
					b.WriteString(strings.Repeat(" ", artWidth))
				}
			}
			b.WriteString("  ")
			if i < len(info) {
				b.WriteString(info[i])
			}
			lines = append(lines, b.String())
		}
	}

	lines = append(lines, "")
	if trk := m.session.Track; trk != nil && trk.Duration > 0 {
		lines = append(lines, m.renderProgress(width), "")
	}
	return lines
}

func (m Model) renderTrackInfo(width int) []string {
	trk := m.session.Track
	if trk == nil {
		return nil
	}
	maxWidth := uint(max(width, 20))

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Primary)).Bold(true)
	artistStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Secondary))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))

	lines := []string{
		titleStyle.Render(truncate.StringWithTail(trk.Title, maxWidth, "…")),
		artistStyle.Render(truncate.StringWithTail(trk.Artist, maxWidth, "…")),
	}
	if trk.Album != "" {
		lines = append(lines, dimStyle.Render(truncate.StringWithTail(trk.Album, maxWidth, "…")))
	}

	status := fmt.Sprintf("%s · offset %+.1fs", m.frame.Phase, m.session.Offset.Seconds())
	if m.frame.Paused {
		status = "paused · " + status
	}
	lines = append(lines, dimStyle.Render(status))
	return lines
}

func (m Model) renderProgress(width int) string {
	trk := m.session.Track
	barWidth := max(width-20, 20)

	progress := min(max(m.frame.Elapsed/trk.Duration, 0), 1)
	filled := int(float64(barWidth) * progress)

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Primary))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Faint(true)
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))

	var bar strings.Builder
	bar.WriteString(filledStyle.Render(strings.Repeat("━", filled)))
	if filled < barWidth {
		bar.WriteString(filledStyle.Render("●"))
		bar.WriteString(emptyStyle.Render(strings.Repeat("─", barWidth-filled-1)))
	}

	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(colors.FormatTime(m.frame.Elapsed)),
		bar.String(),
		timeStyle.Render(colors.FormatTime(trk.Duration)))
}

func (m Model) renderBody(width, height int) []string {
	if height <= 0 {
		return nil
	}
	if m.body == "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))
		out := make([]string, height/2)
		return append(out, centerText(style.Render("♪"), width))
	}

	lines := strings.Split(m.body, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

func (m Model) renderFooter(width int) string {
	if m.err != nil {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
		return style.Render(truncate.StringWithTail("  "+m.err.Error(), uint(width), "…"))
	}
	if m.status != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Accent))
		return style.Render(truncate.StringWithTail("  "+m.status, uint(width), "…"))
	}
	return "  " + m.help.View(m.keys)
}

func centerText(text string, width int) string {
	pad := (width - ansi.PrintableRuneWidth(text)) / 2
	if pad <= 0 {
		return text
	}
	return strings.Repeat(" ", pad) + text
}
