package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/karaline/internal/cache"
)

var (
	keywordStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8A8E8")).Bold(true)
	paragraphStyle = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
)

func keyword(s string) string {
	return keywordStyle.Render(s)
}

func paragraph(s string) string {
	return paragraphStyle.Render(s)
}

func printSuggestions(header string, entries []*cache.LyricEntry) {
	fmt.Fprintln(os.Stderr, dimStyle.Render(header))
	for _, e := range entries {
		fmt.Fprintf(os.Stderr, "  %s - %s\n", e.ArtistName, e.TrackName)
	}
}
