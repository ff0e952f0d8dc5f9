package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"

	"karolbroda.com/karaline/internal/artwork"
	"karolbroda.com/karaline/internal/driver"
	"karolbroda.com/karaline/internal/render"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeSurface()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case SessionMsg:
		return m.handleSession(msg.Session)

	case FrameMsg:
		m.frame = driver.Frame(msg)
		return m, nil

	case BodyMsg:
		m.body = string(msg)
		return m, nil

	case ArtworkFetchedMsg:
		return m.handleArtworkFetched(msg)

	case StatusMsg:
		return m.setStatus(msg.Text, msg.Err)

	case clearStatusMsg:
		if msg.at.Equal(m.statusAt) {
			m.status = ""
			m.err = nil
		}
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			return m.setStatus("", fmt.Errorf("editor: %w", msg.err))
		}
		return m, nil
	}

	return m, nil
}

func (m Model) setStatus(text string, err error) (Model, tea.Cmd) {
	m.status = text
	m.err = err
	m.statusAt = time.Now()
	if err != nil {
		log.Warn("status", "err", err)
	}
	at := m.statusAt
	return m, tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{at: at}
	})
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeSurface()
		return m, nil

	case key.Matches(msg, m.keys.Header):
		m.hideHeader = !m.hideHeader
		m.resizeSurface()
		return m, nil
	}

	if m.session == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		if err := m.session.Transport.TogglePlayback(); err != nil {
			return m.setStatus("", err)
		}

	case key.Matches(msg, m.keys.Back):
		if err := m.session.Transport.SeekBy(-seekStep); err != nil {
			return m.setStatus("", err)
		}

	case key.Matches(msg, m.keys.Forward):
		if err := m.session.Transport.SeekBy(seekStep); err != nil {
			return m.setStatus("", err)
		}

	case key.Matches(msg, m.keys.Sooner):
		return m.changeOffset(m.session.Offset.Adjust(offsetStep))

	case key.Matches(msg, m.keys.Later):
		return m.changeOffset(m.session.Offset.Adjust(-offsetStep))

	case key.Matches(msg, m.keys.MuchSooner):
		return m.changeOffset(m.session.Offset.Adjust(offsetBigStep))

	case key.Matches(msg, m.keys.MuchLater):
		return m.changeOffset(m.session.Offset.Adjust(-offsetBigStep))

	case key.Matches(msg, m.keys.ResetOffset):
		m.session.Offset.Set(0)
		return m.changeOffset(0)

	case key.Matches(msg, m.keys.Copy):
		return m, copyLineCmd(m.frame.Line)

	case key.Matches(msg, m.keys.Edit):
		return m, openEditorCmd(m.session.Path)
	}

	return m, nil
}

func (m Model) changeOffset(offset float64) (tea.Model, tea.Cmd) {
	text := fmt.Sprintf("offset %+.1fs", offset)
	if m.session.SaveOffset == nil {
		return m.setStatus(text, nil)
	}
	if err := m.session.SaveOffset(offset); err != nil {
		log.Debug("offset not saved", "err", err)
	}
	return m.setStatus(text, nil)
}

func (m Model) handleSession(s *Session) (tea.Model, tea.Cmd) {
	m.session = s
	m.frame = driver.Frame{}
	m.body = ""
	m.err = nil
	m.keys.updateEnabled(s)

	if s == nil {
		m.palette = artwork.DefaultPalette()
		return m, nil
	}

	if s.Palette != nil {
		m.palette = s.Palette
	} else {
		m.palette = artwork.DefaultPalette()
	}
	if s.Surface != nil {
		s.Surface.SetStyles(render.PaletteStyles(m.palette))
	}
	m.resizeSurface()

	if s.Image == nil && s.Track != nil && s.Track.ArtworkURL != "" {
		return m, fetchArtworkCmd(s.Track.ArtworkURL)
	}
	return m, nil
}

func (m Model) handleArtworkFetched(msg ArtworkFetchedMsg) (tea.Model, tea.Cmd) {
	// artwork for a track we already left
	if m.session == nil || m.session.Track == nil || m.session.Track.ArtworkURL != msg.URL {
		return m, nil
	}
	if msg.Err != nil {
		log.Debug("artwork unavailable", "url", msg.URL, "err", msg.Err)
		return m, nil
	}

	m.session.Image = msg.Image
	if msg.Palette != nil {
		m.palette = msg.Palette
		m.session.Palette = msg.Palette
		if m.session.Surface != nil {
			m.session.Surface.SetStyles(render.PaletteStyles(msg.Palette))
		}
	}
	// the header may have grown with the art
	m.resizeSurface()
	return m, nil
}

func fetchArtworkCmd(artworkURL string) tea.Cmd {
	return func() tea.Msg {
		img, err := artwork.Fetch(context.Background(), artworkURL)
		if err != nil {
			return ArtworkFetchedMsg{URL: artworkURL, Err: err}
		}
		return ArtworkFetchedMsg{
			URL:     artworkURL,
			Image:   img,
			Palette: artwork.ExtractPalette(img),
		}
	}
}

func copyLineCmd(line string) tea.Cmd {
	return func() tea.Msg {
		if line == "" {
			return StatusMsg{Text: "nothing to copy"}
		}
		if err := clipboard.WriteAll(line); err != nil {
			return StatusMsg{Err: fmt.Errorf("clipboard: %w", err)}
		}
		return StatusMsg{Text: "copied line"}
	}
}

func openEditorCmd(path string) tea.Cmd {
	c, err := editor.Cmd("karaline", path)
	if err != nil {
		return func() tea.Msg {
			return StatusMsg{Err: fmt.Errorf("editor: %w", err)}
		}
	}
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}
