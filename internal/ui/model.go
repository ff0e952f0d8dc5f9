package ui

import (
	"image"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/karaline/internal/artwork"
	"karolbroda.com/karaline/internal/clock"
	"karolbroda.com/karaline/internal/driver"
	"karolbroda.com/karaline/internal/lyrics"
	"karolbroda.com/karaline/internal/render"
	"karolbroda.com/karaline/internal/terminal"
	"karolbroda.com/karaline/internal/track"
)

const (
	offsetStep     = 0.1
	offsetBigStep  = 0.5
	seekStep       = 5.0
	statusDuration = 3 * time.Second
)

// Transport controls whatever is producing the audio.
type Transport interface {
	TogglePlayback() error
	SeekBy(seconds float64) error
}

// Session is one track being shown. The driver drawing into Surface runs
// outside the program and reports through FrameMsg and BodyMsg.
type Session struct {
	Track     *track.Info
	Image     image.Image
	Palette   *artwork.Palette
	Store     *lyrics.Store
	Offset    *clock.Offset // required
	Transport Transport
	Surface   *render.Terminal

	// Path is the lyric file on disk, empty when lyrics came from lrclib.
	Path string
	// SaveOffset persists a changed offset. May be nil.
	SaveOffset func(float64) error
}

// SessionMsg switches to a new session, nil goes back to waiting.
type SessionMsg struct {
	Session *Session
}

// FrameMsg carries the state of the latest driver tick.
type FrameMsg driver.Frame

// BodyMsg is a presented lyric frame.
type BodyMsg string

type StatusMsg struct {
	Text string
	Err  error
}

type ArtworkFetchedMsg struct {
	URL     string
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type clearStatusMsg struct {
	at time.Time
}

type editorFinishedMsg struct {
	err error
}

type Model struct {
	caps       *terminal.Capabilities
	hideHeader bool

	session *Session
	palette *artwork.Palette
	frame   driver.Frame
	body    string

	status   string
	statusAt time.Time
	err      error

	keys keyMap
	help help.Model

	waitingText string
	quitting    bool
	width       int
	height      int
}

type ModelConfig struct {
	Caps       *terminal.Capabilities
	HideHeader bool
	// WaitingText is shown under the banner before the first session.
	WaitingText string
}

func NewModel(cfg ModelConfig) Model {
	h := help.New()
	h.ShortSeparator = "  "
	dim := lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
	h.Styles.ShortKey = dim
	h.Styles.ShortDesc = dim
	h.Styles.FullKey = dim
	h.Styles.FullDesc = dim
	h.Styles.FullSeparator = dim
	h.Styles.ShortSeparator = dim

	waiting := cfg.WaitingText
	if waiting == "" {
		waiting = "awaiting music"
	}

	m := Model{
		caps:        cfg.Caps,
		hideHeader:  cfg.HideHeader,
		palette:     artwork.DefaultPalette(),
		keys:        newKeyMap(),
		help:        h,
		waitingText: waiting,
	}
	m.keys.updateEnabled(nil)
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Session() *Session         { return m.session }
func (m Model) Frame() driver.Frame       { return m.frame }
func (m Model) Palette() *artwork.Palette { return m.palette }
func (m Model) Status() string            { return m.status }
func (m Model) Err() error                { return m.err }
func (m Model) HideHeader() bool          { return m.hideHeader }
func (m Model) IsQuitting() bool          { return m.quitting }

// bodyRows is what is left for lyrics once header and footer are drawn.
func (m Model) bodyRows() int {
	rows := m.height - m.headerHeight() - m.footerHeight()
	return max(rows, 1)
}

func (m Model) headerHeight() int {
	if m.hideHeader || m.session == nil {
		return 0
	}
	return len(m.renderHeader(m.width))
}

func (m Model) footerHeight() int {
	return lipgloss.Height(m.renderFooter(m.width))
}

// resizeSurface keeps the lyric surface the size of the body area.
func (m *Model) resizeSurface() {
	if m.session == nil || m.session.Surface == nil || m.width == 0 {
		return
	}
	m.session.Surface.Resize(m.width, m.bodyRows())
}
