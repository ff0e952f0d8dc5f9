package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"karolbroda.com/karaline/internal/config"
	"karolbroda.com/karaline/internal/driver"
	"karolbroda.com/karaline/internal/render"
	"karolbroda.com/karaline/internal/terminal"
	"karolbroda.com/karaline/internal/ui"
)

var (
	lrcPath     string
	watchFile   bool
	trackArtist string
	trackTitle  string
	songLength  float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the lyrics viewer",
	Long:  paragraph("\nStarts the viewer. This is also what karaline does without a subcommand."),
	Args:  cobra.NoArgs,
	RunE:  runViewer,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&lrcPath, "lrc", "", "play a local lrc file on an internal clock")
	f.BoolVarP(&watchFile, "watch", "w", false, "reload the --lrc file when it changes")
	f.StringVar(&trackArtist, "artist", "", "fetch lyrics for this artist and play them on an internal clock")
	f.StringVar(&trackTitle, "title", "", "title to go with --artist")
	f.Float64Var(&songLength, "duration", 0, "song length in seconds for the internal clock")
	f.Float64P("sync-offset", "s", 0, "initial sync offset in seconds, positive shows lyrics sooner")
	f.BoolP("hide-header", "H", false, "hide the track header")
	f.String("rows", "tokens", "one row per word (tokens) or per sentence (lines)")
	f.String("font", "terminal", "terminal or block")
	f.Int("window-past", 4, "rows shown above the active row")
	f.Int("window-future", 4, "rows shown below the active row")

	_ = viper.BindPFlag("sync_offset", f.Lookup("sync-offset"))
	_ = viper.BindPFlag("hide_header", f.Lookup("hide-header"))
	_ = viper.BindPFlag("rows", f.Lookup("rows"))
	_ = viper.BindPFlag("font", f.Lookup("font"))
	_ = viper.BindPFlag("window_past", f.Lookup("window-past"))
	_ = viper.BindPFlag("window_future", f.Lookup("window-future"))

	runCmd.Flags().AddFlagSet(f)
}

func runViewer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if trackTitle != "" && trackArtist == "" || trackArtist != "" && trackTitle == "" {
		return errors.New("--artist and --title go together")
	}
	if watchFile && lrcPath == "" {
		return errors.New("--watch needs --lrc")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	caps := terminal.DetectCapabilities(os.Stdout, os.Getenv)
	log.Debug("starting viewer", "interactive", caps.Interactive, "profile", caps.Profile, "rows", cfg.Rows)

	var (
		produce producer
		waiting string
	)
	switch {
	case lrcPath != "":
		song, err := loadLocal(lrcPath, songLength, cfg)
		if err != nil {
			return err
		}
		produce = playOnce(song)
	case trackArtist != "":
		song, err := loadRemote(ctx, cfg, trackArtist, trackTitle, songLength)
		if err != nil {
			return err
		}
		produce = playOnce(song)
	default:
		produce = followPlayer
		waiting = fmt.Sprintf("awaiting music from %s", cfg.MprisService)
	}

	if !caps.Interactive {
		err := produce(ctx, cfg, &plainPresenter{w: os.Stdout})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return runTUI(ctx, cfg, caps, waiting, produce)
}

// producer plays songs into a presenter until it runs out or ctx ends.
type producer func(ctx context.Context, cfg *config.Config, out presenter) error

// presenter is where a song ends up: the full screen viewer or plain
// stdout when piped.
type presenter interface {
	surface(font render.Font) render.Renderer
	session(s *ui.Session)
	frame(f driver.Frame)
	status(text string, err error)
}

type tuiPresenter struct {
	p *tea.Program
}

func (t *tuiPresenter) surface(font render.Font) render.Renderer {
	cols, rows := terminal.Size(os.Stdout)
	return render.NewTerminal(cols, rows, font, render.PaletteStyles(nil), func(frame string) {
		t.p.Send(ui.BodyMsg(frame))
	})
}

func (t *tuiPresenter) session(s *ui.Session) { t.p.Send(ui.SessionMsg{Session: s}) }

func (t *tuiPresenter) frame(f driver.Frame) { t.p.Send(ui.FrameMsg(f)) }

func (t *tuiPresenter) status(text string, err error) {
	t.p.Send(ui.StatusMsg{Text: text, Err: err})
}

func runTUI(ctx context.Context, cfg *config.Config, caps *terminal.Capabilities, waiting string, produce producer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer terminal.Reset(os.Stdout)

	model := ui.NewModel(ui.ModelConfig{
		Caps:        caps,
		HideHeader:  cfg.HideHeader,
		WaitingText: waiting,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		err := produce(ctx, cfg, &tuiPresenter{p: p})
		if err != nil && !errors.Is(err, context.Canceled) {
			// nothing left to show, hand the error to the shell
			p.Quit()
		}
		errc <- err
	}()

	_, runErr := p.Run()
	cancel()
	prodErr := <-errc

	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	if errors.Is(prodErr, context.Canceled) {
		prodErr = nil
	}
	if runErr != nil {
		return fmt.Errorf("error running viewer: %w", runErr)
	}
	return prodErr
}
