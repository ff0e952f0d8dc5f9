package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"karolbroda.com/karaline/internal/cache"
	"karolbroda.com/karaline/internal/clock"
	"karolbroda.com/karaline/internal/config"
	"karolbroda.com/karaline/internal/driver"
	"karolbroda.com/karaline/internal/lyrics"
	"karolbroda.com/karaline/internal/render"
	"karolbroda.com/karaline/internal/track"
	"karolbroda.com/karaline/internal/ui"
	"karolbroda.com/karaline/internal/viewport"
)

// outroLinger keeps the last word on screen a moment before the internal
// clock reports the song over.
const outroLinger = 3.0

// song is everything needed to play one track.
type song struct {
	track     *track.Info
	store     *lyrics.Store
	src       clock.Source
	transport ui.Transport
	offset    float64
	path      string
	save      func(float64) error
}

type clockTransport struct {
	c *clock.Clock
}

func (t clockTransport) TogglePlayback() error { return t.c.Toggle() }

func (t clockTransport) SeekBy(seconds float64) error {
	return t.c.Skip(time.Duration(seconds * float64(time.Second)))
}

// internalClock starts a clock for a song of length seconds, or one that
// runs a little past the last token when the length is unknown.
func internalClock(store *lyrics.Store, length float64) *clock.Clock {
	if length <= 0 {
		length = store.TokenAt(store.Count()-1).Timestamp + outroLinger
	}
	c := clock.New()
	c.SetDuration(time.Duration(length * float64(time.Second)))
	_ = c.Start()
	return c
}

func readLRCFile(path string) (*lyrics.Document, *lyrics.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open lyrics: %w", err)
	}
	defer f.Close()

	doc, err := lyrics.ParseLRC(f)
	if err != nil {
		return nil, nil, err
	}
	store, err := lyrics.Build(doc.Tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, store, nil
}

func loadLocal(path string, length float64, cfg *config.Config) (*song, error) {
	doc, store, err := readLRCFile(path)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		length = doc.Meta.Length
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	title := doc.Meta.Title
	if title == "" {
		title = filepath.Base(path)
	}
	c := internalClock(store, length)
	return &song{
		track: &track.Info{
			Title:    title,
			Artist:   doc.Meta.Artist,
			Album:    doc.Meta.Album,
			Duration: c.Duration().Seconds(),
		},
		store:     store,
		src:       c,
		transport: clockTransport{c: c},
		offset:    cfg.SyncOffset,
		path:      abs,
	}, nil
}

// fetchSong looks trk up and builds its store. The returned offset is the
// one saved for the song, if any.
func fetchSong(ctx context.Context, client *lyrics.Client, trk *track.Info) (*lyrics.Document, *lyrics.Store, float64, error) {
	resp, err := client.Fetch(ctx, trk.Params())
	if err != nil {
		return nil, nil, 0, err
	}
	if resp.SyncedLyrics == "" {
		if resp.Instrumental {
			return nil, nil, 0, errors.New("instrumental, nothing to sing along to")
		}
		return nil, nil, 0, errors.New("only unsynced lyrics available")
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, nil, 0, err
	}
	store, err := lyrics.Build(doc.Tokens)
	if err != nil {
		return nil, nil, 0, err
	}
	return doc, store, resp.SyncOffset, nil
}

func saveOffset(diskCache *cache.DiskCache, trk *track.Info) func(float64) error {
	return func(v float64) error {
		return diskCache.SetSyncOffset(trk.Artist, trk.Title, v)
	}
}

func loadRemote(ctx context.Context, cfg *config.Config, artist, title string, length float64) (*song, error) {
	diskCache := openCache()
	client := lyrics.NewClient(cfg.LrclibURL, diskCache, cfg.HTTPTimeout())

	trk := &track.Info{Title: title, Artist: artist, Duration: length}
	doc, store, saved, err := fetchSong(ctx, client, trk)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		length = doc.Meta.Length
	}
	trk.Album = doc.Meta.Album

	offset := cfg.SyncOffset
	if saved != 0 {
		offset = saved
	}

	c := internalClock(store, length)
	trk.Duration = c.Duration().Seconds()
	return &song{
		track:     trk,
		store:     store,
		src:       c,
		transport: clockTransport{c: c},
		offset:    offset,
		save:      saveOffset(diskCache, trk),
	}, nil
}

func playOnce(s *song) producer {
	return func(ctx context.Context, cfg *config.Config, out presenter) error {
		if err := play(ctx, cfg, out, s); err != nil {
			return err
		}
		out.status("end of song", nil)
		return nil
	}
}

// play runs the driver for one song until it completes or ctx ends.
func play(ctx context.Context, cfg *config.Config, out presenter, s *song) error {
	offset := clock.WithOffset(s.src, s.offset)
	r := out.surface(cfg.RenderFont())

	opts := cfg.Driver()
	if _, ok := r.(*render.Plain); ok {
		opts.Scroll.Rows = viewport.RowsLines
	}
	opts.OnFrame = out.frame
	opts.OnError = func(err error) {
		log.Warn("render failed", "err", err)
	}
	d := driver.New(s.store, offset, r, opts)

	sess := &ui.Session{
		Track:      s.track,
		Store:      s.store,
		Offset:     offset,
		Transport:  s.transport,
		Path:       s.path,
		SaveOffset: s.save,
	}
	if t, ok := r.(*render.Terminal); ok {
		sess.Surface = t
	}
	out.session(sess)

	log.Info("playing", "track", s.track.String(), "tokens", s.store.Count(), "lines", s.store.LineCount())

	if s.path != "" && watchFile {
		stop, err := watchLyrics(ctx, s.path, d, out)
		if err != nil {
			out.status("", err)
		} else {
			defer stop()
		}
	}

	return d.Run(ctx)
}

type plainPresenter struct {
	w io.Writer
}

func (p *plainPresenter) surface(render.Font) render.Renderer { return render.NewPlain(p.w) }

func (p *plainPresenter) session(s *ui.Session) {
	if s == nil || s.Track == nil {
		return
	}
	fmt.Fprintf(p.w, "# %s", s.Track.String())
	if s.Track.Duration > 0 {
		fmt.Fprintf(p.w, " (%s)", humanize.FtoaWithDigits(s.Track.Duration, 1)+"s")
	}
	fmt.Fprintln(p.w)
}

func (p *plainPresenter) frame(driver.Frame) {}

func (p *plainPresenter) status(text string, err error) {
	if err != nil {
		log.Warn(text, "err", err)
		fmt.Fprintln(os.Stderr, "karaline:", err)
		return
	}
	log.Info(text)
}
