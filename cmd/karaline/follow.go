package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"

	"karolbroda.com/karaline/internal/clock"
	"karolbroda.com/karaline/internal/config"
	"karolbroda.com/karaline/internal/lyrics"
	"karolbroda.com/karaline/internal/player"
	"karolbroda.com/karaline/internal/track"
	"karolbroda.com/karaline/internal/ui"
)

type playerTransport struct {
	svc *player.Service
}

func (t playerTransport) TogglePlayback() error { return t.svc.PlayPause() }

func (t playerTransport) SeekBy(seconds float64) error { return t.svc.Seek(seconds) }

// followPlayer plays whatever the configured MPRIS player plays, one
// session per track, until ctx ends.
func followPlayer(ctx context.Context, cfg *config.Config, out presenter) error {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	svc, err := player.NewService(bus, cfg.MprisService)
	if err != nil {
		return fmt.Errorf("failed to create player service: %w", err)
	}
	if err := svc.Start(); err != nil {
		log.Warn("could not set up dbus signals, polling only", "err", err)
	}
	defer svc.Stop()
	go svc.Run(ctx, config.PollInterval)

	diskCache := openCache()
	client := lyrics.NewClient(cfg.LrclibURL, diskCache, cfg.HTTPTimeout())
	transport := playerTransport{svc: svc}

	var current *track.Info
	for {
		trk, err := nextTrack(ctx, svc, current)
		if err != nil {
			return err
		}
		current = trk
		out.status("looking up "+trk.String(), nil)

		_, store, saved, err := fetchSong(ctx, client, trk)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Info("no lyrics", "track", trk.String(), "err", err)
			out.session(&ui.Session{
				Track:     trk,
				Offset:    clock.WithOffset(svc, 0),
				Transport: transport,
			})
			out.status("", err)
			continue
		}

		offset := cfg.SyncOffset
		if saved != 0 {
			offset = saved
		}
		err = play(ctx, cfg, out, &song{
			track:     trk,
			store:     store,
			src:       svc.Follow(trk),
			transport: transport,
			offset:    offset,
			save:      saveOffset(diskCache, trk),
		})
		if err != nil {
			return err
		}

		// a stopped player may start the same track again
		if svc.State().Stopped {
			current = nil
			out.session(nil)
		}
	}
}

// nextTrack waits until the player plays something other than current.
func nextTrack(ctx context.Context, svc *player.Service, current *track.Info) (*track.Info, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		st := svc.State()
		if !st.Stopped && st.Track.IsValid() && !st.Track.IsSameTrack(current) {
			return st.Track, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-svc.Events():
			if !ok {
				return nil, errors.New("player events closed")
			}
		case <-ticker.C:
		}
	}
}
