package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/karaline/internal/cache"
	"karolbroda.com/karaline/internal/lyrics"
	"karolbroda.com/karaline/internal/track"
)

var exportOutput string

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "search, fetch, preview and export lyrics",
	Long:  paragraph("Look songs up on lrclib without starting the viewer."),
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "show what lrclib has for a song",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("searching for: %s - %s\n\n", args[0], args[1])

		// searching should not fill the cache
		client := lyrics.NewClient(cfg.LrclibURL, nil, cfg.HTTPTimeout())
		resp, err := client.Fetch(cmd.Context(), &lyrics.TrackParams{Artist: args[0], Title: args[1]})
		if err != nil {
			return fmt.Errorf("lyrics not found: %w", err)
		}

		fmt.Println("found lyrics:")
		fmt.Printf("  track:        %s\n", resp.TrackName)
		fmt.Printf("  artist:       %s\n", resp.ArtistName)
		if resp.AlbumName != "" {
			fmt.Printf("  album:        %s\n", resp.AlbumName)
		}
		if resp.Duration > 0 {
			fmt.Printf("  duration:     %.0fs\n", resp.Duration)
		}
		fmt.Printf("  instrumental: %v\n", resp.Instrumental)
		fmt.Printf("  synced lines: %s\n", countLines(resp.SyncedLyrics))
		fmt.Printf("  plain lines:  %s\n", countLines(resp.PlainLyrics))

		fmt.Println(dimStyle.Render("\nuse 'karaline lyrics fetch' to save to cache"))
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <artist> <title>",
	Short: "fetch lyrics into the cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		diskCache := openCache()
		if cached, err := diskCache.Get(artist, title); err == nil {
			fmt.Printf("'%s - %s' is already cached\n", artist, title)
			if cached.SyncOffset != 0 {
				fmt.Printf("sync offset: %+.2fs\n", cached.SyncOffset)
			}
			return nil
		}

		fmt.Printf("fetching: %s - %s\n", artist, title)

		client := lyrics.NewClient(cfg.LrclibURL, diskCache, cfg.HTTPTimeout())
		resp, err := client.Fetch(cmd.Context(), &lyrics.TrackParams{Artist: artist, Title: title})
		if err != nil {
			return fmt.Errorf("failed to fetch lyrics: %w", err)
		}
		if resp.SyncedLyrics == "" && resp.PlainLyrics == "" {
			return errors.New("no lyrics available for this song")
		}

		fmt.Println(okStyle.Render(fmt.Sprintf("cached: %s - %s", resp.ArtistName, resp.TrackName)))
		if resp.SyncedLyrics == "" {
			fmt.Println("only plain lyrics available, nothing to sync")
		}
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <artist> <title>",
	Short: "print lyrics line by line with timestamps",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		diskCache := openCache()
		resp, fromCache, err := lookupLyrics(cmd.Context(), cfg.LrclibURL, cfg.HTTPTimeout(), diskCache, artist, title)
		if err != nil {
			if suggestions := diskCache.Similar(artist, title, 5); len(suggestions) > 0 {
				printSuggestions("similar songs in cache:", suggestions)
			}
			return fmt.Errorf("lyrics not found: %w", err)
		}
		if fromCache {
			fmt.Println(dimStyle.Render("(from cache)"))
		}
		return previewLyrics(os.Stdout, resp)
	},
}

var lyricsExportCmd = &cobra.Command{
	Use:   "export <artist> <title>",
	Short: "write synced lyrics as word stamped lrc",
	Long: paragraph(fmt.Sprintf(
		"Writes the song with an inline stamp before every word. The result plays with %s and is a starting point for hand timing.",
		keyword("karaline --lrc"),
	)),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := lyrics.NewClient(cfg.LrclibURL, openCache(), cfg.HTTPTimeout())
		doc, store, _, err := fetchSong(cmd.Context(), client, &track.Info{Artist: args[0], Title: args[1]})
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("unable to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}

		if err := lyrics.FormatLRC(w, doc.Meta, store); err != nil {
			return fmt.Errorf("unable to write lyrics: %w", err)
		}
		if w != os.Stdout {
			fmt.Fprintf(os.Stderr, "Wrote %d lines to %s\n", store.LineCount(), exportOutput)
		}
		return nil
	},
}

func init() {
	lyricsCmd.AddCommand(lyricsSearchCmd, lyricsFetchCmd, lyricsPreviewCmd, lyricsExportCmd)
	lyricsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write, stdout when empty")
}

// lookupLyrics prefers the cache and falls back to lrclib.
func lookupLyrics(ctx context.Context, baseURL string, timeout time.Duration, diskCache *cache.DiskCache, artist, title string) (*lyrics.LrclibResponse, bool, error) {
	if cached, err := diskCache.Get(artist, title); err == nil {
		return &lyrics.LrclibResponse{
			TrackName:    cached.TrackName,
			ArtistName:   cached.ArtistName,
			AlbumName:    cached.AlbumName,
			Duration:     cached.Duration,
			Instrumental: cached.Instrumental,
			PlainLyrics:  cached.PlainLyrics,
			SyncedLyrics: cached.SyncedLyrics,
			SyncOffset:   cached.SyncOffset,
		}, true, nil
	}

	client := lyrics.NewClient(baseURL, diskCache, timeout)
	resp, err := client.Fetch(ctx, &lyrics.TrackParams{Artist: artist, Title: title})
	return resp, false, err
}

func previewLyrics(w io.Writer, resp *lyrics.LrclibResponse) error {
	fmt.Fprintf(w, "\n%s - %s\n", resp.ArtistName, resp.TrackName)
	if resp.AlbumName != "" {
		fmt.Fprintln(w, resp.AlbumName)
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))

	switch {
	case resp.Instrumental:
		fmt.Fprintln(w, "\n[instrumental]")

	case resp.SyncedLyrics != "":
		doc, err := resp.Document()
		if err != nil {
			return err
		}
		store, err := lyrics.Build(doc.Tokens)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nsynced lyrics (%d lines, %d words):\n\n", store.LineCount(), store.Count())
		for _, line := range store.Lines() {
			fmt.Fprintf(w, "[%s] %s\n", lyrics.FormatTimestamp(line.Start()), line.Text())
		}
		if resp.SyncOffset != 0 {
			fmt.Fprintf(w, "\nsync offset: %+.2fs\n", resp.SyncOffset)
		}

	case resp.PlainLyrics != "":
		fmt.Fprint(w, "\nplain lyrics (no timestamps):\n\n")
		fmt.Fprintln(w, resp.PlainLyrics)

	default:
		fmt.Fprintln(w, "\nno lyrics available")
	}
	return nil
}

func countLines(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "none"
	}
	return fmt.Sprint(strings.Count(s, "\n") + 1)
}
