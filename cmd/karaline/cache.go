package main

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"karolbroda.com/karaline/internal/cache"
)

var (
	cacheSortBy  string
	cacheConfirm bool

	errNotCached = errors.New("song not found in cache")
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  paragraph("Inspect, prune or clear cached lyrics and saved sync offsets."),
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := openCache()
		count, size, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		location := diskCache.Dir()
		if location == "" {
			location = "(memory only)"
		}
		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", location)
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", humanize.Bytes(uint64(size)))
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list cached songs",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := openCache().ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		if err := sortEntries(entries, cacheSortBy); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tSYNC OFFSET\tCACHED")
		for _, e := range entries {
			offset := "-"
			if e.SyncOffset != 0 {
				offset = fmt.Sprintf("%+.1fs", e.SyncOffset)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ArtistName, e.TrackName, offset, humanize.Time(time.Unix(e.CreatedAt, 0)))
		}
		_ = w.Flush()

		fmt.Printf("\ntotal: %d songs\n", len(entries))
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "show one cached song",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := openCache()
		entry, err := findCached(diskCache, args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("artist:       %s\n", entry.ArtistName)
		fmt.Printf("title:        %s\n", entry.TrackName)
		fmt.Printf("album:        %s\n", entry.AlbumName)
		fmt.Printf("duration:     %.1fs\n", entry.Duration)
		fmt.Printf("sync offset:  %+.2fs\n", entry.SyncOffset)
		fmt.Printf("instrumental: %v\n", entry.Instrumental)
		fmt.Printf("cached:       %s\n", humanize.Time(time.Unix(entry.CreatedAt, 0)))
		fmt.Printf("expires:      %s\n", humanize.Time(time.Unix(entry.ExpiresAt, 0)))

		switch {
		case entry.SyncedLyrics != "":
			fmt.Printf("\nsynced lyrics: %s lines\n", countLines(entry.SyncedLyrics))
		case entry.PlainLyrics != "":
			fmt.Printf("\nplain lyrics: %s lines (no sync data)\n", countLines(entry.PlainLyrics))
		default:
			fmt.Println("\nno lyrics available")
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "remove every cached song",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheConfirm && !confirm("are you sure you want to clear the cache? (y/n): ") {
			fmt.Println("cancelled")
			return nil
		}
		if err := openCache().Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println(okStyle.Render("cache cleared"))
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired and unreadable entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		pruned, err := openCache().Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		fmt.Printf("removed %d entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove one song from the cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache := openCache()
		if _, err := findCached(diskCache, args[0], args[1]); err != nil {
			return err
		}
		if err := diskCache.Delete(args[0], args[1]); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}
		fmt.Printf("deleted '%s - %s' from cache\n", args[0], args[1])
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheListCmd, cacheShowCmd, cacheClearCmd, cachePruneCmd, cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// findCached returns the entry or, when it is missing, prints close
// matches and returns errNotCached.
func findCached(diskCache *cache.DiskCache, artist, title string) (*cache.LyricEntry, error) {
	entry, err := diskCache.Get(artist, title)
	if err == nil {
		return entry, nil
	}
	if suggestions := diskCache.Similar(artist, title, 5); len(suggestions) > 0 {
		printSuggestions("did you mean one of these?", suggestions)
	}
	return nil, errNotCached
}

func sortEntries(entries []*cache.LyricEntry, by string) error {
	lower := strings.ToLower
	switch by {
	case "artist":
		slices.SortStableFunc(entries, func(a, b *cache.LyricEntry) int {
			return cmp.Or(cmp.Compare(lower(a.ArtistName), lower(b.ArtistName)), cmp.Compare(lower(a.TrackName), lower(b.TrackName)))
		})
	case "title":
		slices.SortStableFunc(entries, func(a, b *cache.LyricEntry) int {
			return cmp.Compare(lower(a.TrackName), lower(b.TrackName))
		})
	case "date":
		slices.SortStableFunc(entries, func(a, b *cache.LyricEntry) int {
			return cmp.Compare(b.CreatedAt, a.CreatedAt)
		})
	default:
		return fmt.Errorf("unknown sort %q, expected date, artist or title", by)
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
