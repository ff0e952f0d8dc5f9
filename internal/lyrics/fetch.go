package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"karolbroda.com/karaline/internal/cache"
)

// ErrNotFound means every lookup strategy came back empty.
var ErrNotFound = errors.New("lyrics not found")

type LrclibResponse struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
	SyncOffset   float64 `json:"-"`
}

// Document parses the synced lyrics of a response, tagged with its meta.
func (r *LrclibResponse) Document() (*Document, error) {
	if r.SyncedLyrics == "" {
		return nil, ErrNotFound
	}
	doc, err := ParseLRCString(r.SyncedLyrics)
	if err != nil {
		return nil, err
	}
	if doc.Meta.Title == "" {
		doc.Meta.Title = r.TrackName
	}
	if doc.Meta.Artist == "" {
		doc.Meta.Artist = r.ArtistName
	}
	if doc.Meta.Album == "" {
		doc.Meta.Album = r.AlbumName
	}
	if doc.Meta.Length == 0 {
		doc.Meta.Length = r.Duration
	}
	return doc, nil
}

type TrackParams struct {
	Title        string
	Artist       string
	Album        string
	DurationSecs int64
}

// Client looks lyrics up on an lrclib compatible server, trying a handful of
// spelling variations and caching the first hit.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.DiskCache
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient builds a client. A nil cache disables caching.
func NewClient(baseURL string, diskCache *cache.DiskCache, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport, Timeout: timeout},
		cache:   diskCache,
		// lrclib asks clients not to hammer it
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		timeout: timeout,
	}
}

// collapseSpaces trims and squeezes runs of whitespace.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo removes text in parentheses and brackets (remixes, versions, etc)
func stripVersionInfo(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
			b.WriteRune(' ')
			continue
		case ')', ']':
			if depth > 0 {
				depth--
				continue
			}
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return collapseSpaces(b.String())
}

var titleCaser = cases.Title(language.Und)

type strategy struct {
	artist   string
	title    string
	album    string
	duration int64
}

func (s strategy) key() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.artist, s.title, s.album, s.duration)
}

func strategiesFor(track *TrackParams) []strategy {
	artist := collapseSpaces(track.Artist)
	title := collapseSpaces(track.Title)

	candidates := []strategy{
		{artist, title, track.Album, track.DurationSecs},
		{artist, title, "", track.DurationSecs},
		{artist, title, "", 0},
		{stripVersionInfo(track.Artist), stripVersionInfo(track.Title), "", 0},
		// some artists (SURF CURSE) are stored shouting
		{strings.ToUpper(artist), strings.ToUpper(title), "", 0},
		{strings.ToLower(artist), strings.ToLower(title), "", 0},
		{titleCaser.String(artist), titleCaser.String(title), "", 0},
		{track.Artist, track.Title, "", 0},
	}

	seen := make(map[string]bool)
	var unique []strategy
	for _, s := range candidates {
		if s.artist == "" || s.title == "" || seen[s.key()] {
			continue
		}
		seen[s.key()] = true
		unique = append(unique, s)
	}
	return unique
}

// Fetch returns the lyrics for track, from cache when possible.
func (c *Client) Fetch(ctx context.Context, track *TrackParams) (*LrclibResponse, error) {
	if track == nil {
		return nil, errors.New("nil track info")
	}
	if collapseSpaces(track.Title) == "" || collapseSpaces(track.Artist) == "" {
		return nil, errors.New("track title or artist is empty")
	}
	if c.baseURL == "" {
		return nil, errors.New("lrclib base url is empty")
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(track.Artist, track.Title); err == nil {
			log.Debug("lyrics cache hit", "artist", track.Artist, "title", track.Title)
			return &LrclibResponse{
				TrackName:    cached.TrackName,
				ArtistName:   cached.ArtistName,
				AlbumName:    cached.AlbumName,
				Duration:     cached.Duration,
				Instrumental: cached.Instrumental,
				PlainLyrics:  cached.PlainLyrics,
				SyncedLyrics: cached.SyncedLyrics,
				SyncOffset:   cached.SyncOffset,
			}, nil
		}
	}

	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", c.baseURL, err)
	}

	var lastErr error
	for _, s := range strategiesFor(track) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		query := parsedURL.Query()
		query.Set("artist_name", s.artist)
		query.Set("track_name", s.title)
		query.Del("album_name")
		query.Del("duration")
		if s.album != "" {
			query.Set("album_name", s.album)
		}
		if s.duration > 0 {
			query.Set("duration", fmt.Sprintf("%d", s.duration))
		}
		parsedURL.RawQuery = query.Encode()

		log.Debug("lrclib lookup", "artist", s.artist, "title", s.title, "album", s.album, "duration", s.duration)

		payload, err := c.get(ctx, parsedURL.String())
		if err != nil {
			lastErr = err
			// only give up early when the server is not answering at all
			if isTimeoutError(err) {
				return nil, errors.New("lyrics server took too long to respond")
			}
			continue
		}
		if payload.PlainLyrics == "" && payload.SyncedLyrics == "" && !payload.Instrumental {
			lastErr = ErrNotFound
			continue
		}

		if c.cache != nil {
			if err := c.cache.Set(track.Artist, track.Title, &cache.LyricEntry{
				TrackName:    payload.TrackName,
				ArtistName:   payload.ArtistName,
				AlbumName:    payload.AlbumName,
				Duration:     payload.Duration,
				Instrumental: payload.Instrumental,
				PlainLyrics:  payload.PlainLyrics,
				SyncedLyrics: payload.SyncedLyrics,
			}); err != nil {
				log.Warn("failed to cache lyrics", "err", err)
			}
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, fmt.Errorf("no lyrics found for %s - %s: %w", track.Artist, track.Title, lastErr)
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) get(parentCtx context.Context, requestURL string) (*LrclibResponse, error) {
	ctx, cancel := context.WithTimeout(parentCtx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", "karaline/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload LrclibResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode lrclib json: %w", err)
	}
	return &payload, nil
}
