package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"karolbroda.com/karaline/internal/driver"
	"karolbroda.com/karaline/internal/engine"
	"karolbroda.com/karaline/internal/render"
	"karolbroda.com/karaline/internal/viewport"
)

const (
	EnvPrefix           = "KARALINE_"
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"
	DefaultLrclibGetURL = "https://lrclib.net/api/get"
	PollInterval        = 100 * time.Millisecond
)

// Config is read from KARALINE_* variables, then overlaid with the config
// file and flags through viper.
type Config struct {
	MprisService   string  `env:"MPRIS_SERVICE" envDefault:"org.mpris.MediaPlayer2.spotify"`
	LrclibURL      string  `env:"LRCLIB_GET_URL" envDefault:"https://lrclib.net/api/get"`
	HTTPTimeoutSec int     `env:"HTTP_TIMEOUT" envDefault:"10"`
	SyncOffset     float64 `env:"SYNC_OFFSET" envDefault:"0"`
	HideHeader     bool    `env:"HIDE_HEADER" envDefault:"false"`
	Debug          bool    `env:"DEBUG" envDefault:"false"`

	WindowPast             int     `env:"WINDOW_PAST" envDefault:"4"`
	WindowFuture           int     `env:"WINDOW_FUTURE" envDefault:"4"`
	TickIntervalMs         int     `env:"TICK_INTERVAL_MS" envDefault:"30"`
	SmoothingFactor        float64 `env:"SMOOTHING_FACTOR" envDefault:"0.15"`
	DefaultWordDurationSec float64 `env:"DEFAULT_WORD_DURATION" envDefault:"0.5"`
	SnapThreshold          float64 `env:"SNAP_THRESHOLD" envDefault:"2"`
	RowHeight              float64 `env:"ROW_HEIGHT" envDefault:"32"`
	InstrumentalGapSec     float64 `env:"INSTRUMENTAL_GAP" envDefault:"3"`
	Rows                   string  `env:"ROWS" envDefault:"tokens"`
	Font                   string  `env:"FONT" envDefault:"terminal"`
}

// Load reads the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Overlay copies every key set in v onto c. Keys are the snake_case names
// used in the config file, which is also what flags are bound to.
func (c *Config) Overlay(v *viper.Viper) {
	str := map[string]*string{
		"mpris_service": &c.MprisService,
		"lrclib_url":    &c.LrclibURL,
		"rows":          &c.Rows,
		"font":          &c.Font,
	}
	for key, dst := range str {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"http_timeout":     &c.HTTPTimeoutSec,
		"window_past":      &c.WindowPast,
		"window_future":    &c.WindowFuture,
		"tick_interval_ms": &c.TickIntervalMs,
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	floats := map[string]*float64{
		"sync_offset":           &c.SyncOffset,
		"smoothing_factor":      &c.SmoothingFactor,
		"default_word_duration": &c.DefaultWordDurationSec,
		"snap_threshold":        &c.SnapThreshold,
		"row_height":            &c.RowHeight,
		"instrumental_gap":      &c.InstrumentalGapSec,
	}
	for key, dst := range floats {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}

	bools := map[string]*bool{
		"hide_header": &c.HideHeader,
		"debug":       &c.Debug,
	}
	for key, dst := range bools {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.WindowPast < 0 || c.WindowFuture < 0 {
		errs = append(errs, errors.New("window sizes must not be negative"))
	}
	if c.TickIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %dms", c.TickIntervalMs))
	}
	if c.SmoothingFactor <= 0 || c.SmoothingFactor >= 1 {
		errs = append(errs, fmt.Errorf("smoothing factor must be in (0,1), got %v", c.SmoothingFactor))
	}
	if c.DefaultWordDurationSec <= 0 {
		errs = append(errs, fmt.Errorf("default word duration must be positive, got %v", c.DefaultWordDurationSec))
	}
	if c.SnapThreshold <= 0 {
		errs = append(errs, fmt.Errorf("snap threshold must be positive, got %v", c.SnapThreshold))
	}
	if c.RowHeight <= 0 {
		errs = append(errs, fmt.Errorf("row height must be positive, got %v", c.RowHeight))
	}
	if c.InstrumentalGapSec <= 0 {
		errs = append(errs, fmt.Errorf("instrumental gap must be positive, got %v", c.InstrumentalGapSec))
	}
	if _, err := viewport.ParseRows(c.Rows); err != nil {
		errs = append(errs, err)
	}
	if c.Font != "terminal" && c.Font != "block" && c.Font != "" {
		errs = append(errs, fmt.Errorf("unknown font %q", c.Font))
	}
	if c.LrclibURL == "" {
		errs = append(errs, errors.New("lrclib url is empty"))
	}
	return errors.Join(errs...)
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func (c *Config) RenderFont() render.Font {
	return render.Font{Block: c.Font == "block"}
}

// Driver builds loop options. Call Validate first.
func (c *Config) Driver() driver.Options {
	opts := driver.DefaultOptions()
	opts.WindowPast = c.WindowPast
	opts.WindowFuture = c.WindowFuture
	opts.TickInterval = c.TickInterval()
	opts.Engine = engine.Options{
		DefaultWordDuration: c.DefaultWordDurationSec,
		InstrumentalGap:     c.InstrumentalGapSec,
	}
	opts.Font = c.RenderFont()

	rows, _ := viewport.ParseRows(c.Rows)
	rowHeight := c.RowHeight
	// block glyphs are three cells tall, leave a gap row between them
	if opts.Font.Block {
		rowHeight = max(rowHeight, 4*render.CellHeight)
	}
	opts.Scroll = viewport.Options{
		RowHeight:       rowHeight,
		SmoothingFactor: c.SmoothingFactor,
		SnapThreshold:   c.SnapThreshold,
		Rows:            rows,
	}
	return opts
}

// DefaultFile is written by `karaline config` when no file exists yet.
const DefaultFile = `# karaline configuration, every key can also be set as KARALINE_<KEY>

# mpris player to follow
mpris_service: "org.mpris.MediaPlayer2.spotify"
# lrclib compatible lyrics endpoint
lrclib_url: "https://lrclib.net/api/get"
http_timeout: 10

# rows of context above and below the active row
window_past: 4
window_future: 4
# one row per word ("tokens") or per sentence ("lines")
rows: "tokens"
# "terminal" or "block"
font: "terminal"

tick_interval_ms: 30
smoothing_factor: 0.15
snap_threshold: 2
row_height: 32

# sweep length of the last word, seconds
default_word_duration: 0.5
# gaps at least this long show the instrumental marker, seconds
instrumental_gap: 3

# shift lyrics earlier (positive) or later (negative), seconds
sync_offset: 0
hide_header: false
`
