package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"karolbroda.com/karaline/internal/cache"
	"karolbroda.com/karaline/internal/config"
)

var (
	// Version as provided by the build.
	Version = ""

	configFile string
	// defaultConfigFile is where `karaline config` edits when --config is
	// not given.
	defaultConfigFile string
	noCache           bool

	rootCmd = &cobra.Command{
		Use:   "karaline",
		Short: "word by word karaoke lyrics in your terminal",
		Long: paragraph(fmt.Sprintf(
			"\n%s follows your music player, or a clock of its own, and sweeps a highlight across each word as it is sung.\n\nWithout a subcommand it starts the viewer.",
			keyword("karaline"),
		)),
		Example: paragraph("karaline\nkaraline --lrc song.lrc --watch\nkaraline --artist OneRepublic --title \"Counting Stars\""),
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file %s: %w", configFile, err)
				}
			}
			if viper.GetBool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		RunE:          runViewer,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	tryLoadConfigFromDefaultPlaces()
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	pf.StringP("mpris-service", "m", config.DefaultMprisService, "mpris service to follow")
	pf.String("lrclib-url", config.DefaultLrclibGetURL, "lrclib compatible lyrics endpoint")
	pf.BoolVar(&noCache, "no-cache", false, "skip the lyrics cache")
	pf.Bool("debug", false, "verbose logging to the log file")

	_ = viper.BindPFlag("mpris_service", pf.Lookup("mpris-service"))
	_ = viper.BindPFlag("lrclib_url", pf.Lookup("lrclib-url"))
	_ = viper.BindPFlag("debug", pf.Lookup("debug"))

	rootCmd.AddCommand(configCmd, manCmd, runCmd, lyricsCmd, cacheCmd, playerCmd)
}

// loadConfig layers environment, config file and flags, in rising order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Overlay(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openCache() *cache.DiskCache {
	if noCache {
		c, _ := cache.NewDiskCache("")
		return c
	}
	return cache.GetGlobalCache()
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "karaline")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "karaline")}, dirs...)
	}
	if c := os.Getenv("KARALINE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("karaline")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("karaline")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		defaultConfigFile = used
		return
	}
	defaultConfigFile = filepath.Join(dirs[0], "karaline.yml")
}
