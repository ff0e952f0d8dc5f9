package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/karaline/internal/colors"
	"karolbroda.com/karaline/internal/player"
)

var testService string

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  paragraph("Discover and test the MPRIS players karaline can follow."),
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list running mpris players",
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListPlayers(bus)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println(dimStyle.Render("\ncheck that your music player is running and supports mpris"))
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(services))
		for _, service := range services {
			if identity := player.Identity(bus, service); identity != "" {
				fmt.Printf("  %s (%s)\n", service, identity)
			} else {
				fmt.Printf("  %s\n", service)
			}
		}
		fmt.Println(dimStyle.Render("\nuse --mpris-service to pick one"))
		return nil
	},
}

var playerTestCmd = &cobra.Command{
	Use:   "test",
	Short: "check the connection to a player",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		service := cfg.MprisService
		if testService != "" {
			service = testService
		}

		fmt.Printf("testing connection to: %s\n\n", service)
		return showPlayer(service, true)
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show the playing track",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return showPlayer(cfg.MprisService, false)
	},
}

func init() {
	playerCmd.AddCommand(playerListCmd, playerTestCmd, playerCurrentCmd)
	playerTestCmd.Flags().StringVar(&testService, "service", "", "mpris service to test")
}

func showPlayer(service string, verbose bool) error {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	svc, err := player.NewService(bus, service)
	if err != nil {
		return fmt.Errorf("failed to connect to player: %w", err)
	}
	if err := svc.Poll(); err != nil {
		return fmt.Errorf("player did not answer: %w", err)
	}

	if verbose {
		if identity := player.Identity(bus, service); identity != "" {
			fmt.Printf("player identity: %s\n", identity)
		}
		fmt.Println(okStyle.Render("status: connected ✓"))
		fmt.Println()
	}

	st := svc.State()
	if !st.Track.IsValid() {
		fmt.Println("no track currently playing")
		return nil
	}

	fmt.Printf("title:    %s\n", st.Track.Title)
	fmt.Printf("artist:   %s\n", st.Track.Artist)
	if st.Track.Album != "" {
		fmt.Printf("album:    %s\n", st.Track.Album)
	}
	if st.Track.Duration > 0 {
		fmt.Printf("duration: %s\n", colors.FormatTime(st.Track.Duration))
	}
	if st.Track.ArtworkURL != "" {
		fmt.Printf("artwork:  %s\n", st.Track.ArtworkURL)
	}
	switch {
	case st.Stopped:
		fmt.Println("state:    stopped")
	case st.Playing:
		fmt.Println("state:    playing")
	default:
		fmt.Println("state:    paused")
	}
	fmt.Printf("position: %s\n", colors.FormatTime(st.Position))
	return nil
}
