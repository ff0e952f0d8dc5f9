package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"karolbroda.com/karaline/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the karaline config file",
	Long:    paragraph(fmt.Sprintf("\n%s the karaline config file. EDITOR decides which editor opens it. A missing file is created with the defaults.", keyword("Edit"))),
	Example: paragraph("karaline config\nkaraline config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		file := configFile
		if file == "" {
			file = defaultConfigFile
		}
		if err := ensureConfigFile(file); err != nil {
			return err
		}

		c, err := editor.Cmd("karaline", file)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", file)
		return nil
	},
}

func ensureConfigFile(file string) error {
	if file == "" {
		return errors.New("no config file location")
	}
	if ext := path.Ext(file); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
			return fmt.Errorf("unable to create directory: %w", err)
		}
		if err := os.WriteFile(file, []byte(config.DefaultFile), 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
