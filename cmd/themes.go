package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/slidepipe/internal/config"
	"github.com/zjrosen/slidepipe/internal/presentation"
)

var (
	themesJSON bool
	themesSet  string
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available themes or set the default",
	Example: `  slidepipe themes
  slidepipe themes --json
  slidepipe themes --set gaia`,
	Args: cobra.NoArgs,
	RunE: runThemes,
}

func init() {
	themesCmd.Flags().BoolVar(&themesJSON, "json", false, "print as JSON")
	themesCmd.Flags().StringVar(&themesSet, "set", "", "save a theme as the default in the config file")
	rootCmd.AddCommand(themesCmd)
}

func runThemes(cmd *cobra.Command, _ []string) error {
	p, cleanup, err := newPipeline()
	if err != nil {
		return err
	}
	defer cleanup()
	registry := p.Themes()

	if themesSet != "" {
		if !registry.Has(themesSet) {
			return fmt.Errorf("unknown theme %q", themesSet)
		}
		path := configPath
		if path == "" {
			path = defaultConfigFile()
		}
		if err := config.SaveDefaultTheme(path, themesSet); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default theme set to %s in %s\n", themesSet, path)
		return nil
	}

	defaultID := cfg.Render.Theme
	if defaultID == "" {
		defaultID = registry.DefaultID()
	}
	dtos := presentation.FromThemes(registry.List(), defaultID)
	f := presentation.NewFormatter(cmd.OutOrStdout())
	if themesJSON {
		return f.FormatThemes(dtos)
	}
	return f.FormatThemesTable(dtos)
}
