package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/slidepipe/internal/config"
	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/pipeline"
	"github.com/zjrosen/slidepipe/internal/tracing"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop.
	_ = lipgloss.HasDarkBackground()
}

var (
	version    = "dev"
	cfgFile    string
	debugFlag  bool
	cfg        config.Config
	configPath string
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "slidepipe",
	Short: "Render markdown into slide decks",
	Long: `slidepipe turns a markdown document into a deck of HTML slides.

Slides are separated by "---" lines. Front matter and HTML comment
directives pick the theme, size, pagination and backgrounds.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .slidepipe/config.yaml or ~/.config/slidepipe/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (path from SLIDEPIPE_LOG, default debug.log)")
}

func setup(cmd *cobra.Command, _ []string) error {
	// Initialize logging if debug mode enabled (via flag or env var)
	if os.Getenv("SLIDEPIPE_DEBUG") != "" || debugFlag {
		logPath := os.Getenv("SLIDEPIPE_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.InitWithTeaLog(logPath, "slidepipe")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.Info(log.CatConfig, "slidepipe starting", "command", cmd.Name(), "version", version)
	}

	loaded, used, err := config.Load(viper.GetViper(), cfgFile, cmd != initCmd)
	if err != nil {
		return err
	}
	cfg, configPath = loaded, used
	return nil
}

// configDir is where relative paths in the config file are resolved.
func configDir() string {
	if configPath == "" {
		return ""
	}
	return filepath.Dir(configPath)
}

// newPipeline builds the render pipeline with tracing from the loaded config.
// The returned cleanup flushes spans and releases the renderer.
func newPipeline() (*pipeline.Pipeline, func(), error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("creating tracer: %w", err)
	}

	opts := pipeline.FromConfig(cfg)
	opts.Engine.Tracer = provider.Tracer()
	if opts.ThemeDir != "" && !filepath.IsAbs(opts.ThemeDir) && configDir() != "" {
		opts.ThemeDir = filepath.Join(configDir(), opts.ThemeDir)
	}

	p, err := pipeline.New(opts)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		if err := p.Close(); err != nil {
			log.ErrorErr(log.CatEngine, "closing pipeline", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "flushing traces", err)
		}
	}
	return p, cleanup, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
