package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"github.com/zjrosen/slidepipe/internal/controller"
	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/slides"
	"github.com/zjrosen/slidepipe/internal/ui/preview"
	"github.com/zjrosen/slidepipe/internal/watcher"
)

var (
	previewOpts  renderFlags
	previewWatch bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Preview a deck in the terminal, re-rendering on save",
	Long: `Open a live terminal preview of a markdown deck.

The deck and any custom stylesheet are watched; edits are debounced and
re-rendered, and only the newest render is shown.`,
	Example: `  slidepipe preview talk.md
  slidepipe preview talk.md --theme uncover --css extra.css`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewOpts.register(previewCmd.Flags())
	previewCmd.Flags().BoolVarP(&previewWatch, "watch", "w", true, "re-render when the deck or stylesheet changes")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	if path == "-" {
		return fmt.Errorf("preview needs a file; use render for stdin")
	}
	slideCfg, err := previewOpts.slidesConfig(cmd.Flags())
	if err != nil {
		return err
	}

	p, cleanup, err := newPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	ctrl := p.NewController(controller.Options{
		Debounce:       cfg.Controller.Debounce,
		AutoInitialize: cfg.Controller.AutoInitialize,
		Config:         slideCfg,
	})
	defer ctrl.Close()

	if !cfg.Controller.AutoInitialize {
		go func() {
			if err := ctrl.Activate(context.Background()); err != nil {
				log.ErrorErr(log.CatController, "activation failed", err)
			}
		}()
	}

	var changes <-chan struct{}
	if previewWatch {
		w, err := watcher.New(watcher.Config{
			Paths:       append([]string{path}, previewOpts.watchedPaths()...),
			DebounceDur: watcher.DefaultConfig(path).DebounceDur,
		})
		if err != nil {
			return err
		}
		if changes, err = w.Start(); err != nil {
			_ = w.Stop()
			return err
		}
		defer func() { _ = w.Stop() }()
	}

	model := preview.New(preview.Config{
		Controller:    ctrl,
		Source:        deckSource(ctrl, path, previewOpts.watchedPaths()),
		Changes:       changes,
		Path:          path,
		MarkdownStyle: cfg.UI.MarkdownStyle,
		ShowStatusBar: cfg.UI.ShowStatusBar,
	})

	zone.NewGlobal()
	prog := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("running preview: %w", err)
	}
	return nil
}

// deckSource reads the deck. The first stylesheet, when present, is re-read
// too so CSS edits reach the controller as a config update.
func deckSource(ctrl *controller.Controller, path string, stylesheets []string) func() (string, error) {
	return func() (string, error) {
		if len(stylesheets) > 0 {
			css, err := os.ReadFile(stylesheets[0]) //nolint:gosec // G304: user-chosen stylesheet
			if err != nil {
				log.Warn(log.CatWatcher, "stylesheet unreadable", "path", stylesheets[0], "error", err)
			} else if err := ctrl.UpdateConfig(slides.Patch{CustomCSS: slides.Ptr(string(css))}); err != nil {
				log.ErrorErr(log.CatConfig, "applying stylesheet", err)
			}
		}
		return readDeck(path, nil)
	}
}
