package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/slidepipe/internal/presentation"
)

var (
	renderOpts renderFlags
	renderOut  string
	renderFull bool
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a markdown deck and print the result as JSON",
	Long: `Render a markdown deck once and print the slides as JSON.

Use "-" to read the deck from stdin. By default only titles and slide
metadata are printed; --full includes the HTML and CSS.`,
	Example: `  slidepipe render talk.md
  slidepipe render talk.md --theme gaia --paginate --full -o talk.json
  cat talk.md | slidepipe render -`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderOpts.register(renderCmd.Flags())
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the JSON to a file instead of stdout")
	renderCmd.Flags().BoolVar(&renderFull, "full", false, "include the deck HTML, CSS and per-slide HTML")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	source := args[0]
	markdown, err := readDeck(source, cmd.InOrStdin())
	if err != nil {
		return err
	}
	slideCfg, err := renderOpts.slidesConfig(cmd.Flags())
	if err != nil {
		return err
	}

	p, cleanup, err := newPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := p.Render(cmd.Context(), markdown, slideCfg)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", source, err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if renderOut != "" {
		f, err := os.Create(renderOut) //nolint:gosec // G304: user-chosen output
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return presentation.NewFormatter(w).FormatRender(presentation.FromResult(source, result, renderFull))
}
