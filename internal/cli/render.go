package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harun/pagebot/pkg/catalog"
	"github.com/harun/pagebot/pkg/paginator"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	defaultRenderWidth = 60
	minRenderWidth     = 30
)

var renderOpts struct {
	page     int
	perPage  int
	numerate bool
	title    string
	world    string
	vocation string
}

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Preview a page in the terminal",
	Long: `Render one page the way the bot would, without connecting to a chat.
The file is a character catalog (.yaml, .yml, .db, .sqlite) or plain text
with one entry per line. Without a file, or with "-", lines are read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().IntVar(&renderOpts.page, "page", 1, "page to render")
	renderCmd.Flags().IntVar(&renderOpts.perPage, "per-page", 10, "entries per page")
	renderCmd.Flags().BoolVar(&renderOpts.numerate, "numerate", true, "number the entries")
	renderCmd.Flags().StringVar(&renderOpts.title, "title", "", "page title")
	renderCmd.Flags().StringVar(&renderOpts.world, "world", "", "only characters from this world")
	renderCmd.Flags().StringVar(&renderOpts.vocation, "vocation", "", "only characters with this vocation")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderOpts.perPage <= 0 {
		return paginator.ErrInvalidPerPage
	}

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	entries, err := readEntries(cmd, path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries to render")
	}

	maximumPage := (len(entries) + renderOpts.perPage - 1) / renderOpts.perPage
	if renderOpts.page < 1 || renderOpts.page > maximumPage {
		return fmt.Errorf("page %d is out of range 1-%d", renderOpts.page, maximumPage)
	}

	lines := paginator.PageLines(entries, renderOpts.page, renderOpts.perPage, renderOpts.numerate)
	footer := paginator.FooterText(renderOpts.page, maximumPage, len(entries))

	fmt.Fprintln(cmd.OutOrStdout(), renderPage(renderOpts.title, lines, footer, renderWidth(cmd.OutOrStdout())))
	return nil
}

// readEntries loads page entries from a catalog, a text file or stdin
func readEntries(cmd *cobra.Command, path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".db", ".sqlite":
		src, err := catalog.Open(path)
		if err != nil {
			return nil, err
		}
		quiet := zerolog.Nop()
		store := catalog.NewStore(src, &quiet)
		if err := store.Reload(cmd.Context()); err != nil {
			return nil, err
		}
		entries, _ := catalog.Entries(store.Query(catalog.Query{
			World:    renderOpts.world,
			Vocation: renderOpts.vocation,
		}))
		return entries, nil
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, line)
		}
	}
	return entries, scanner.Err()
}

// renderPage draws a bordered card similar to a chat embed
func renderPage(title string, lines []string, footer string, width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 1).
		Width(width)

	var parts []string
	if title != "" {
		parts = append(parts, titleStyle.Render(title), "")
	}
	parts = append(parts, strings.Join(lines, "\n"), "", footerStyle.Render(footer))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderWidth fits the card to the terminal when out is one
func renderWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return defaultRenderWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultRenderWidth
	}
	return max(min(width-4, defaultRenderWidth), minRenderWidth)
}
