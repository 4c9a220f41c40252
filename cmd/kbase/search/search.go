// Package searchcmder provides the search command for semantic search over
// stored documents.
package searchcmder

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/api"
	"github.com/papercomputeco/kbase/api/client"
	"github.com/papercomputeco/kbase/cmd/kbase/services"
	"github.com/papercomputeco/kbase/pkg/cliui"
	"github.com/papercomputeco/kbase/pkg/config"
	"github.com/papercomputeco/kbase/pkg/rag"
	"github.com/papercomputeco/kbase/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// previewLength is how much of each matched chunk is printed.
const previewLength = 160

type searchCommander struct {
	query     string
	limit     int
	quiet     bool
	apiTarget string

	out io.Writer
}

const searchLongDesc string = `Search stored documents via the kbase API.

Returns the chunks closest to the query text, most similar first. Requires a
running kbase API server (kbase serve).

Use --quiet to print only the matching filenames, one per line.

Examples:
  kbase search "parental leave policy"
  kbase search "expense limits" --limit 10
  kbase search "vpn setup" --api-target http://kbase.internal:3000`

const searchShortDesc string = "Search stored documents"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := services.LoadConfig(cmd, config.FlagAPITarget)
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "k", rag.DefaultSearchLimit, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only matching filenames, one per line")

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command) error {
	kb, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	output, err := kb.Search(cmd.Context(), c.query, c.limit)
	if err != nil {
		return err
	}

	if c.quiet {
		PrintFilenames(c.out, output)
		return nil
	}
	PrintResults(c.out, output)
	return nil
}

// PrintResults writes ranked search results to w.
func PrintResults(w io.Writer, output *api.SearchResponse) {
	if len(output.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.TitleStyle.Render("Search Results for:"),
		fileStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, hit := range output.Results {
		fmt.Fprintf(w, "  %s  %s  %s %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.FormatSimilarity(hit.Similarity),
			fileStyle.Render(hit.Filename),
			cliui.DimStyle.Render(fmt.Sprintf("(chunk %d)", hit.ChunkIndex)),
		)

		preview := utils.Truncate(strings.Join(strings.Fields(hit.Content), " "), previewLength)
		fmt.Fprintf(w, "  %s\n\n", previewStyle.Render(preview))
	}
}

// PrintFilenames writes each distinct matching filename once, in rank order.
func PrintFilenames(w io.Writer, output *api.SearchResponse) {
	seen := make(map[string]bool, len(output.Results))
	for _, hit := range output.Results {
		if seen[hit.Filename] {
			continue
		}
		seen[hit.Filename] = true
		fmt.Fprintln(w, hit.Filename)
	}
}
