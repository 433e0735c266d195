package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"projectreview/internal/config"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		branch string
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <repo-url>",
		Short: "Review one repository and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx := background(cmd)
			reviewer, err := newReviewer(ctx, cfg)
			if err != nil {
				return err
			}
			res, err := reviewer.Analyze(ctx, args[0], branch)
			if err != nil {
				return err
			}
			out, err := renderMarkdown(res.FinalFeedback, raw)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch or ref to review (default: repository default branch)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown without terminal styling")
	return cmd
}

func renderMarkdown(md string, raw bool) (string, error) {
	if raw {
		return md, nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("init markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
