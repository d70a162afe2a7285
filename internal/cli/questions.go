package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQuestionsCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the assessment questions and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cat := s.opts.Catalog
			fmt.Fprintf(out, "Question catalog %s\n", cat.Version)

			for _, g := range cat.Groups {
				title := g.Title
				if g.Optional {
					title += " (optional)"
				}
				fmt.Fprintln(out)
				headingColor.Fprintln(out, title)
				for _, q := range g.Questions {
					fmt.Fprintf(out, "  --%s  %s\n", q.Key, q.Prompt)
					fmt.Fprintf(out, "      options: %s\n", strings.Join(q.Options, ", "))
					if q.Help != "" {
						hintColor.Fprintf(out, "      %s\n", q.Help)
					}
				}
			}
			return nil
		},
	}
}
