package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hosting-assessment/internal/models"
)

func newListCommand(s *state) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the assessment dashboard, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				switch models.Status(status) {
				case models.StatusPending, models.StatusApproved, models.StatusRejected:
				default:
					return fmt.Errorf("unknown status %q", status)
				}
			}

			app, err := s.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			dash, err := app.Service.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dash.Total == 0 {
				fmt.Fprintln(out, "No assessments submitted yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tAgency\tRecommendation\tStatus\tSubmitted\n")
			fmt.Fprintf(w, "--\t------\t--------------\t------\t---------\n")
			for _, rec := range dash.Assessments {
				if status != "" && string(rec.Status) != status {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					rec.ID,
					rec.AgencyInfo.AgencyName,
					rec.ScoringResult.Recommendation,
					rec.Status,
					rec.SubmittedAt.UTC().Format(time.RFC3339),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nTotal: %d (pending %d, approved %d, rejected %d)\n",
				dash.Total,
				dash.Counts[models.StatusPending],
				dash.Counts[models.StatusApproved],
				dash.Counts[models.StatusRejected],
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show records with this status")
	return cmd
}
