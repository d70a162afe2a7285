package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hosting-assessment/internal/models"
)

func newReviewCommand(s *state) *cobra.Command {
	var decision, notes string

	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Approve or reject a pending assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := models.ParseDecision(decision); !ok {
				return fmt.Errorf("--decision must be approved or rejected, got %q", decision)
			}

			app, err := s.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			outcome, err := app.Service.Review(cmd.Context(), args[0], decision, notes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rec := outcome.Assessment
			successColor.Fprintf(out, "Assessment %s %s\n", rec.ID, rec.Status)
			if rec.ReviewNotes != "" {
				fmt.Fprintf(out, "Notes: %s\n", rec.ReviewNotes)
			}
			printNotifications(out, outcome.Notifications)
			return nil
		},
	}
	cmd.Flags().StringVar(&decision, "decision", "", "approved or rejected")
	cmd.Flags().StringVar(&notes, "notes", "", "review notes sent to the agency contact")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}
