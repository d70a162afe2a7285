package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hosting-assessment/internal/assessment"
	"hosting-assessment/internal/models"
)

func newSubmitCommand(s *state) *cobra.Command {
	var (
		agency      models.AgencyInfo
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Score and store an assessment for review",
		Long: `Score the answers, store the assessment as pending and notify the
reviewer and the agency contact.`,
		Args: cobra.NoArgs,
	}
	answers := bindAnswerFlags(cmd, s.opts.Catalog)
	cmd.Flags().StringVar(&agency.AgencyName, "agency-name", "", "submitting agency")
	cmd.Flags().StringVar(&agency.ContactName, "contact-name", "", "agency contact name")
	cmd.Flags().StringVar(&agency.ContactEmail, "contact-email", "", "agency contact email")
	cmd.Flags().StringVar(&agency.Department, "department", "", "department (optional)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for unanswered questions")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		set, err := collectAnswers(s, cmd, answers, interactive)
		if err != nil {
			return err
		}

		app, err := s.app(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		outcome, err := app.Service.Submit(cmd.Context(), agency, set)
		if err != nil {
			printValidation(cmd.ErrOrStderr(), err)
			return err
		}

		out := cmd.OutOrStdout()
		rec := outcome.Assessment
		successColor.Fprintf(out, "Assessment %s submitted\n", rec.ID)
		fmt.Fprintf(out, "Recommendation: %s\n", rec.ScoringResult.Recommendation.Label())
		fmt.Fprintf(out, "Status: %s\n", rec.Status)
		fmt.Fprintf(out, "Review URL: %s\n", outcome.ReviewURL)
		printNotifications(out, outcome.Notifications)
		return nil
	}
	return cmd
}

func printNotifications(w io.Writer, report assessment.NotificationReport) {
	line := func(name string, flag *bool) {
		switch {
		case flag == nil:
		case *flag:
			fmt.Fprintf(w, "  %-13s ", name)
			successColor.Fprintln(w, "sent")
		default:
			fmt.Fprintf(w, "  %-13s ", name)
			errorColor.Fprintln(w, "failed")
		}
	}
	fmt.Fprintln(w, "Notifications:")
	line("submission", report.Submission)
	line("confirmation", report.Confirmation)
	line("decision", report.Decision)
}
