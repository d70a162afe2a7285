package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hosting-assessment/internal/render"
)

func newShowCommand(s *state) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one assessment with its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := s.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			case "text":
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			headingColor.Fprintf(out, "Assessment %s\n", rec.ID)
			fmt.Fprintf(out, "Status: %s\n", rec.Status)
			fmt.Fprintf(out, "Submitted: %s\n", rec.SubmittedAt.UTC().Format(time.RFC3339))
			if rec.ReviewedAt != nil {
				fmt.Fprintf(out, "Reviewed: %s\n", rec.ReviewedAt.UTC().Format(time.RFC3339))
			}
			if rec.ReviewNotes != "" {
				fmt.Fprintf(out, "Notes: %s\n", rec.ReviewNotes)
			}
			fmt.Fprintf(out, "Agency: %s\n", rec.AgencyInfo.AgencyName)
			if rec.AgencyInfo.Department != "" {
				fmt.Fprintf(out, "Department: %s\n", rec.AgencyInfo.Department)
			}
			fmt.Fprintf(out, "Contact: %s <%s>\n\n", rec.AgencyInfo.ContactName, rec.AgencyInfo.ContactEmail)
			fmt.Fprint(out, render.New(app.Catalog).Text(rec.ScoringResult))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
