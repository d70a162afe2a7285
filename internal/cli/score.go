package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/render"
	"hosting-assessment/internal/scoring"
)

func newScoreCommand(s *state) *cobra.Command {
	var (
		interactive bool
		explain     bool
		output      string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score answers and print the hosting recommendation",
		Long: `Score a set of answers without storing anything.

Every catalog question has its own flag. With --interactive, unanswered
questions are prompted for; otherwise all required answers must be given.`,
		Args: cobra.NoArgs,
	}
	answers := bindAnswerFlags(cmd, s.opts.Catalog)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for unanswered questions")
	cmd.Flags().BoolVar(&explain, "explain", false, "list every rule that contributed points")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the text report to this file")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		engine, err := scoring.NewEngine(s.opts.Catalog)
		if err != nil {
			return err
		}

		set, err := collectAnswers(s, cmd, answers, interactive)
		if err != nil {
			return err
		}
		result, err := engine.Score(set)
		if err != nil {
			printValidation(cmd.ErrOrStderr(), err)
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		case "text":
			printResult(out, result)
			if explain {
				printContributions(out, result)
			}
		default:
			return fmt.Errorf("unknown format %q", format)
		}

		if output != "" {
			report := render.New(s.opts.Catalog).Text(result)
			if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", output)
		}
		return nil
	}
	return cmd
}

func collectAnswers(s *state, cmd *cobra.Command, flags *answerFlags, interactive bool) (scoring.AnswerSet, error) {
	set := flags.answers()
	if interactive {
		if err := newPrompter(s.opts.In, cmd.OutOrStdout()).fill(s.opts.Catalog, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func printResult(w io.Writer, result *scoring.Result) {
	fmt.Fprint(w, "Recommendation: ")
	successColor.Fprintln(w, result.Recommendation.Label())
	fmt.Fprintf(w, "Scores: %s\n", render.ScoreLine(result.Scores))
	fmt.Fprintf(w, "Application age: %s\n", result.AppAge)
	fmt.Fprintf(w, "Migration complexity: %s (%s)\n", result.Migration, result.MigrationSource)

	if len(result.Explanations) > 0 {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, "Reasoning")
		for _, reason := range result.Explanations {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
}

func printContributions(w io.Writer, result *scoring.Result) {
	fmt.Fprintln(w)
	headingColor.Fprintln(w, "Contributions")
	for _, c := range result.Contributions {
		fmt.Fprintf(w, "  %-20s %-10s %s +%d\n", c.Rule, c.Value, c.Platform, c.Points)
	}
}

// printValidation lists the missing and invalid answer keys of a validation error.
func printValidation(w io.Writer, err error) {
	if !apperrors.IsValidation(err) {
		return
	}
	if missing := apperrors.MetadataStrings(err, "missing"); len(missing) > 0 {
		errorColor.Fprintf(w, "Missing answers: %s\n", strings.Join(missing, ", "))
	}
	if invalid := apperrors.MetadataStrings(err, "invalid"); len(invalid) > 0 {
		errorColor.Fprintf(w, "Invalid answers: %s\n", strings.Join(invalid, ", "))
	}
	warnColor.Fprintln(w, "Run with --interactive to be prompted, or see 'hostingctl questions'.")
}
