package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hosting-assessment/internal/scoring"
	"hosting-assessment/pkg/catalog"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	hintColor    = color.New(color.Faint)
)

// answerFlags registers one --<key> flag per catalog question.
type answerFlags struct {
	catalog *catalog.Catalog
	values  map[string]*string
}

func bindAnswerFlags(cmd *cobra.Command, cat *catalog.Catalog) *answerFlags {
	f := &answerFlags{catalog: cat, values: make(map[string]*string)}
	for _, q := range cat.All() {
		v := new(string)
		cmd.Flags().StringVar(v, q.Key, "", fmt.Sprintf("%s (%s)", q.Prompt, strings.Join(q.Options, "|")))
		f.values[q.Key] = v
	}
	return f
}

// answers returns the answers given on the command line.
func (f *answerFlags) answers() scoring.AnswerSet {
	out := make(scoring.AnswerSet)
	for key, v := range f.values {
		if strings.TrimSpace(*v) != "" {
			out[key] = *v
		}
	}
	return out
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// fill asks for every unanswered question of the required groups. When migration factors
// were given instead of the direct migration answer, the remaining factors are asked too.
func (p *prompter) fill(cat *catalog.Catalog, answers scoring.AnswerSet) error {
	derived := false
	for _, q := range cat.Questions(catalog.GroupMigrationFactors) {
		if strings.TrimSpace(answers[q.Key]) != "" {
			derived = true
			break
		}
	}

	for _, g := range cat.Groups {
		if g.Optional && !(derived && g.Name == catalog.GroupMigrationFactors) {
			continue
		}
		for _, q := range g.Questions {
			if q.Key == scoring.KeyMigration && derived {
				continue
			}
			if v := strings.ToLower(strings.TrimSpace(answers[q.Key])); v != "" && q.Allows(v) {
				continue
			}
			v, err := p.ask(q)
			if err != nil {
				return err
			}
			answers[q.Key] = v
		}
	}
	return nil
}

// ask re-prompts until the answer is one of the question's options.
func (p *prompter) ask(q catalog.Question) (string, error) {
	for {
		headingColor.Fprintln(p.out, q.Prompt)
		if q.Help != "" {
			hintColor.Fprintf(p.out, "  %s\n", q.Help)
		}
		fmt.Fprintf(p.out, "  [%s]: ", strings.Join(q.Options, "/"))

		line, err := p.in.ReadString('\n')
		v := strings.ToLower(strings.TrimSpace(line))
		if v != "" && q.Allows(v) {
			return v, nil
		}
		if err != nil {
			return "", fmt.Errorf("no answer for %s: %w", q.Key, err)
		}
		errorColor.Fprintf(p.out, "  %q is not a valid answer, choose one of: %s\n", v, strings.Join(q.Options, ", "))
	}
}
