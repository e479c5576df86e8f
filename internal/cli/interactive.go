package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/service"
)

const noValidSymptomsMessage = "No valid symptoms found. Try again or type 'list' to see available symptoms."

func (a *app) interactiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl"},
		Short:   "Start an interactive diagnosis session",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, ctrl, cfg, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			session := NewSession(ctrl, cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Diagnosis.DisplayLimit)
			return session.Run(commandContext(cmd))
		},
	}
}

// Session is a line-oriented diagnosis dialogue.
type Session struct {
	ctrl         *service.Controller
	in           *bufio.Scanner
	out          io.Writer
	displayLimit int
}

// NewSession creates a session reading commands from in.
func NewSession(ctrl *service.Controller, in io.Reader, out io.Writer, displayLimit int) *Session {
	if displayLimit <= 0 {
		displayLimit = 5
	}
	return &Session{
		ctrl:         ctrl,
		in:           bufio.NewScanner(in),
		out:          out,
		displayLimit: displayLimit,
	}
}

// Run reads commands until "exit", end of input or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "\n===== Disease Diagnosis System =====")
	fmt.Fprintln(s.out, "Enter 'list' to view available symptoms")
	fmt.Fprintln(s.out, "Enter 'search' + word to search for specific symptoms")
	fmt.Fprintln(s.out, "Enter 'exit' to exit the system")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, ok := s.prompt("\nEnter symptoms (separated by commas): ")
		if !ok {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}

		lower := strings.ToLower(strings.TrimSpace(line))
		switch {
		case lower == "exit":
			fmt.Fprintln(s.out, "Thank you for using the diagnosis system!")
			return nil
		case lower == "list" || lower == "show":
			fmt.Fprintln(s.out, "\nAvailable symptoms:")
			printNumbered(s.out, s.ctrl.List())
		case strings.HasPrefix(lower, "search "):
			s.search(strings.TrimSpace(strings.TrimPrefix(lower, "search ")))
		default:
			s.diagnose(ctx, line)
		}
	}
}

func (s *Session) prompt(text string) (string, bool) {
	fmt.Fprint(s.out, text)
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *Session) search(term string) {
	results := s.ctrl.Search(term)
	if len(results) == 0 {
		fmt.Fprintf(s.out, "No results found matching '%s'\n", term)
		return
	}
	fmt.Fprintf(s.out, "\nSearch results for '%s':\n", term)
	printNumbered(s.out, results)
}

func (s *Session) diagnose(ctx context.Context, line string) {
	attempt := s.ctrl.Begin(domain.TextSubmission(line), false)

	if attempt.State() == service.StateAwaitingSuggestionConfirmation {
		fmt.Fprintln(s.out, "\nDid you mean:")
		for _, sg := range attempt.PendingSuggestions() {
			fmt.Fprintf(s.out, "- '%s' -> '%s'\n", sg.Original, sg.Suggested)
		}
		answer, _ := s.prompt("Do you want to use the suggested symptoms? (yes/no): ")
		answer = strings.ToLower(strings.TrimSpace(answer))
		// Confirm cannot fail here: the attempt is awaiting confirmation.
		_ = attempt.Confirm(answer == "yes" || answer == "y")
	}

	if resolved := attempt.Resolution().Resolved; len(resolved) > 0 {
		fmt.Fprintf(s.out, "\nDiagnosing symptoms: %s\n", strings.Join(resolved, ", "))
	}

	diagnosis, err := s.ctrl.Complete(ctx, attempt)
	if err != nil {
		printDiagnosisError(s.out, err)
		return
	}
	printDiagnosis(s.out, diagnosis, s.displayLimit)
}

func printNumbered(out io.Writer, items []string) {
	for i, item := range items {
		fmt.Fprintf(out, "%d. %s\n", i+1, item)
	}
}

func printDiagnosisError(out io.Writer, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrNoValidSymptoms):
		fmt.Fprintln(out, noValidSymptomsMessage)
	case errors.Is(err, domain.ErrInsufficientConfidence):
		fmt.Fprintln(out, "\nCannot diagnose with sufficient confidence. Please provide more symptoms or consult a doctor.")
	default:
		fmt.Fprintf(out, "\nDiagnosis failed: %v\n", err)
	}
}

func printDiagnosis(out io.Writer, d *domain.Diagnosis, limit int) {
	fmt.Fprintf(out, "\nMost likely diagnosis: %s\n", d.TopLabel)
	fmt.Fprintln(out, "\nDiagnosis probabilities:")
	for _, c := range d.Top(limit) {
		fmt.Fprintf(out, " - %s: %.2f%% (%s confidence)\n", c.Disease, c.Confidence*100, c.Tier())
	}
	fmt.Fprintf(out, "\n%s\n", Disclaimer)
}
