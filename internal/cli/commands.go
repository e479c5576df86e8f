package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/symptom-dx-server/internal/classifier"
	"github.com/symptom-dx-server/internal/config"
	"github.com/symptom-dx-server/internal/dataset"
	"github.com/symptom-dx-server/internal/domain"
)

func (a *app) diagnoseCommand() *cobra.Command {
	var autoAccept bool

	cmd := &cobra.Command{
		Use:   "diagnose <symptoms>...",
		Short: "Diagnose a comma separated list of symptoms",
		Long: `Diagnose symptoms given as one comma separated argument or as
several arguments, one symptom each. Fuzzy suggestions are only applied
with --accept-suggestions.`,
		Example: `  symptomdx diagnose "fever, cough"
  symptomdx diagnose fever cough --accept-suggestions`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, ctrl, cfg, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			sub := domain.TextSubmission(args[0])
			if len(args) > 1 {
				sub = domain.ListSubmission(args...)
			}

			out := cmd.OutOrStdout()
			attempt := ctrl.Begin(sub, autoAccept)
			if pending := attempt.PendingSuggestions(); len(pending) > 0 {
				fmt.Fprintln(out, "Did you mean:")
				for _, sg := range pending {
					fmt.Fprintf(out, "- '%s' -> '%s'\n", sg.Original, sg.Suggested)
				}
				fmt.Fprintln(out, "Re-run with --accept-suggestions to use them.")
				_ = attempt.Confirm(false)
			}

			diagnosis, err := ctrl.Complete(commandContext(cmd), attempt)
			if err != nil {
				printDiagnosisError(out, err)
				return err
			}
			fmt.Fprintf(out, "Diagnosing symptoms: %s\n", strings.Join(diagnosis.Resolution.Resolved, ", "))
			printDiagnosis(out, diagnosis, cfg.Diagnosis.DisplayLimit)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&autoAccept, "accept-suggestions", "y", false, "apply fuzzy suggestions without asking")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known symptoms",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, ctrl, _, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			printNumbered(cmd.OutOrStdout(), ctrl.List())
			return nil
		},
	}
}

func (a *app) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search known symptoms by substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, ctrl, _, err := a.openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			results := ctrl.Search(args[0])
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No results found matching '%s'\n", args[0])
				return nil
			}
			printNumbered(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func (a *app) trainCommand() *cobra.Command {
	var alpha float64

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier and save the model artifact",
		Long: `Train a classifier on 80% of the dataset, report its accuracy on the
held out 20% and save it to the model directory, replacing any previous
artifact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := a.loadConfig()
			if err != nil {
				return err
			}
			cfg := cm.GetConfig()
			out := cmd.OutOrStdout()

			ds, err := dataset.Load(cfg.Dataset.Path)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}
			fmt.Fprintf(out, "Loaded %d records from %s\n", len(ds.Records), ds.Path)
			fmt.Fprintf(out, "Found %d unique symptoms across %d diseases\n", len(ds.Symptoms()), len(ds.Diseases()))

			trainSet, testSet := classifier.Split(ds.Records)
			model, err := classifier.Train(trainSet, alpha)
			if err != nil {
				return fmt.Errorf("failed to train model: %w", err)
			}

			if len(testSet) > 0 {
				accuracy, err := classifier.Evaluate(commandContext(cmd), model, testSet)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Model accuracy on test data: %.4f\n", accuracy)
			}

			if err := classifier.Save(model, cfg.Model.Dir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Model saved to %s\n", cfg.Model.Dir)
			return nil
		},
	}

	cmd.Flags().Float64Var(&alpha, "alpha", classifier.DefaultAlpha, "additive smoothing parameter")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: fmt.Sprintf(`Inspect the effective configuration.

Configuration hierarchy (highest to lowest priority):
1. Environment variables (%s_*)
2. Config file
3. Defaults`, config.EnvPrefix),
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := a.loadConfig()
			if err != nil {
				return err
			}

			if used := cm.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", used)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults)\n\n")
			}

			data, err := yaml.Marshal(cm.GetConfig())
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return configCmd
}

// Main runs the CLI and exits the process with a non-zero status on error.
func Main(version string) {
	if err := Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
