// Package cli implements the symptomdx command line: the HTTP server, an
// interactive diagnosis session and one-shot commands over the same engine.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/symptom-dx-server/internal/bootstrap"
	"github.com/symptom-dx-server/internal/config"
	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/service"
)

// Disclaimer is printed after every diagnosis.
const Disclaimer = "Important note: This system is for assistance only and not a substitute for professional medical consultation."

type app struct {
	version string
	cfgFile string
}

// NewRootCommand builds the symptomdx command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	rootCmd := &cobra.Command{
		Use:   "symptomdx",
		Short: "Symptom resolution and confidence-ranked diagnosis",
		Long: `symptomdx resolves free-text symptoms against a known vocabulary,
suggests corrections for misspellings and ranks candidate diseases with a
confidence tier.

It is an assistance tool and not a substitute for professional medical
consultation.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/symptom-dx/config.yaml)")

	rootCmd.AddCommand(
		a.serveCommand(),
		a.interactiveCommand(),
		a.diagnoseCommand(),
		a.listCommand(),
		a.searchCommand(),
		a.trainCommand(),
		a.configCommand(),
		a.versionCommand(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

// loadConfig reads and validates the configuration.
func (a *app) loadConfig() (*config.Manager, error) {
	var opts []config.Option
	if a.cfgFile != "" {
		opts = append(opts, config.WithConfigFile(a.cfgFile))
	}
	cm, err := config.NewManager(opts...)
	if err != nil {
		return nil, err
	}
	if err := cm.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cm, nil
}

// openEngine loads the configuration and initializes the engine synchronously.
// Logs go to the command's error stream.
func (a *app) openEngine(cmd *cobra.Command) (*bootstrap.Engine, *service.Controller, *domain.Config, error) {
	cm, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := cm.GetConfig()
	logger := bootstrap.NewLogger(cfg.Logging, cmd.ErrOrStderr())

	engine, err := bootstrap.NewEngine(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := engine.Initialize(commandContext(cmd)); err != nil {
		engine.Close()
		return nil, nil, nil, err
	}
	ctrl, err := engine.Controller()
	if err != nil {
		engine.Close()
		return nil, nil, nil, err
	}
	return engine, ctrl, cfg, nil
}

func (a *app) newLogger(cmd *cobra.Command, cfg *domain.Config) *logrus.Logger {
	return bootstrap.NewLogger(cfg.Logging, cmd.ErrOrStderr())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "symptomdx %s\n", a.version)
		},
	}
}
