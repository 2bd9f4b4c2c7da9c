// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"fjacquet/donor-mapper/internal/config"
	"fjacquet/donor-mapper/internal/container"
	"fjacquet/donor-mapper/internal/logging"
)

// Output styles shared by the subcommands.
var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	SubtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

var (
	// Log is the shared logger instance for commands
	Log = logging.Discard()

	// AppConfig is the configuration loaded before any subcommand runs
	AppConfig *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "donor-mapper",
		Short: "A CLI tool to map spreadsheet budget labels to donor fields and categories.",
		Long: `donor-mapper resolves raw budget spreadsheet labels to canonical donor
fields and budget categories using rules, learned mappings, a cache and an
optional AI provider. It also serves the mapping HTTP API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: initializeConfig,
		SilenceUsage:      true,
	}

	// Persistent flag values overriding the configuration
	LogLevel     string
	LogFormat    string
	DatabasePath string
	RuleBased    bool

	initOnce sync.Once
)

// Init registers the persistent flags of the root command. It is safe to
// call more than once.
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
		Cmd.PersistentFlags().StringVar(&LogFormat, "log-format", "", "Log format (text or json)")
		Cmd.PersistentFlags().StringVar(&DatabasePath, "database", "", "Path of the SQLite mapping database")
		Cmd.PersistentFlags().BoolVar(&RuleBased, "rule-based", false, "Resolve labels with the rule engine only")
	})
}

func initializeConfig(cmd *cobra.Command, _ []string) error {
	config.LoadEnv()

	cfg, err := config.InitializeConfig()
	if err != nil {
		return err
	}
	if LogLevel != "" {
		cfg.Log.Level = LogLevel
	}
	if LogFormat != "" {
		cfg.Log.Format = LogFormat
	}
	if DatabasePath != "" {
		cfg.Database.Path = DatabasePath
	}
	if f := cmd.Flags().Lookup("rule-based"); f != nil && f.Changed {
		cfg.Mapping.RuleBased = RuleBased
	}

	AppConfig = cfg
	Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	Log.Debug("Configuration loaded",
		logging.Field{Key: "database", Value: cfg.Database.Path},
		logging.Field{Key: logging.FieldProvider, Value: cfg.AI.Provider})
	return nil
}

// NewContainer wires the application for the running command.
func NewContainer(ctx context.Context) (*container.Container, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return container.NewContainer(ctx, AppConfig, container.WithLogger(Log))
}
