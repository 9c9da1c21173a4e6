package commands

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rolledback/FinanceCsvAnalysis/internal/buildinfo"
	"github.com/rolledback/FinanceCsvAnalysis/internal/config"
	"github.com/rolledback/FinanceCsvAnalysis/internal/pipeline"
)

// app carries state shared by the subcommands of one root command.
type app struct {
	v            *viper.Viper
	settingsFile string
	settings     config.Settings
	logger       *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:     "financecsv",
		Short:   "Classify and reconcile bank CSV exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.settingsFile, "settings", "", "settings file (default: $HOME/.config/financecsv/financecsv.yaml)")
	flags.String("log-level", "info", "console log level (debug, info, warn, error)")
	flags.String("log-format", "text", "console log format (text, json, logfmt)")
	flags.String("currency", "$", "currency symbol prefixed to amounts")
	flags.String("report", "", "also write a report: summary or monthly")
	flags.String("out", "out", "output directory, relative to the target directory")
	flags.Bool("progress", false, "show a progress bar while classifying")

	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = a.v.BindPFlag(config.KeyCurrency, flags.Lookup("currency"))
	_ = a.v.BindPFlag(config.KeyReport, flags.Lookup("report"))
	_ = a.v.BindPFlag(config.KeyOut, flags.Lookup("out"))
	_ = a.v.BindPFlag(config.KeyProgress, flags.Lookup("progress"))

	rootCmd.AddCommand(newAnalyzeCommand(a))
	rootCmd.AddCommand(newJoinCommand(a))
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newRulesCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.settingsFile != "" {
		a.v.SetConfigFile(a.settingsFile)
	}
	s, err := config.ReadSettings(a.v)
	if err != nil {
		return err
	}
	a.settings = s
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:     s.LogLevel,
		Formatter: s.LogFormat,
		Prefix:    "financecsv",
	})
	return nil
}

// options builds pipeline options from "<dir> [config]" arguments.
func (a *app) options(cmd *cobra.Command, args []string) pipeline.Options {
	opts := pipeline.Options{
		Dir:      args[0],
		Settings: a.settings,
		Logger:   a.logger,
	}
	if len(args) > 1 {
		opts.ConfigPath = args[1]
	}
	if a.settings.Progress {
		opts.NewProgress = func(total int) pipeline.Progress {
			return pipeline.NewBar(cmd.ErrOrStderr(), total, "Classifying")
		}
	}
	return opts
}

func dirArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
		return fmt.Errorf("%w\nusage: %s", err, cmd.UseLine())
	}
	return nil
}
