package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Opener builds the report service from a settings file path.
type Opener func(ctx context.Context, configPath string) (report.Service, io.Closer, error)

// CLI represents the command-line interface
type CLI struct {
	open       Opener
	reporter   *export.Reporter
	logs       io.Writer
	configPath string
	verbose    bool
	rootCmd    *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Open   Opener
	Output io.Writer
	// Logs receives human-readable log lines; stderr when nil.
	Logs io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}

	cli := &CLI{
		open:     opts.Open,
		reporter: export.NewReporter(opts.Output),
		logs:     opts.Logs,
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args, mainly for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "revenue-atlas",
		Short:         "Quarterly revenue analysis over the product hierarchy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.InfoLevel
			if cli.verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.logs}).
				Level(level).
				With().Timestamp().Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to the settings file")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log every warehouse query")

	cmd.AddCommand(commands.NewCollectCmd(cli.openService, cli.reporter))
	cmd.AddCommand(commands.NewShowCmd(cli.openService, cli.reporter))
	cmd.AddCommand(commands.NewRunDatesCmd(cli.openService))

	return cmd
}

func (cli *CLI) openService(ctx context.Context) (report.Service, io.Closer, error) {
	return cli.open(ctx, cli.configPath)
}
