// Package main is the entry point for the dropbox-runner CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sdelicata/dropbox-runner/pkg/config"
	"github.com/sdelicata/dropbox-runner/pkg/output"
	"github.com/sdelicata/dropbox-runner/pkg/runner"
)

type options struct {
	configPath string
	token      string
	operation  string
	output     string
	format     string
	logLevel   string

	runnerOpts []runner.Option
}

// loggedError marks an error that run has already reported through the logger.
type loggedError struct{ err error }

func (e *loggedError) Error() string { return e.err.Error() }
func (e *loggedError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the root command with args and returns the process exit code.
// Errors that never reached the logger, such as an unknown flag, are printed to stderr.
func execute(args []string, stdout, stderr io.Writer, runnerOpts ...runner.Option) int {
	cmd := newRootCmd(runnerOpts...)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		var logged *loggedError
		if !errors.As(err, &logged) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(runnerOpts ...runner.Option) *cobra.Command {
	opts := options{runnerOpts: runnerOpts}

	cmd := &cobra.Command{
		Use:   "dropbox-runner",
		Short: "Run a single Dropbox operation (Download, ListFolder or Upload)",
		Long: `Run one Dropbox operation described by a TOML config file.

Download parses the remote CSV file into Employee Id / Employee Name / Salary rows,
ListFolder prints the folder listing, and Upload sends a local file to Dropbox.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to the TOML config file")
	f.StringVar(&opts.token, "token", "", "Dropbox access token (also read from "+config.TokenEnv+" env var)")
	f.StringVarP(&opts.operation, "operation", "o", "", "Operation override: Download, ListFolder or Upload")
	f.StringVar(&opts.output, "output", "", "Path to write rows to (default stdout)")
	f.StringVar(&opts.format, "format", string(output.JSON), "Output format: json or csv")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")

	return cmd
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	// Setup logger
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
		With().Timestamp().Logger().
		Level(level)

	cfg, err := resolveConfig(opts)
	if err != nil {
		logger.Error().Err(err).Msg("loading configuration")
		return &loggedError{err}
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		logger.Error().Err(err).Msg("invalid --format")
		return &loggedError{err}
	}

	// A file destination is only replaced once the rows are ready.
	anchor := output.NewStream(stdout, format)
	if opts.output != "" {
		anchor = output.NewFile(opts.output, format)
	}
	defer func() {
		if err := anchor.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing output")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r, err := runner.Initialize(cfg, anchor, logger, opts.runnerOpts...)
	if err != nil {
		logger.Error().Err(err).Msg("initializing runner")
		return &loggedError{err}
	}

	res, err := r.Run(ctx)
	if err != nil {
		var transferErr *runner.TransferError
		if errors.As(err, &transferErr) {
			logger.Error().Err(transferErr.Err).Str("operation", string(transferErr.Op)).Msg("Dropbox transfer failed")
		}
		return &loggedError{err}
	}

	printSummary(stderr, res)
	return nil
}

// resolveConfig loads the config file and applies flag and env overrides.
// Token precedence: flag > file > env var.
func resolveConfig(opts options) (config.OperationConfig, error) {
	var cfg config.OperationConfig
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.OperationConfig{}, err
		}
		cfg = loaded
	}

	if opts.token != "" {
		cfg.AccessToken = opts.token
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv(config.TokenEnv)
	}
	if opts.operation != "" {
		cfg.Operation = config.Operation(opts.operation)
	}

	return cfg.WithDefaults(), nil
}

func printSummary(w io.Writer, res *runner.RunResult) {
	fmt.Fprintf(w, "\n--- %s Summary ---\n", res.Operation)
	switch res.Operation {
	case config.Download:
		fmt.Fprintf(w, "Rows:        %d\n", len(res.Rows))
	case config.ListFolder:
		fmt.Fprintf(w, "Entries:     %d\n", len(res.Listing.Entries))
		fmt.Fprintf(w, "Has more:    %t\n", res.Listing.HasMore)
		for _, e := range res.Listing.Entries {
			fmt.Fprintf(w, "  %-7s %s\n", e.Tag, e.PathDisplay)
		}
	case config.Upload:
		fmt.Fprintf(w, "HTTP status: %d\n", res.StatusCode)
		if res.Upload != nil && res.Upload.Metadata != nil {
			fmt.Fprintf(w, "Uploaded:    %s (%d bytes)\n", res.Upload.Metadata.PathDisplay, res.Upload.Metadata.Size)
		}
	}
}
