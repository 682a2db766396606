// Package cmd provides the CLI commands for buscador.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/buscador/internal/config"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
	"github.com/Aman-CERP/buscador/internal/extract"
	"github.com/Aman-CERP/buscador/internal/logging"
	"github.com/Aman-CERP/buscador/internal/search"
	"github.com/Aman-CERP/buscador/pkg/version"
)

// Command annotations read by the root pre-run hook.
const (
	// annotationSkipConfig marks commands that run without loading configuration.
	annotationSkipConfig = "buscador/skip-config"
	// annotationLogStderr marks commands whose logs are also written to stderr.
	annotationLogStderr = "buscador/log-stderr"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	debug      bool

	cfg            *config.Config
	loggingCleanup func()
}

// NewRootCmd creates the root command for the buscador CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "buscador",
		Short: "Full-text search over documents and database values",
		Long: `buscador builds one full-text index over a folder of documents
(PDF, Word, Excel, PowerPoint, text) and the text columns of a relational
database, then answers queries with highlighted snippets.

Configuration is read from buscador.yaml in the working directory, a .env
file and environment variables (INDEX_DIR, DOCUMENTS_DIR, DB_HOST, ...).`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("buscador version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = a.teardown

	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newFindCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMCPCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints structured errors for humans.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, berrors.FormatForCLI(err))
	}
	return err
}

// setup loads configuration and starts file logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationSkipConfig] == "true" {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := config.Load(wd, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if a.debug {
		logCfg.Level = "debug"
	}
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	logCfg.WriteToStderr = cmd.Annotations[annotationLogStderr] == "true"

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging is best effort: commands still run without a log file.
		slog.SetDefault(logging.Discard())
		return nil
	}
	a.loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("cli_started",
		slog.String("command", cmd.Name()),
		slog.String("version", version.Version),
		slog.String("log_file", logCfg.FilePath))
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.loggingCleanup != nil {
		slog.SetDefault(logging.Discard())
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
	return nil
}

// newEngine creates a query engine from the loaded configuration.
func (a *app) newEngine() *search.Engine {
	s := a.cfg.Search
	return search.NewEngine(search.Options{
		IndexDir:      a.cfg.Paths.IndexDir,
		MaxResults:    s.MaxResults,
		MaxFragments:  s.MaxFragments,
		FragmentSize:  s.FragmentSize,
		FallbackChars: s.FallbackSnippetChars,
	}, search.WithCache(s.CacheSize))
}

// newExtractor returns the extractor registry used for in-file matching.
func (a *app) newExtractor() *extract.Registry {
	return extract.NewRegistry()
}
