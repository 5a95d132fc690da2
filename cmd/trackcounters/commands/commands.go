package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/taskmaster/trackcounters/internal/adapters/repository"
	"github.com/taskmaster/trackcounters/internal/application/services"
	"github.com/taskmaster/trackcounters/internal/infrastructure/config"
	"github.com/taskmaster/trackcounters/internal/infrastructure/logger"
	"github.com/taskmaster/trackcounters/internal/infrastructure/metrics"
	"github.com/taskmaster/trackcounters/internal/ports"
)

// Build information, overridden with -ldflags "-X ..."
var (
	BuildDate = "unknown"
	GitCommit = "development"
)

// NewRootCommand creates the root command with every subcommand attached
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trackcounters",
		Short:         "Backfill like/dislike counters in a tracks JSON file",
		Long:          `trackcounters makes sure every record in the "tracks" array of a JSON document has "likes" and "dislikes" counters, adding 0 where a counter is missing and leaving existing values alone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Optional config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewBackfillCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewBackfillCommand creates the backfill command
func NewBackfillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Add missing counters and overwrite the file",
		Long:  "Load the tracks file, add likes/dislikes = 0 where absent and write the document back to the same path (or --output).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Tracks JSON file")
	cmd.Flags().StringP("output", "o", "", "Write the result here instead of overwriting --file")
	cmd.Flags().Bool("atomic", false, "Write through a temp file and rename it over the target")
	cmd.Flags().Int("indent", 2, "Indentation width, 0 for compact output")

	return cmd
}

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report missing counters without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")
			asJSON, _ := cmd.Flags().GetBool("json")
			return runCheck(cmd, strict, asJSON)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Tracks JSON file")
	cmd.Flags().Bool("strict", false, "Fail when any track is missing a counter")
	cmd.Flags().Bool("json", false, "Print the report as JSON")

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print trackcounters version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s v%s\n", cfg.App.Name, cfg.App.Version)
			fmt.Fprintf(out, "Environment: %s\n", cfg.App.Environment)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			return nil
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadWithOptions(config.Options{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newRepository(cfg *config.Config, appLogger *logger.Logger) *repository.DocumentRepository {
	return repository.NewDocumentRepository(repository.FileOptions{
		InputPath:   cfg.Backfill.InputPath,
		OutputPath:  cfg.Backfill.OutputPath,
		AtomicWrite: cfg.Backfill.AtomicWrite,
		Indent:      cfg.Backfill.Indent,
		FilePerm:    os.FileMode(cfg.Backfill.FilePerm),
	}, appLogger)
}

// setup loads the configuration and the logger shared by every run command
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Infow("Starting trackcounters",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"command", cmd.Name(),
	)

	return cfg, appLogger, nil
}

func runBackfill(cmd *cobra.Command) error {
	cfg, appLogger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer appLogger.Close()

	var recorder *metrics.Recorder
	var runRecorder ports.RunRecorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		runRecorder = recorder
	}

	if cfg.Backfill.InPlace() && !cfg.Backfill.AtomicWrite {
		appLogger.WithPath(cfg.Backfill.InputPath).Debugw("Overwriting source in place, no backup is kept")
	}

	svc := services.NewBackfillService(newRepository(cfg, appLogger), runRecorder, appLogger)
	report, runErr := svc.Backfill(cmd.Context())

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			appLogger.WithPath(cfg.Metrics.TextfilePath).WithError(err).Warnw("Metrics not exported")
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tracks, %d updated (likes added: %d, dislikes added: %d)\n",
		cfg.Backfill.TargetPath(),
		report.TotalTracks,
		report.TracksChanged,
		report.LikesAdded,
		report.DislikesAdded,
	)
	return nil
}

func runCheck(cmd *cobra.Command, strict, asJSON bool) error {
	cfg, appLogger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer appLogger.Close()

	svc := services.NewBackfillService(newRepository(cfg, appLogger), nil, appLogger)
	report, err := svc.Check(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		out.Write(pretty.Pretty(data))
	} else {
		fmt.Fprintf(out, "File: %s\n", cfg.Backfill.InputPath)
		fmt.Fprintf(out, "Tracks: %d\n", report.TotalTracks)
		fmt.Fprintf(out, "Missing likes: %d\n", report.LikesAdded)
		fmt.Fprintf(out, "Missing dislikes: %d\n", report.DislikesAdded)
	}

	if strict && report.Changed() {
		return fmt.Errorf("%d of %d tracks are missing counters", report.TracksChanged, report.TotalTracks)
	}
	return nil
}
