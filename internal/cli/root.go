package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/message-inserter/message-inserter/internal/config"
	"github.com/message-inserter/message-inserter/internal/logging"
)

// app carries the state shared by every command once flags are parsed.
type app struct {
	dbPath  string
	envFile string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "mi",
		Short: "Message Inserter - targeted popups, banners and inline messages for any site",
		Long: `Message Inserter serves popups, banners and inline messages into named
regions of your pages. Messages can be limited to page types, visit counts
and screen sizes, and visitors can dismiss them for a configurable time.

Single Go binary, embedded SQLite, configured through MI_* environment
variables or a .env file.

Running without a subcommand starts the server (same as 'mi serve').`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (default $MI_DB_PATH or ./message-inserter.db)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading MI_* variables")

	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newInitCmd(a),
		newCreateCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
		newStatusCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newStatsCmd(a),
		newSnippetCmd(a),
		newPreviewCmd(a),
		newTokenCmd(a),
	)

	return root
}

func Execute() error {
	return newRootCmd().Execute()
}

// setup loads configuration and builds the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	if a.dbPath == "" {
		a.dbPath = cfg.DBPath
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	a.logger = logger.With(zap.String("command", cmd.Name()))

	return nil
}
