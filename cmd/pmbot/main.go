package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pm-bot/backend/internal/config"
	"pm-bot/backend/internal/database"
	"pm-bot/backend/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pmbot",
	Short: "pm-bot - task tracking API with a chat front end",
	Long: `pm-bot serves a small task tracking API, answers chat mentions such as
"assign @bob to 'Write report' due tomorrow 5pm", and periodically flags
overdue tasks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, chat webhook, reminder scan and worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		app, err := server.New(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(pool.DB); err != nil {
			return err
		}
		logger.Info("schema migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo project and user",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(pool.DB); err != nil {
			return err
		}
		if err := database.Seed(pool.DB); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Seeded demo project #1 and user #1.")
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one overdue/due-soon scan and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := server.New(cfg, logger)
		if err != nil {
			return err
		}
		defer app.Shutdown(context.Background())

		result, err := app.Reminders().Scan(cmd.Context())
		if result != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "overdue=%d due_soon=%d marked=%d\n",
				len(result.Overdue), len(result.DueSoon), result.Marked)
		}
		return err
	},
}

func openPool() (*database.DatabasePool, error) {
	config := database.DefaultPoolConfig()
	config.URL = cfg.Database.URL
	config.Logger = logger
	return database.NewDatabasePool(config)
}

// newLogger uses zap's production config in production and the development
// config everywhere else.
func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Environment)), nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, scanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
