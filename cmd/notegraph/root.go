package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittclouds/notegraph/internal/config"
	"github.com/kittclouds/notegraph/internal/store"
	"github.com/kittclouds/notegraph/pkg/notes"
)

var (
	verbose  bool
	cfgFile  string
	dsn      string
	owner    int64
	logLevel string

	// Process-scoped handles, set up before any command runs.
	cfg     *config.Config
	db      *store.SQLiteStore
	service *notes.Service
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notegraph",
	Short: "A note graph kept in step with note content",
	Long: `notegraph stores notes in SQLite and derives a graph from their content:
#tags become tags, [[Title]] creates child notes and [text](uuid) becomes a cross link.
Deleting a note removes its subtree and tombstones every link that pointed into it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(config.CLIFlags{
			ConfigPath: cfgFile,
			DSN:        dsn,
			Owner:      owner,
			LogLevel:   logLevel,
		})
		if err != nil {
			return err
		}

		level, _ := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		db, err = store.NewSQLiteStoreWithDSN(cfg.DSN)
		if err != nil {
			return err
		}
		logger.Debug("store opened", "dsn", cfg.DSN, "owner", cfg.Owner)

		service = notes.NewService(db, notes.WithLogger(logger))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db == nil {
			return nil
		}
		return db.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if db != nil {
			db.Close()
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/notegraph/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dsn, "db", "", "SQLite database path or DSN")
	rootCmd.PersistentFlags().Int64Var(&owner, "owner", 0, "Owner whose notes to operate on")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
