package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gdex-tools/datahelp-router/internal/config"
	"github.com/gdex-tools/datahelp-router/internal/directory"
	"github.com/gdex-tools/datahelp-router/internal/logger"
	"github.com/gdex-tools/datahelp-router/internal/router"
)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
	log       = zap.NewNop()
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:     "datahelp-router",
	Short:   "Route help-desk tickets to dataset owners",
	Long:    `Drains the data help desk team queues in Jira, finds the dataset each ticket is about, and assigns the ticket to that dataset's owner with an internal note.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datahelp-router.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "human-readable debug logging")
}

// loadConfig loads and validates configuration. Commands that need JIRA access call this.
func loadConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'datahelp-router config' to set up credentials", err)
	}
	appConfig = cfg
	log.Debug("config loaded", zap.String("slot", cfg.Slot), zap.String("project", cfg.Project))
	return nil
}

func newDirectory() *directory.Client {
	return directory.New(directory.Options{
		URL:       appConfig.DirectoryURL,
		Timeout:   time.Duration(appConfig.TimeoutSeconds) * time.Second,
		RateLimit: appConfig.RateLimit,
	}, log)
}

// newRouter builds the router for one pass over a shared directory client.
func newRouter(dir router.Resolver, dryRun bool, workers int, afterKey string) *router.Router {
	if workers < 1 {
		workers = appConfig.Workers
	}
	opts := router.Options{
		Project:           appConfig.Project,
		ServiceQueue:      appConfig.ServiceQueue,
		CurationQueue:     appConfig.CurationQueue,
		ServiceDeskRole:   appConfig.ServiceDeskRole,
		CatchAll:          appConfig.CatchAll,
		FallbackPool:      appConfig.FallbackPool,
		EscalationContact: appConfig.EscalationContact,
		AfterKey:          afterKey,
		Workers:           workers,
		DryRun:            dryRun,
	}
	return router.New(dir, nil, opts, log)
}
