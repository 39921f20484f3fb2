package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bulkget/bulkget/internal/config"
	"github.com/bulkget/bulkget/internal/logger"
)

var (
	cfgPath string
	cfg     *config.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bulkget",
	Short: "Concurrent batch HTTP downloader with resume support",
	Long: `bulkget fetches a list of remote resources concurrently, resumes
partially-downloaded files when the server supports ranged requests, and
reports a per-item outcome.

Configuration is loaded from a YAML file (--config), a .env file, or
BULKGET_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML configuration file")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(historyCmd)
}
