package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bulkget/bulkget/internal/adapter/sqlite"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent download outcomes",
	Long:  `Show the most recent download outcomes recorded in the history database.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of records to show")
}

// historyPath resolves the history database location, defaulting to a file in
// the download directory.
func historyPath() string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return filepath.Join(cfg.Download.Directory, "bulkget.db")
}

func runHistory(cmd *cobra.Command, args []string) error {
	defer log.Sync()

	store, err := sqlite.Open(historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.RecentSummaries(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Println("no download history")
		return nil
	}

	for _, record := range records {
		cmd.Printf("%s  %-11s %10d bytes  status=%d resumed=%v  %s\n",
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.Outcome, record.Bytes, record.StatusCode, record.Resumed, record.URL)
		if record.Reason != "" {
			cmd.Printf("%43s%s\n", "", record.Reason)
		}
	}
	return nil
}
