package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bulkget/bulkget/internal/adapter/sqlite"
	"github.com/bulkget/bulkget/internal/domain"
	"github.com/bulkget/bulkget/internal/service/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url...]",
	Short: "Download a batch of URLs concurrently",
	Long: `Download a batch of URLs concurrently into the destination directory.

URLs are taken from the arguments and/or from --input (one URL per line,
blank lines and lines starting with # are ignored). The filename of each
download is derived from the last path segment of its URL.

Partially-downloaded files are resumed when the server honors ranged
requests; files already fully present on disk are skipped.`,
	Example: `  # Download two files into the current directory
  bulkget fetch https://example.com/a.zip https://example.com/b.zip

  # Download a list of URLs with 8 parallel downloads and 3 retries
  bulkget fetch --input urls.txt --directory /data --concurrency 8 --retries 3

  # Disable resume and send a custom header
  bulkget fetch --no-resume --header "Authorization: Bearer token" https://example.com/a.zip`,
	Args: cobra.ArbitraryArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("input", "i", "", "file with one URL per line")
	fetchCmd.Flags().StringP("directory", "d", "", "destination directory (overrides config)")
	fetchCmd.Flags().Int("concurrency", 0, "maximum parallel downloads (overrides config)")
	fetchCmd.Flags().Int("retries", -1, "maximum retries per request (overrides config)")
	fetchCmd.Flags().Bool("no-resume", false, "disable resuming of partial downloads")
	fetchCmd.Flags().StringArray("header", nil, `default request header as "Name: value" (repeatable)`)
}

func runFetch(cmd *cobra.Command, args []string) error {
	defer log.Sync()

	urls := args
	if input, _ := cmd.Flags().GetString("input"); input != "" {
		fromFile, err := readURLFile(input)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return errors.New("no URLs given: pass them as arguments or via --input")
	}

	downloads := make([]domain.Download, 0, len(urls))
	for _, raw := range urls {
		download, err := domain.ParseDownload(raw)
		if err != nil {
			return err
		}
		downloads = append(downloads, download)
	}

	fetcherCfg, err := buildFetcherConfig(cmd)
	if err != nil {
		return err
	}

	f, err := fetcher.New(fetcherCfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting batch",
		zap.Int("downloads", len(downloads)),
		zap.String("directory", fetcherCfg.Directory),
		zap.Int("concurrency", fetcherCfg.Concurrency))

	summaries := f.Download(ctx, downloads)

	if cfg.History.Enabled {
		recordHistory(summaries)
	}

	return printReport(cmd, summaries)
}

// buildFetcherConfig merges the loaded configuration with flag overrides.
func buildFetcherConfig(cmd *cobra.Command) (*fetcher.Config, error) {
	fetcherCfg := fetcher.DefaultConfig()
	fetcherCfg.Directory = cfg.Download.Directory
	fetcherCfg.Concurrency = cfg.Download.Concurrency
	fetcherCfg.Retries = cfg.Download.Retries
	fetcherCfg.Resume = cfg.Download.Resume
	fetcherCfg.ProxyURL = cfg.Download.Proxy
	fetcherCfg.BufferSize = cfg.Download.GetBufferSize()
	fetcherCfg.ProgressInterval = cfg.Download.GetProgressInterval()

	headers := http.Header{}
	for name, value := range cfg.Download.Headers {
		headers.Set(name, value)
	}

	if directory, _ := cmd.Flags().GetString("directory"); directory != "" {
		fetcherCfg.Directory = directory
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency != 0 {
		fetcherCfg.Concurrency = concurrency
	}
	if retries, _ := cmd.Flags().GetInt("retries"); retries >= 0 {
		fetcherCfg.Retries = retries
	}
	if noResume, _ := cmd.Flags().GetBool("no-resume"); noResume {
		fetcherCfg.Resume = false
	}

	headerFlags, _ := cmd.Flags().GetStringArray("header")
	if err := parseHeaderFlags(headers, headerFlags); err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		fetcherCfg.Headers = headers
	}

	return fetcherCfg, nil
}

// parseHeaderFlags adds "Name: value" flag values to headers.
func parseHeaderFlags(headers http.Header, flags []string) error {
	for _, flag := range flags {
		name, value, ok := strings.Cut(flag, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid header %q, expected \"Name: value\"", flag)
		}
		headers.Add(name, strings.TrimSpace(value))
	}
	return nil
}

// readURLFile reads one URL per line, ignoring blanks and # comments.
func readURLFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}
	return urls, nil
}

// recordHistory saves terminal summaries to the history store. History is
// best effort and never fails the batch.
func recordHistory(summaries []*domain.Summary) {
	store, err := sqlite.Open(historyPath())
	if err != nil {
		log.Warn("failed to open history store", zap.Error(err))
		return
	}
	defer store.Close()

	for _, summary := range summaries {
		if err := store.SaveSummary(summary); err != nil {
			log.Warn("failed to record summary",
				zap.String("url", summary.Download.URL.String()),
				zap.Error(err))
		}
	}
}

func printReport(cmd *cobra.Command, summaries []*domain.Summary) error {
	var success, skipped, failed int
	for _, summary := range summaries {
		switch summary.Outcome.Kind() {
		case domain.OutcomeSuccess:
			success++
			cmd.Printf("ok       %s (%d bytes, resumed=%v)\n",
				summary.Download.Filename, summary.Bytes, summary.Resumed)
		case domain.OutcomeSkipped:
			skipped++
			cmd.Printf("skipped  %s (%s)\n", summary.Download.Filename, summary.Outcome.Reason())
		default:
			failed++
			cmd.Printf("failed   %s: %s\n", summary.Download.Filename, summary.Outcome.Reason())
		}
	}
	cmd.Printf("%d succeeded, %d skipped, %d failed\n", success, skipped, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(summaries))
	}
	return nil
}
