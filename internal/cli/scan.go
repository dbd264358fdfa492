package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dshills/vulnscan/internal/config"
	"github.com/dshills/vulnscan/internal/logging"
	"github.com/dshills/vulnscan/internal/output"
	"github.com/dshills/vulnscan/internal/providers"
	"github.com/dshills/vulnscan/internal/scan"
	"github.com/dshills/vulnscan/internal/source"
)

// Scan flags
var (
	flagInput          string
	flagRepoName       string
	flagProvider       string
	flagModel          string
	flagFormat         string
	flagOut            string
	flagFailOn         string
	flagConcurrency    int
	flagChunkSize      int
	flagChunkOverlap   int
	flagLargeFileLines int
	flagRules          string
	flagInclude        string
	flagExclude        string
	flagNoCache        bool
	flagRedact         bool
)

// newClient is swapped out in tests.
var newClient = providers.New

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagInput, "input", "", "Directory to scan or JSON file list (default: current directory)")
	cmd.Flags().StringVar(&flagRepoName, "repo-name", "", "Repository name recorded in the report (default: input directory name)")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (anthropic, openai, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (json, text, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 when a finding meets this severity (none, low, medium, high, critical)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum concurrent model calls")
	cmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "Maximum chunk size in bytes")
	cmd.Flags().IntVar(&flagChunkOverlap, "chunk-overlap", -1, "Bytes of the previous chunk repeated at the start of the next")
	cmd.Flags().IntVar(&flagLargeFileLines, "large-file-lines", 0, "Line count above which a file is scheduled first")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path (YAML or JSON)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "Include file globs (comma-separated, replaces config)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file globs (comma-separated, added to config)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Do not read or write the response cache")
	cmd.Flags().BoolVar(&flagRedact, "redact", false, "Mask secrets in reported code snippets")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagConcurrency > 0 {
		m["concurrency"] = strconv.Itoa(flagConcurrency)
	}
	if flagChunkSize > 0 {
		m["chunkSize"] = strconv.Itoa(flagChunkSize)
	}
	if flagChunkOverlap >= 0 {
		m["chunkOverlap"] = strconv.Itoa(flagChunkOverlap)
	}
	if flagLargeFileLines > 0 {
		m["largeFileLines"] = strconv.Itoa(flagLargeFileLines)
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	if flagRedact {
		m["privacy.redactSnippets"] = "true"
	}
	return m
}

func buildSourceOpts(cfg config.Config, logger hclog.Logger) source.Options {
	opts := source.Options{
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
		MaxFileBytes: cfg.MaxFileBytes,
		Logger:       logger,
	}
	if flagInclude != "" {
		opts.Include = splitComma(flagInclude)
	}
	if flagExclude != "" {
		opts.Exclude = append(append([]string(nil), opts.Exclude...), splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory or file list for vulnerabilities",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := flagInput
		if len(args) == 1 {
			if input != "" {
				return fmt.Errorf("pass the input either as an argument or with --input, not both")
			}
			input = args[0]
		}
		if input == "" {
			input = "."
		}

		cfg, err := config.Load(buildOverrides())
		if err != nil {
			fail(err)
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exitCode = runScan(ctx, cfg, input)
		return nil
	},
}

// runScan performs one scan and returns the process exit code.
func runScan(ctx context.Context, cfg config.Config, input string) int {
	logger := logging.New("vulnscan", cfg.LogLevel, os.Stderr)

	files, err := source.Load(input, buildSourceOpts(cfg, logger.Named("source")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}

	rules, err := scan.LoadRules(cfg.RulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
		return ExitAuthError
	}

	client, err := newClient(cfg.Provider, cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	opts := []scan.Option{scan.WithLogger(logger), scan.WithRules(rules)}
	if cfg.Cache.Enabled {
		c, err := openCache(cfg)
		if err != nil {
			logger.Warn("response cache unavailable", "error", err)
		} else {
			opts = append(opts, scan.WithCache(c))
		}
	}

	scanner, err := scan.New(client, cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	repoName := flagRepoName
	if repoName == "" {
		repoName = source.RepoName(input)
	}
	report, err := scanner.Scan(ctx, files, scan.Metadata{RepositoryName: repoName, ScanDate: time.Now()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	if err := output.WriteReport(report, cfg.Format, flagOut, cfg.Privacy.RedactSnippets); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return ExitRuntimeError
	}

	if scan.MeetsThreshold(report.Issues, cfg.FailOn) {
		return ExitFindings
	}
	return ExitSuccess
}

func init() {
	addScanFlags(scanCmd)
}
