package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/checkpoint"
	"github.com/ppiankov/qaverify/internal/evidence"
	"github.com/ppiankov/qaverify/internal/judge"
	"github.com/ppiankov/qaverify/internal/llm"
	"github.com/ppiankov/qaverify/internal/model"
	"github.com/ppiankov/qaverify/internal/pipeline"
	"github.com/ppiankov/qaverify/internal/throttle"
	"github.com/ppiankov/qaverify/internal/util"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify question/answer pairs against Wikipedia and append verdicts to a CSV",
	Long: `Verify reads an input CSV with id, question and Answers columns. Answers holds
zero or more candidate answers separated by ';'. Every (id, answer) pair is
looked up on Wikipedia, judged, and appended to the output CSV as soon as it
is done.

The output doubles as the resume ledger. Rerunning with the same files skips
every pair already recorded, so an interrupted run continues where it stopped.

Judges:
  heuristic  answer appears in the Wikipedia summary (supported) or not (unknown)
  oracle     an LLM reads the summary and answers SUPPORTED/UNSUPPORTED/UNKNOWN

Example:
  qaverify verify --input data/questions.csv
  qaverify verify --input data/questions.csv --output outputs/results.csv --sleep 500ms
  qaverify verify --input data/questions.csv --judge oracle --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	d := model.DefaultConfig()
	f := verifyCmd.Flags()

	// Files
	f.String("input", "", "input CSV with id, question and Answers columns (required)")
	f.String("output", d.Output, "output CSV; also the resume ledger")

	// Evidence flags
	f.Duration("sleep", d.Evidence.Delay, "fixed pause after each Wikipedia call")
	f.Int("max-summary-chars", d.Evidence.MaxChars, "truncate evidence text to this many characters")
	f.String("search-url", d.Evidence.SearchURL, "MediaWiki API endpoint")
	f.String("summary-url", d.Evidence.SummaryURL, "REST page summary prefix")
	f.Bool("respect-robots", d.Evidence.RespectRobots, "honor robots.txt crawl-delay of the evidence host")

	// HTTP flags
	f.Duration("timeout", d.HTTP.Timeout, "per-request timeout for Wikipedia calls")
	f.String("ua", d.HTTP.UserAgent, "HTTP User-Agent")
	f.Int("max-retries", d.HTTP.MaxRetries, "retries on HTTP 429")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	f.String("no-proxy", "", "comma-separated hosts that bypass the proxy")
	f.Float64("rps", d.RateLimiting.RequestsPerSecond, "max requests per second per host (0 disables)")

	// Judge flags
	f.String("judge", d.Judge.Strategy, "judge strategy (heuristic, oracle)")
	f.String("llm-provider", d.LLM.Provider, "LLM provider for the oracle judge (openai, anthropic, ollama)")
	f.String("llm-model", d.LLM.Model, "LLM model name (default: the provider's own)")
	f.Int("llm-max-tokens", d.LLM.MaxTokens, "max tokens of the oracle response")
	f.Bool("llm-preflight", d.LLM.Preflight, "check the LLM provider is reachable before reading input")

	f.Int("progress-every", d.Progress.Every, "log progress every N input rows (0 disables)")

	bindFlags(f, map[string]string{
		"input":             "input",
		"output":            "output",
		"sleep":             "evidence.delay",
		"max-summary-chars": "evidence.max_chars",
		"search-url":        "evidence.search_url",
		"summary-url":       "evidence.summary_url",
		"respect-robots":    "evidence.respect_robots",
		"timeout":           "http.timeout",
		"ua":                "http.user_agent",
		"max-retries":       "http.max_retries",
		"http-proxy":        "http.http_proxy",
		"https-proxy":       "http.https_proxy",
		"no-proxy":          "http.no_proxy",
		"rps":               "rate_limiting.requests_per_second",
		"judge":             "judge.strategy",
		"llm-provider":      "llm.provider",
		"llm-model":         "llm.model",
		"llm-max-tokens":    "llm.max_tokens",
		"llm-preflight":     "llm.preflight",
		"progress-every":    "progress.every",
	})
}

func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		_ = viper.BindPFlag(key, fs.Lookup(name))
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkConfig(cfg); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, verbose).With(slog.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return verify(ctx, cfg, logger)
}

// verify wires the components for one run. Configuration problems surface
// before the first row is read.
func verify(ctx context.Context, cfg *model.Config, logger *slog.Logger) error {
	limiter := throttle.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	wikiHTTP := newHTTPClient(cfg.HTTP, cfg.HTTP.Timeout, limiter)

	j, err := newJudge(ctx, cfg, limiter)
	if err != nil {
		return err
	}

	delay := cfg.Evidence.Delay
	if cfg.Evidence.RespectRobots {
		delay, err = robotsDelay(ctx, util.NewRobotsChecker(cfg.HTTP.UserAgent, wikiHTTP), cfg.Evidence, logger)
		if err != nil {
			return err
		}
	}

	store := checkpoint.NewStore(cfg.Output, cfg.UsesOracle())
	if err := store.Lock(); err != nil {
		return fmt.Errorf("lock output: %w", err)
	}
	defer func() { _ = store.Unlock() }()

	if err := store.EnsureInitialized(); err != nil {
		return fmt.Errorf("initialize output: %w", err)
	}
	if cfg.UsesOracle() && !store.HasColumn(model.ColumnJudgeOutput) {
		logger.Warn("existing output has no judge_output column; raw oracle output will not be recorded",
			slog.String("output", cfg.Output))
	}

	input, err := pipeline.OpenInput(cfg.Input)
	if err != nil {
		return err
	}
	defer func() { _ = input.Close() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  qaverify\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:      %s\n", cfg.Input)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", cfg.Output)
	fmt.Fprintf(os.Stderr, "  Judge:      %s\n", j.Name())
	fmt.Fprintf(os.Stderr, "  Delay:      %v\n", delay)
	fmt.Fprintf(os.Stderr, "  Max chars:  %d\n", cfg.Evidence.MaxChars)
	fmt.Fprintf(os.Stderr, "\n")

	wiki := evidence.NewWikipediaClient(wikiHTTP, evidence.ClientConfig{
		SearchURL:  cfg.Evidence.SearchURL,
		SummaryURL: cfg.Evidence.SummaryURL,
		UserAgent:  cfg.HTTP.UserAgent,
		MaxRetries: cfg.HTTP.MaxRetries,
	})

	driver := pipeline.NewDriver(wiki, j, store, pipeline.Options{
		Delay:         delay,
		MaxChars:      cfg.Evidence.MaxChars,
		ProgressEvery: cfg.Progress.Every,
		Output:        cfg.Output,
	}, logger)

	stats, runErr := driver.Run(ctx, input)
	pipeline.RenderSummary(os.Stdout, stats, cfg.Output)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("interrupted; rerun with the same input and output to resume",
				slog.Int("recorded", stats.Recorded))
		}
		return fmt.Errorf("verify: %w", runErr)
	}
	return nil
}

// newJudge builds the configured strategy. The oracle's client shares the
// limiter but keeps its own timeout. With llm.preflight set, an unreachable
// provider is a configuration error.
func newJudge(ctx context.Context, cfg *model.Config, limiter *throttle.Limiter) (judge.Judge, error) {
	var provider llm.Provider
	if cfg.UsesOracle() {
		llmCfg := llm.ConfigFromModel(cfg.LLM)
		llmCfg.HTTPClient = newHTTPClient(cfg.HTTP, time.Duration(cfg.LLM.Timeout)*time.Second, limiter)

		p, err := llm.NewProvider(llmCfg)
		if err != nil {
			return nil, apperr.NewConfiguration("llm", err.Error())
		}
		if cfg.LLM.Preflight && !p.IsAvailable(ctx) {
			return nil, apperr.NewConfiguration("llm", fmt.Sprintf("%s provider is not reachable", p.Name()))
		}
		provider = p
	}

	return judge.New(cfg.Judge.Strategy, provider, judge.OracleOptions{
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
}

// robotsDelay returns the larger of the configured delay and the evidence
// host's robots.txt crawl-delay. Disallow rules are logged but not enforced:
// Wikipedia disallows /w/ and /api/ for crawlers while its API etiquette
// permits identified clients on the same paths.
func robotsDelay(ctx context.Context, checker *util.RobotsChecker, ev model.EvidenceConfig, logger *slog.Logger) (time.Duration, error) {
	delay := ev.Delay
	for _, endpoint := range []string{ev.SearchURL, ev.SummaryURL} {
		allowed, crawlDelay, err := checker.CanFetch(ctx, endpoint)
		if err != nil {
			return 0, apperr.NewConfiguration("evidence", fmt.Sprintf("robots.txt check for %s: %v", endpoint, err))
		}
		if !allowed {
			logger.Warn("robots.txt disallows evidence endpoint for crawlers", slog.String("endpoint", endpoint))
		}
		if crawlDelay > delay {
			logger.Info("using robots.txt crawl-delay", slog.String("endpoint", endpoint), slog.Duration("delay", crawlDelay))
			delay = crawlDelay
		}
	}
	return delay, nil
}
