package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"aimatrix/pkg/cache"
	"aimatrix/pkg/core"
	"aimatrix/pkg/reporter"
	"aimatrix/pkg/runlog"
	"aimatrix/pkg/suite"
	"aimatrix/pkg/system"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand() *cobra.Command {
	var (
		suitePath      string
		trials         int
		pause          time.Duration
		workers        int
		outputPath     string
		format         string
		provider       string
		modelName      string
		temperatures   string
		rateLimitRPS   float64
		rateLimitBurst int
		logDir         string
		noLog          bool
		useCache       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configuration matrix against a test suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveString(suitePath, appConfig.Suite)
			if path == "" {
				return errors.New("suite path is required")
			}
			formatResolved := resolveString(format, appConfig.Format)
			if formatResolved == "" {
				formatResolved = reporter.FormatTable
			}
			outputResolved := resolveString(outputPath, appConfig.Output)
			providerResolved := resolveString(provider, appConfig.Provider)
			if providerResolved == "" {
				providerResolved = "mock"
			}
			logDirResolved := resolveString(logDir, appConfig.LogDir)
			trialCount := resolveInt(trials, appConfig.Trials, 5)
			workerCount := resolveInt(workers, appConfig.Workers, 1)
			pauseResolved := pause
			if pauseResolved == 0 && appConfig.PauseMillis > 0 {
				pauseResolved = time.Duration(appConfig.PauseMillis) * time.Millisecond
			}

			configs, err := buildConfigs(appConfig.Configs, modelName, temperatures)
			if err != nil {
				return err
			}

			cases, err := suite.Load(path)
			if err != nil {
				return err
			}
			if appConfig.MathEval.Endpoint != "" {
				grader := system.NewMathEvalGrader(appConfig.MathEval.Endpoint, appConfig.MathEval.APIKey)
				attachGraders(cases, grader)
			}

			sys, err := buildSystem(providerResolved)
			if err != nil {
				return err
			}
			if useCache || appConfig.Cache.Enabled {
				sys, err = wrapWithCache(sys, appConfig.Cache)
				if err != nil {
					return err
				}
			}

			var limiter core.RateLimiter
			rps := rateLimitRPS
			if rps == 0 {
				rps = appConfig.RateLimitRPS
			}
			if rps > 0 {
				burst := rateLimitBurst
				if burst <= 0 {
					burst = resolveInt(appConfig.RateLimitBurst, 0, 1)
				}
				l, stop, err := core.NewRateLimiter(rps, burst)
				if err != nil {
					return err
				}
				limiter = l
				defer stop()
			}

			logger.Info("starting matrix run",
				zap.Int("configs", len(configs)),
				zap.Int("cases", len(cases)),
				zap.Int("trials", trialCount),
				zap.Int("workers", workerCount),
				zap.String("provider", providerResolved),
			)

			progress := newProgressBar(progressWriter(cmd), len(configs)*len(cases))
			progress.Update(0)

			runner := core.Runner{
				System:   sys,
				Trials:   trialCount,
				Pause:    pauseResolved,
				Workers:  workerCount,
				Limiter:  limiter,
				Progress: func(completed, total int) { progress.Update(completed) },
			}

			run, err := runner.Run(context.Background(), configs, cases)
			if err != nil {
				return err
			}

			writer := cmd.OutOrStdout()
			if outputResolved != "" {
				file, err := os.Create(outputResolved)
				if err != nil {
					return err
				}
				defer file.Close()
				writer = file
			}

			rep, err := buildReporter(formatResolved, writer)
			if err != nil {
				return err
			}
			if err := rep.Report(run); err != nil {
				return err
			}

			if !noLog {
				if logDirResolved == "" {
					logDirResolved = "./logs"
				}
				logPath, err := runlog.Write(logDirResolved, runlog.FromRun(run, trialCount, pauseResolved))
				if err != nil {
					return err
				}
				logger.Info("run log written", zap.String("path", logPath))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&suitePath, "suite", "", "path to the test suite file (json or jsonl)")
	cmd.Flags().IntVar(&trials, "trials", 0, "trials per (configuration, test case) pair")
	cmd.Flags().DurationVar(&pause, "pause", 0, "pause between consecutive trials of a pair")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent pairs (trials inside a pair stay sequential)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file path")
	cmd.Flags().StringVar(&format, "format", "", "output format (table, json, markdown, csv)")
	cmd.Flags().StringVar(&provider, "provider", "", "system provider (mock, openai, anthropic, gemini, compat)")
	cmd.Flags().StringVar(&modelName, "model", "", "model id for an ad-hoc matrix when no configs are declared")
	cmd.Flags().StringVar(&temperatures, "temperatures", "", "comma-separated temperatures for the ad-hoc matrix")
	cmd.Flags().Float64Var(&rateLimitRPS, "rate-limit-rps", 0, "max requests per second (0 = unlimited)")
	cmd.Flags().IntVar(&rateLimitBurst, "rate-limit-burst", 0, "rate limit burst size")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for run logs")
	cmd.Flags().BoolVar(&noLog, "no-log", false, "skip writing the run log")
	cmd.Flags().BoolVar(&useCache, "cache", false, "replay cached responses instead of live calls")

	return cmd
}

// buildConfigs resolves the matrix: the declared configs from the
// config file, or an ad-hoc one-model matrix spread over the given
// temperatures.
func buildConfigs(specs []ConfigSpec, modelName, temperatures string) ([]core.Configuration, error) {
	if len(specs) > 0 {
		configs := make([]core.Configuration, 0, len(specs))
		for i, spec := range specs {
			cfg, err := spec.Configuration()
			if err != nil {
				return nil, fmt.Errorf("configs[%d]: %w", i, err)
			}
			configs = append(configs, cfg)
		}
		return configs, nil
	}

	if modelName == "" {
		return nil, errors.New("no configurations: declare configs in the config file or pass --model")
	}
	if temperatures == "" {
		temperatures = "0.0"
	}
	var configs []core.Configuration
	for _, raw := range strings.Split(temperatures, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid temperature %q: %w", raw, err)
		}
		configs = append(configs, core.Configuration{
			ModelID:     modelName,
			Temperature: temp,
			OutputMode:  core.OutputFreeText,
		})
	}
	if len(configs) == 0 {
		return nil, errors.New("no temperatures given")
	}
	return configs, nil
}

func buildSystem(provider string) (core.System, error) {
	switch provider {
	case "mock":
		return &system.ScriptedSystem{NameValue: "mock"}, nil
	case "openai":
		sys, err := system.NewOpenAISystemFromEnv()
		if err != nil {
			return nil, err
		}
		applyProviderConfig(appConfig.OpenAI, &sys.Timeout, &sys.MaxRetries, &sys.Backoff)
		return sys, nil
	case "anthropic":
		sys, err := system.NewAnthropicSystemFromEnv()
		if err != nil {
			return nil, err
		}
		applyProviderConfig(appConfig.Anthropic, &sys.Timeout, &sys.MaxRetries, &sys.Backoff)
		return sys, nil
	case "gemini":
		sys, err := system.NewGeminiSystemFromEnv()
		if err != nil {
			return nil, err
		}
		applyProviderConfig(appConfig.Gemini, &sys.Timeout, &sys.MaxRetries, &sys.Backoff)
		return sys, nil
	case "compat":
		sys := system.NewCompatSystem(appConfig.Compat.BaseURL)
		compat := appConfig.Compat
		applyProviderConfig(ProviderConfig{
			TimeoutSeconds: compat.TimeoutSeconds,
			MaxRetries:     compat.MaxRetries,
			BackoffMillis:  compat.BackoffMillis,
		}, &sys.Timeout, &sys.MaxRetries, &sys.Backoff)
		return sys, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func applyProviderConfig(cfg ProviderConfig, timeout *time.Duration, maxRetries *int, backoff *time.Duration) {
	if cfg.TimeoutSeconds > 0 {
		*timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.MaxRetries > 0 {
		*maxRetries = cfg.MaxRetries
	}
	if cfg.BackoffMillis > 0 {
		*backoff = time.Duration(cfg.BackoffMillis) * time.Millisecond
	}
}

func wrapWithCache(sys core.System, cfg CacheConfig) (core.System, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "./.aimatrix-cache"
	}
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	store, err := cache.New(dir, ttl)
	if err != nil {
		return nil, err
	}
	return system.CachedSystem{System: sys, Cache: store}, nil
}

// attachGraders hooks the remote expression grader into every case
// that declares an expected evaluation result in its metadata.
func attachGraders(cases []core.TestCase, grader *system.MathEvalGrader) {
	for i := range cases {
		if expected, ok := cases[i].Metadata["evaluate_result"]; ok {
			cases[i].Validate = grader.Validator(expected)
		}
	}
}

func buildReporter(format string, writer io.Writer) (reporter.Reporter, error) {
	switch format {
	case reporter.FormatJSON:
		return reporter.JSONReporter{Writer: writer, Pretty: true}, nil
	case reporter.FormatTable:
		return reporter.TableReporter{Writer: writer}, nil
	case reporter.FormatMarkdown:
		return reporter.MarkdownReporter{Writer: writer}, nil
	case reporter.FormatCSV:
		return reporter.CSVReporter{Writer: writer}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

type progressBar struct {
	writer io.Writer
	total  int
	start  time.Time
	isTTY  bool
}

func newProgressBar(writer io.Writer, total int) *progressBar {
	return &progressBar{
		writer: writer,
		total:  total,
		start:  time.Now(),
		isTTY:  isTerminal(writer),
	}
}

func (p *progressBar) Update(completed int) {
	width := 30
	if p.total <= 0 {
		return
	}

	ratio := float64(completed) / float64(p.total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))

	bar := strings.Repeat("=", filled) + strings.Repeat(".", width-filled)
	percent := int(ratio * 100)
	elapsed := time.Since(p.start).Truncate(time.Second)

	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	line := fmt.Sprintf("[%s] %3d%% (%d/%d pairs) %s", barStyle.Render(bar), percent, completed, p.total, elapsed)
	if p.isTTY {
		fmt.Fprintf(p.writer, "\r%s", line)
	} else {
		fmt.Fprintf(p.writer, "%s\n", line)
	}

	if completed >= p.total {
		fmt.Fprintln(p.writer)
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func progressWriter(cmd *cobra.Command) io.Writer {
	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()

	if isTerminal(stderr) {
		return stderr
	}
	if isTerminal(stdout) {
		return stdout
	}
	return stderr
}

func resolveString(value string, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func resolveInt(value int, fallback int, defaultValue int) int {
	if value > 0 {
		return value
	}
	if fallback > 0 {
		return fallback
	}
	return defaultValue
}
