package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/pipeline"
)

// errCriticalFindings is returned under --fail-on-critical
var errCriticalFindings = errors.New("critical findings present")

var (
	outJSON        string
	runTimeout     time.Duration
	offline        bool
	noCache        bool
	failOnCritical bool
)

// interpretCmd represents the interpret command
var interpretCmd = &cobra.Command{
	Use:   "interpret <genotypes>",
	Short: "Interpret one normalized genotype file",
	Long: `Interpret reads a normalized genotype table (rsid, chromosome, position,
allele1, allele2), reconciles every catalog marker onto the forward strand and
evaluates every interpretation rule.

Palindromic markers are resolved through the Ensembl GRCh37 variation API
(cached between runs). With --offline only cached answers are used and
unresolved palindromic markers are reported as ambiguous.

Example:
  strandline interpret sample.tsv
  strandline interpret sample.tsv --json report.json
  strandline interpret sample.tsv --offline --json -`,
	Args: cobra.ExactArgs(1),
	RunE: runInterpret,
}

func init() {
	rootCmd.AddCommand(interpretCmd)

	interpretCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path, - for stdout (default: <output-dir>/<sample>.json)")
	interpretCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall timeout for the run")
	interpretCmd.Flags().BoolVar(&failOnCritical, "fail-on-critical", false, "exit non-zero when a critical finding is reported")
	addRunFlags(interpretCmd)
}

// addRunFlags registers the flags shared by interpret and batch
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&offline, "offline", false, "never query the strand provider; use cached answers only")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the strand-truth cache")
	cmd.Flags().Int("workers", 0, "marker reconciliation workers (default: number of CPUs)")
	cmd.Flags().String("cache-backend", "", "cache backend (memory, disk, sqlite)")
	cmd.Flags().String("output-dir", "", "directory for reports")
	cmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyRunFlags layers explicitly set run flags over the loaded config
func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if offline {
		cfg.Provider.Enabled = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("workers") {
		cfg.Concurrency.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("cache-backend") {
		cfg.Cache.Backend, _ = flags.GetString("cache-backend")
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("http-proxy") {
		cfg.Provider.HTTPProxy, _ = flags.GetString("http-proxy")
	}
	if flags.Changed("https-proxy") {
		cfg.Provider.HTTPSProxy, _ = flags.GetString("https-proxy")
	}
	cfg.Output.Verbose = viper.GetBool("output.verbose")
}

// runContext is cancelled by Ctrl-C or after timeout
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runInterpret(cmd *cobra.Command, args []string) (err error) {
	path := args[0]
	cfg := appConfig
	applyRunFlags(cmd, cfg)

	ctx, cancel := runContext(runTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Interpreting: %s\n", path)
		fmt.Fprintf(os.Stderr, "Provider: %v  Cache: %v (%s)\n", cfg.Provider.Enabled, cfg.Cache.Enabled, cfg.Cache.Backend)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("close pipeline", zap.Error(cerr))
		}
	}()

	report, err := p.InterpretFile(ctx, path)
	if err != nil {
		return fmt.Errorf("interpret failed: %w", err)
	}

	renderer := pipeline.NewRenderer(os.Stderr)
	switch outJSON {
	case "-":
		if err := renderer.WriteJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		renderer.RenderSummary(report)
	default:
		jsonPath := outJSON
		if jsonPath == "" {
			jsonPath = filepath.Join(cfg.Output.Dir, sanitizeFilename(report.Sample)+".json")
		}
		if err := renderer.RenderReport(report, jsonPath, cfg.Output.Verbose); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}

	if failOnCritical && len(report.Findings.CriticalFindings()) > 0 {
		return errCriticalFindings
	}
	return nil
}
