package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/autorevd/autorev/internal/analysis"
	_ "github.com/autorevd/autorev/internal/analysis/anthropic"
	_ "github.com/autorevd/autorev/internal/analysis/openai"
	"github.com/autorevd/autorev/internal/config"
	"github.com/autorevd/autorev/internal/instructions"
	"github.com/autorevd/autorev/internal/review"
	"github.com/autorevd/autorev/internal/vcs"
	_ "github.com/autorevd/autorev/internal/vcs/github"
)

func init() {
	rootCmd.AddCommand(newReviewCmd())
}

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [pr-number]",
		Short: "Review a pull request and publish findings",
		Example: "  autorev review 42 --repo my-org/my-project\n" +
			"  autorev review --repo my-org/my-project          # resolve PR from the current branch\n" +
			"  autorev review 42 --repo my-org/my-project --dry-run --provider anthropic",
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fatal("failed to load configuration: %v", err)
			}
			applyFlags(cmd, cfg)

			var number int64
			if len(args) == 1 {
				number, err = strconv.ParseInt(args[0], 10, 64)
				if err != nil || number <= 0 {
					fatal("invalid pull request number %q", args[0])
				}
			}

			if cfg.Repo == "" {
				fatal("no repository configured (use --repo or AUTOREV_REPO)")
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			summaryOnly, _ := cmd.Flags().GetBool("summary-only")

			platform, err := vcs.Get(cfg.VCS, cfg.Token, cfg.BaseURL)
			if err != nil {
				fatal("%v", err)
			}

			analyzer, err := analysis.Get(cfg.Provider, cfg.ProviderConfig(cfg.Provider))
			if err != nil {
				fatal("%v", err)
			}

			ctx := context.Background()
			if cfg.RunTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
				defer cancel()
			}

			if err := preflight(ctx, platform, analyzer); err != nil {
				fatal("%v", err)
			}

			cs, err := review.ResolveChangeSet(ctx, platform, cfg.Repo, number, cfg.RepoRoot)
			if err != nil {
				fatal("%v", err)
			}
			fmt.Printf("Reviewing PR #%d: %s (%s -> %s)\n",
				cs.Number, cs.Title, cs.HeadBranch, cs.BaseBranch)

			pipeline := &review.Pipeline{
				VCS:          platform,
				Analyzer:     analyzer,
				Instructions: instructions.Load(cfg.InstructionsPath, cfg.RepoRoot),
				Concurrency:  cfg.Concurrency,
				FileTimeout:  cfg.FileTimeout,
				Exclude:      cfg.Exclude,
				Debug:        cfg.Debug,
			}

			var spin *spinner.Spinner
			if !cfg.Debug {
				spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				spin.Suffix = " analyzing changed files..."
				pipeline.OnProgress = func(stage string, current, total int) {
					if total > 0 {
						spin.Suffix = fmt.Sprintf(" %s (%d/%d)", stage, current, total)
					}
				}
				spin.Start()
			}

			report, err := pipeline.Run(ctx, cfg.Repo, cs)
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				fatal("%v", err)
			}

			publisher := &review.Publisher{
				VCS:         platform,
				Verbosity:   cfg.Verbosity,
				SummaryOnly: summaryOnly,
			}

			if dryRun {
				printDryRun(os.Stdout, publisher, report)
				return
			}

			result, err := publisher.Publish(ctx, cfg.Repo, report)
			if err != nil {
				// The line comments that succeeded stay; only the summary
				// failed. Not a fatal resolution/load failure, so exit 0.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			fmt.Printf("Posted %d line comment(s).\n", result.LineComments)
			if result.FailedPosts > 0 {
				fmt.Printf("%d post(s) failed; see warnings above.\n", result.FailedPosts)
			}
			if result.HasBlocking {
				fmt.Println("Blocking issues were found.")
			}
		},
	}

	cmd.Flags().Bool("dry-run", false, "Print the review without posting to the platform")
	cmd.Flags().Bool("summary-only", false, "Post only the summary comment, no line comments")
	cmd.Flags().String("repo", "", "Target repository as owner/name (or AUTOREV_REPO)")
	cmd.Flags().String("vcs", "", "Platform provider (default: github)")
	cmd.Flags().String("token", "", "Platform token (or GITHUB_TOKEN)")
	cmd.Flags().String("provider", "", "Analysis provider: openai, anthropic (default: openai)")
	cmd.Flags().String("verbosity", "", "Review verbosity: minimal, normal, detailed")
	cmd.Flags().Int("concurrency", 0, "Number of files analyzed in parallel")
	cmd.Flags().Duration("file-timeout", 0, "Timeout for a single file's analysis")
	cmd.Flags().Duration("run-timeout", 0, "Timeout for the whole run")
	cmd.Flags().String("exclude", "", "Comma-separated deny-list override for excluded paths")
	cmd.Flags().String("instructions", "", "Path to a review-instructions file")
	cmd.Flags().Bool("debug", false, "Enable debug logging")

	return cmd
}

// applyFlags overlays explicitly-set CLI flags onto the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if s, _ := cmd.Flags().GetString("repo"); s != "" {
		cfg.Repo = s
	}
	if s, _ := cmd.Flags().GetString("vcs"); s != "" {
		cfg.VCS = s
	}
	if s, _ := cmd.Flags().GetString("token"); s != "" {
		cfg.Token = s
	}
	if s, _ := cmd.Flags().GetString("provider"); s != "" {
		cfg.Provider = s
	}
	if s, _ := cmd.Flags().GetString("verbosity"); s != "" {
		cfg.Verbosity = s
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Concurrency = n
	}
	if d, _ := cmd.Flags().GetDuration("file-timeout"); d > 0 {
		cfg.FileTimeout = d
	}
	if d, _ := cmd.Flags().GetDuration("run-timeout"); d > 0 {
		cfg.RunTimeout = d
	}
	if s, _ := cmd.Flags().GetString("exclude"); s != "" {
		cfg.Exclude = splitCSV(s)
	}
	if s, _ := cmd.Flags().GetString("instructions"); s != "" {
		cfg.InstructionsPath = s
	}
	if b, _ := cmd.Flags().GetBool("debug"); b {
		cfg.Debug = true
	}
}

// preflight fails fast on configuration problems (missing token, bad
// API key) before anything touches the platform.
func preflight(ctx context.Context, platform vcs.Provider, analyzer analysis.Provider) error {
	if err := platform.Validate(); err != nil {
		return err
	}
	return analyzer.Validate(ctx)
}

// printDryRun renders exactly what a real run would post: the same
// verbosity gate applies to the previewed line comments.
func printDryRun(w io.Writer, publisher *review.Publisher, report *review.RunReport) {
	fmt.Fprintln(w, "--- dry run: nothing will be posted ---")
	for _, fr := range report.Files {
		for _, f := range fr.Findings {
			if !publisher.Publishable(f.Kind) || !f.Anchored() {
				continue
			}
			fmt.Fprintf(w, "\n%s:%d (position %d)\n%s %s\n", fr.Path, f.Line, f.Position, f.Kind.Marker(), f.Message)
			if f.Suggestion != "" {
				fmt.Fprintf(w, "  suggestion:\n%s\n", f.Suggestion)
			}
		}
	}
	fmt.Fprintln(w, "\n--- summary comment ---")
	fmt.Fprintln(w, publisher.BuildSummary(report))
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
