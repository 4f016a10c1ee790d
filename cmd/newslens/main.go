package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"NewsLens/internal/app"
	"NewsLens/internal/config"
	"NewsLens/internal/domain"
	"NewsLens/internal/logging"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "newslens",
		Short:         "Personalized, topic-diversified news ranking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default $NEWSLENS_CONFIG)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(rankCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(importCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("close application", "error", cerr)
		}
	}()

	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve the HTTP API and run scheduled enrichment passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx)
			})
		},
	}
}

func enrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Run one enrichment pass over the pending queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Enrichment.RunPass(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d queued, %d enriched, %d skipped, %d failed in %s\n",
					report.RunID, report.Queued, report.Enriched, report.Skipped, report.Failed, report.Duration)
				return nil
			})
		},
	}
}

func rankCmd() *cobra.Command {
	var (
		userID  int64
		limit   int
		asJSON  bool
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the ranked digest for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if explain {
					ranked, err := a.Ranking.RankForUser(ctx, userID, limit)
					if err != nil {
						return err
					}
					return printRanked(cmd, ranked, asJSON)
				}

				digest, err := a.Ranking.Digest(ctx, userID, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(digest)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SCORE\tITEM\tSOURCE\tTITLE")
				for _, d := range digest {
					fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\n", d.Score, d.ItemID, d.Source, d.Title)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of items (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "show score components; ignores pause")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printRanked(cmd *cobra.Command, ranked []domain.RankedCandidate, asJSON bool) error {
	type row struct {
		ItemID   string  `json:"item_id"`
		Final    float64 `json:"final"`
		Profile  float64 `json:"profile"`
		Quality  float64 `json:"quality"`
		Feedback float64 `json:"feedback"`
		Base     float64 `json:"base"`
		Title    string  `json:"title"`
	}
	rows := make([]row, 0, len(ranked))
	for _, c := range ranked {
		rows = append(rows, row{
			ItemID:   c.Item.ID,
			Final:    c.FinalScore,
			Profile:  c.ProfileRelevance,
			Quality:  c.QualityComposite,
			Feedback: c.FeedbackAdjustment,
			Base:     c.BaseTerm,
			Title:    c.Item.Title,
		})
	}
	if asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINAL\tPROFILE\tQUALITY\tFEEDBACK\tBASE\tITEM\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%s\t%s\n",
			r.Final, r.Profile, r.Quality, r.Feedback, r.Base, r.ItemID, r.Title)
	}
	return tw.Flush()
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [tag...]",
		Short: "Canonicalize topic tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SURFACE\tCANONICAL\tFAMILY\tCONFIDENCE")
				for _, tag := range args {
					res := a.Topics.Resolve(ctx, tag)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", tag, res.Canonical, res.Family, res.Confidence)
				}
				return tw.Flush()
			})
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import items from a JSON array and queue them for enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				n, err := a.Catalog.Import(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d items\n", n)
				return nil
			})
		},
	}
}
