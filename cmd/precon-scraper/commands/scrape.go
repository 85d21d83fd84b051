package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"precon-scraper/internal/components/telemetry"
	"precon-scraper/internal/pipeline"
	"precon-scraper/internal/scrapers/precons"
	"precon-scraper/internal/store"
	"precon-scraper/pkg/osutil"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	scrapeArgs Config
)

func init() {
	defaults := defaultConfig()
	flags := scrapeCmd.Flags()

	flags.StringVarP(&configPath, "config", "c", defaultConfigPath, "The json5 config file to read, a <name>.local.json5 next to it overrides it.")
	flags.StringVar(&scrapeArgs.SourceUrl, "sourceUrl", defaults.SourceUrl, "The listing page to scrape.")
	flags.StringVar(&scrapeArgs.OutDir, "outDir", defaults.OutDir, "The directory .dck files are written to.")
	flags.StringVar(&scrapeArgs.TempDir, "tempDir", defaults.TempDir, "The directory raw deck pages are cached in.")
	flags.BoolVar(&scrapeArgs.Clean, "clean", defaults.Clean, "Delete and recreate the temp and output directories before running.")
	flags.BoolVar(&scrapeArgs.Debug, "debug", defaults.Debug, "Print every parsed card to stdout.")
	flags.IntVar(&scrapeArgs.Concurrency, "concurrency", defaults.Concurrency, "The amount of decks handled at the same time.")
	flags.StringVar(&scrapeArgs.Timeout, "timeout", defaults.Timeout, "The timeout of a single page request.")
	flags.IntVar(&scrapeArgs.Retries, "retries", defaults.Retries, "How often a request that timed out or got a server error is retried.")
	flags.Float64Var(&scrapeArgs.Rate, "rate", defaults.Rate, "The maximum amount of requests per second.")

	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--config <precons.json5>] [--sourceUrl <url>] [--outDir <dir>] [--tempDir <dir>] [--clean] [--debug]",
	Short: "Scrapes the deck listing and writes one .dck file per deck.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(configPath, cmd.Flags().Changed("config"), cmd.Flags(), scrapeArgs)
		if err != nil {
			Fatal("invalid configuration", err)
		}

		for _, dir := range []string{cfg.TempDir, cfg.OutDir} {
			err := osutil.PrepareDir(dir, cfg.Clean)
			if err != nil {
				Fatal("failed to set up directory", err)
			}
		}

		timeout, _ := cfg.timeout()
		tel := telemetry.NewSlogAPI(nil)
		client, err := precons.NewClient(precons.ClientOptions{
			BaseUrl:           cfg.SourceUrl,
			Timeout:           timeout,
			Retries:           cfg.Retries,
			RequestsPerSecond: cfg.Rate,
		}, tel)
		if err != nil {
			Fatal("failed to initialize client", err)
		}

		out := cmd.OutOrStdout()
		opts := pipeline.Options{
			SourceUrl:   cfg.SourceUrl,
			TempDir:     cfg.TempDir,
			OutDir:      cfg.OutDir,
			Concurrency: cfg.Concurrency,
			Index: precons.IndexOptions{
				SetGroupSelector:      cfg.Selectors.SetGroup,
				DecklistGroupSelector: cfg.Selectors.DecklistGroup,
				EntrySelector:         cfg.Selectors.Entry,
			},
			Progress: out,
		}
		if cfg.Debug {
			opts.Debug = out
		}

		s := store.New()
		p := pipeline.New(client, s, opts, tel)

		t1 := time.Now()
		err = runStages(cmd.Context(), out, p)
		summary := p.Summary()
		if err != nil {
			printFailures(cmd, summary)
			Fatal("scrape failed", err)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		printSummary(cmd, s, summary)
	},
}

func runStages(ctx context.Context, out io.Writer, p *pipeline.Pipeline) error {
	fmt.Fprintln(out, "Reading deck index...")
	err := p.Index(ctx)
	if err != nil {
		return err
	}
	summary := p.Summary()
	fmt.Fprintf(out, "Found %d sets, %d types and %d decks.\n", summary.Sets, summary.Types, summary.Decks)

	fmt.Fprint(out, "Caching deck pages")
	err = p.Cache(ctx)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}

	fmt.Fprint(out, "Building decks")
	err = p.Build(ctx)
	fmt.Fprintln(out)
	return err
}

// writtenPerSet counts the decks of every set that made it through all stages.
func writtenPerSet(s *store.Store, summary pipeline.Summary) (map[string]int, int) {
	failed := map[string]bool{}
	for _, f := range summary.Failures {
		failed[f.DeckID] = true
	}

	perSet := map[string]int{}
	total := 0
	for _, deck := range s.Decks.All() {
		if failed[deck.ID] {
			continue
		}
		perSet[deck.SetID]++
		total++
	}
	return perSet, total
}

func printSummary(cmd *cobra.Command, s *store.Store, summary pipeline.Summary) {
	perSet, total := writtenPerSet(s, summary)

	sets := s.Sets.All()
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].ID < sets[j].ID
	})

	t := newTable(cmd)
	t.AppendHeader(table.Row{"Set", "Name", "Decks"})
	for _, set := range sets {
		t.AppendRow(table.Row{set.ID, set.FriendlyName, perSet[set.ID]})
	}
	t.AppendFooter(table.Row{"", "Total", total})
	t.Render()

	printFailures(cmd, summary)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fetched %d pages (%d already cached).\n", summary.Fetched, summary.Cached)
	fmt.Fprintf(
		out,
		"Processed %d decks with %d cards, %d failed (%d fetch, %d parse, %d write).\n",
		len(summary.Written),
		summary.Cards,
		len(summary.Failures),
		summary.FailureCount(pipeline.StageFetch),
		summary.FailureCount(pipeline.StageParse),
		summary.FailureCount(pipeline.StageWrite),
	)
}

func printFailures(cmd *cobra.Command, summary pipeline.Summary) {
	if len(summary.Failures) == 0 {
		return
	}
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Stage", "Deck", "Url", "Error"})
	for _, f := range summary.Failures {
		t.AppendRow(table.Row{f.Stage, f.DeckID, f.SourceURL, f.Err.Error()})
	}
	t.Render()
}
