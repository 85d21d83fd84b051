// Package pipeline runs a full scrape: index -> page cache -> deck files.
//
// Stages run one after another, entries within a stage are processed by a
// bounded pool of workers. A deck that fails in one stage is skipped by the
// following ones, it never fails the whole run.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"precon-scraper/internal/components/assert"
	"precon-scraper/internal/components/telemetry"
	"precon-scraper/internal/dck"
	"precon-scraper/internal/pagecache"
	"precon-scraper/internal/scrapers/precons"
	"precon-scraper/internal/store"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const (
	report_pipeline_index = "pipeline.index"
	report_pipeline_cache = "pipeline.cache"
	report_pipeline_build = "pipeline.build"
)

const (
	DefaultConcurrency = 4
	MaxConcurrency     = 16
)

// Client is what the pipeline needs from the http side.
type Client interface {
	pagecache.Fetcher
	FetchDocument(ctx context.Context, link string) (*goquery.Document, error)
}

type Options struct {
	SourceUrl   string
	TempDir     string
	OutDir      string
	Concurrency int
	Index       precons.IndexOptions

	// Progress receives a "." for every deck handled by a stage, nil
	// disables it.
	Progress io.Writer
	// Debug receives one line for every parsed card, nil disables it.
	Debug io.Writer
}

type Stage string

const (
	StageFetch Stage = "fetch"
	StageParse Stage = "parse"
	StageWrite Stage = "write"
)

// Failure is a deck that was skipped.
type Failure struct {
	Stage     Stage
	DeckID    string
	SourceURL string
	Err       error
}

type Summary struct {
	Sets       int
	Types      int
	Decks      int
	Duplicates int

	// Fetched is the amount of pages downloaded, Cached the amount that were
	// already on disk.
	Fetched int
	Cached  int
	Cards   int
	Written []string

	Failures []Failure
}

func (s Summary) FailureCount(stage Stage) int {
	n := 0
	for _, f := range s.Failures {
		if f.Stage == stage {
			n++
		}
	}
	return n
}

type Pipeline struct {
	client Client
	store  *store.Store
	cache  pagecache.Cache
	opts   Options
	tel    telemetry.API

	mutex   sync.Mutex
	summary Summary
	failed  map[string]bool
}

func New(client Client, s *store.Store, opts Options, tel telemetry.API) *Pipeline {
	assert.NotNil(client)
	assert.NotNil(s)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.TempDir)
	assert.NotEmptyStr(opts.OutDir)

	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	assert.InRange("concurrency", opts.Concurrency, 1, MaxConcurrency)

	return &Pipeline{
		client: client,
		store:  s,
		cache:  pagecache.New(opts.TempDir, client, tel),
		opts:   opts,
		tel:    telemetry.NewScopedAPI("pipeline", tel),
		failed: map[string]bool{},
	}
}

// Run executes every stage, the returned error is only non-nil when the run
// could not continue at all (the listing is unreachable, its structure
// changed or ctx was cancelled).
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	err := p.Index(ctx)
	if err != nil {
		return p.Summary(), err
	}
	err = p.Cache(ctx)
	if err != nil {
		return p.Summary(), err
	}
	err = p.Build(ctx)
	return p.Summary(), err
}

func (p *Pipeline) Summary() Summary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	summary := p.summary
	summary.Written = append([]string(nil), p.summary.Written...)
	summary.Failures = append([]Failure(nil), p.summary.Failures...)
	return summary
}

// Index fetches the listing page and fills the store.
func (p *Pipeline) Index(ctx context.Context) error {
	base, err := url.Parse(p.opts.SourceUrl)
	if err != nil {
		return fmt.Errorf("parse source url: %w", err)
	}

	doc, err := p.client.FetchDocument(ctx, p.opts.SourceUrl)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_index, err, p.opts.SourceUrl)
		return fmt.Errorf("fetch listing: %w", err)
	}

	result, err := precons.ParseIndex(doc, base, p.store, p.opts.Index, p.tel)
	if err != nil {
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.summary.Sets = p.store.Sets.Len()
	p.summary.Types = p.store.Types.Len()
	p.summary.Decks = p.store.Decks.Len()
	p.summary.Duplicates += result.Duplicates
	return nil
}

// Cache downloads the page of every deck that isn't cached yet.
func (p *Pipeline) Cache(ctx context.Context) error {
	return p.forEachDeck(ctx, func(ctx context.Context, deck *store.DeckEntry) {
		_, fetched, err := p.cache.Ensure(ctx, deck)
		if err != nil {
			p.fail(StageFetch, deck, err)
			return
		}

		p.mutex.Lock()
		defer p.mutex.Unlock()
		if fetched {
			p.summary.Fetched++
		} else {
			p.summary.Cached++
		}
	})
}

// Build parses every cached deck page and writes its deck file.
func (p *Pipeline) Build(ctx context.Context) error {
	return p.forEachDeck(ctx, func(ctx context.Context, deck *store.DeckEntry) {
		contents, err := p.cache.Read(deck)
		if err != nil {
			p.fail(StageParse, deck, fmt.Errorf("read cached page: %w", err))
			return
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(contents))
		if err != nil {
			p.fail(StageParse, deck, err)
			return
		}

		cards, err := precons.ParseDeck(doc, deck.TypeID, p.tel)
		if err != nil {
			p.fail(StageParse, deck, err)
			return
		}
		deck.AddCards(cards...)
		p.debugCards(deck, cards)

		path, err := dck.Write(p.opts.OutDir, p.store, deck)
		if err != nil {
			p.fail(StageWrite, deck, err)
			return
		}

		p.mutex.Lock()
		defer p.mutex.Unlock()
		p.summary.Cards += len(cards)
		p.summary.Written = append(p.summary.Written, path)
	})
}

// forEachDeck runs fn for every deck that has not failed yet. Every deck is
// handled by exactly one worker, so fn may mutate the deck it is given.
func (p *Pipeline) forEachDeck(ctx context.Context, fn func(ctx context.Context, deck *store.DeckEntry)) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Concurrency)

	for _, deck := range p.store.Decks.All() {
		if p.hasFailed(deck) {
			continue
		}
		if groupCtx.Err() != nil {
			break
		}

		deck := deck
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			fn(groupCtx, deck)
			p.progress()
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return err
	}
	// the group context is always cancelled once Wait returns, only the
	// caller's context says whether the run was interrupted.
	return ctx.Err()
}

func (p *Pipeline) hasFailed(deck *store.DeckEntry) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.failed[deck.ID]
}

func (p *Pipeline) fail(stage Stage, deck *store.DeckEntry, err error) {
	id := report_pipeline_build
	if stage == StageFetch {
		id = report_pipeline_cache
	}
	p.tel.ReportBroken(id, err, string(stage), deck.ID, deck.SourceURL)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.failed[deck.ID] = true
	p.summary.Failures = append(p.summary.Failures, Failure{
		Stage:     stage,
		DeckID:    deck.ID,
		SourceURL: deck.SourceURL,
		Err:       err,
	})
}

func (p *Pipeline) progress() {
	if p.opts.Progress == nil {
		return
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprint(p.opts.Progress, ".")
}

func (p *Pipeline) debugCards(deck *store.DeckEntry, cards []store.Card) {
	if p.opts.Debug == nil {
		return
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, c := range cards {
		fmt.Fprintf(p.opts.Debug, "%s: %s\n", deck.ID, dck.RenderCard(c))
	}
}
