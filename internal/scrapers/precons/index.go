package precons

import (
	"errors"
	"fmt"
	"net/url"
	"precon-scraper/internal/components/telemetry"
	"precon-scraper/internal/store"
	"precon-scraper/pkg/htmlutil"
	"precon-scraper/pkg/textutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_index_parse       = "index.parse"
	report_index_parse_entry = "index.parse-entry"
)

// set groups and decklist groups are the direct children of the container
// that carry neither an id nor a class, the ones that do are layout.
const (
	DefaultSetGroupSelector      = "div.container > h4:not([id]):not([class])"
	DefaultDecklistGroupSelector = "div.container > ul:not([id]):not([class])"
	DefaultEntrySelector         = "li > a"
)

// ErrStructureMismatch is returned when the listing page does not pair every
// set group with exactly one decklist group.
var ErrStructureMismatch = errors.New("listing structure changed: set groups and decklist groups do not pair up")

type IndexOptions struct {
	SetGroupSelector      string
	DecklistGroupSelector string
	EntrySelector         string
}

func (o IndexOptions) withDefaults() IndexOptions {
	if o.SetGroupSelector == "" {
		o.SetGroupSelector = DefaultSetGroupSelector
	}
	if o.DecklistGroupSelector == "" {
		o.DecklistGroupSelector = DefaultDecklistGroupSelector
	}
	if o.EntrySelector == "" {
		o.EntrySelector = DefaultEntrySelector
	}
	return o
}

// IndexResult summarizes a single ParseIndex call.
type IndexResult struct {
	Sets  int
	Decks int
	// Duplicates is the amount of entries that were discarded because a deck
	// with the same name was already known.
	Duplicates int
}

// ParseSetHeading splits the text of a set group into the set code and its
// friendly name, ex. "Zendikar Rising Commander (znc)". text is expected to be
// parsed text, entities are not decoded again.
func ParseSetHeading(text string) store.Set {
	code := textutil.Parenthesized(text)
	name := textutil.RemoveParenthesized(text, code)
	return store.Set{
		ID:           strings.TrimSpace(code),
		FriendlyName: name,
	}
}

// ParseEntryType extracts the type from the text that follows an entry
// link, ex. " (Commander Deck, 100 cards)" -> "Commander Deck". Text without a
// parenthesized group yields an empty type.
func ParseEntryType(text string) string {
	return textutil.FirstListItem(textutil.Parenthesized(text))
}

// ParseIndex discovers sets, types and deck stubs on a listing page and adds
// them to s. base is the url of the listing page, deck links are resolved
// against it.
func ParseIndex(doc *goquery.Document, base *url.URL, s *store.Store, opts IndexOptions, tel telemetry.API) (IndexResult, error) {
	opts = opts.withDefaults()

	setGroups := doc.Find(opts.SetGroupSelector)
	decklistGroups := doc.Find(opts.DecklistGroupSelector)

	if setGroups.Length() != decklistGroups.Length() {
		err := fmt.Errorf(
			"%w (%d set groups, %d decklist groups)",
			ErrStructureMismatch,
			setGroups.Length(),
			decklistGroups.Length(),
		)
		tel.ReportBroken(report_index_parse, err, base.String())
		return IndexResult{}, err
	}

	var result IndexResult
	setGroups.Each(func(i int, setGroup *goquery.Selection) {
		set := ParseSetHeading(setGroup.Text())
		s.Sets.UpsertReplace(set)
		result.Sets++

		decklist := decklistGroups.Eq(i)
		anchors := htmlutil.GetAnchors(base, decklist.Find(opts.EntrySelector))
		for _, anchor := range anchors {
			typeId := ParseEntryType(htmlutil.NextSiblingText(anchor.Node))
			if typeId == "" {
				tel.ReportWarning(
					report_index_parse_entry,
					fmt.Errorf("entry has no type"),
					set.ID,
					anchor.Name,
				)
			}
			s.Type(typeId)

			sourceUrl := ""
			if anchor.Url != nil {
				sourceUrl = anchor.Url.String()
			} else {
				tel.ReportWarning(
					report_index_parse_entry,
					fmt.Errorf("entry has no link"),
					set.ID,
					anchor.Name,
				)
			}

			deck := &store.DeckEntry{
				ID:        strings.TrimSpace(anchor.Name),
				SetID:     set.ID,
				TypeID:    typeId,
				SourceURL: sourceUrl,
			}
			if !s.Decks.AddIfAbsent(deck) {
				tel.ReportDebug("duplicate deck entry", deck.ID, deck.SourceURL)
				result.Duplicates++
				continue
			}
			result.Decks++
		}
	})

	tel.ReportCount(report_index_parse, int64(result.Decks))
	return result, nil
}
