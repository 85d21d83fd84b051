package precons

import (
	"errors"
	"fmt"
	"net/url"
	"precon-scraper/internal/components/telemetry"
	"precon-scraper/internal/store"
	"precon-scraper/pkg/htmlutil"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_deck_parse_card = "deck.parse-card"
)

const (
	cardEntrySelector = ".card_entry"
	cardGroupClass    = "card_group"
	cardLinkSelector  = "a"

	// substituted for a missing or malformed card link so that its segments
	// still resolve.
	FallbackCardHref = "/err/000/_/_"
)

var (
	ErrNoCardEntries = errors.New("deck page has no card entries")
	ErrNoQuantity    = errors.New("card entry has no quantity")
	ErrNoCardLink    = errors.New("card entry has no card link")
)

var quantityRegex = regexp.MustCompile(`\d+`)

// IsCommanderType reports whether decks of this type list their commander as
// the first card entry.
func IsCommanderType(typeId string) bool {
	return strings.Contains(typeId, "Commander")
}

// ParseCardHref extracts the set code and the collector id from a card link
// shaped like "/card/{setCode}/{setId}/...". ok is false when href had to be
// replaced by FallbackCardHref.
func ParseCardHref(href string) (setCode, setId string, ok bool) {
	segments, ok := cardHrefSegments(href)
	if !ok {
		segments, _ = cardHrefSegments(FallbackCardHref)
	}
	return htmlutil.Decode(segments[2]), htmlutil.Decode(segments[3]), ok
}

func cardHrefSegments(href string) ([]string, bool) {
	if strings.TrimSpace(href) == "" {
		return nil, false
	}
	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	// percent escapes stay as they are, an escaped "/" must not split a segment
	segments := strings.Split(link.EscapedPath(), "/")
	if len(segments) < 4 || segments[2] == "" || segments[3] == "" {
		return nil, false
	}
	return segments, true
}

// ParseDeck extracts the cards of a deck page in page order. typeId is the
// type of the deck the page belongs to.
//
// The first card of a commander deck is its commander, it is marked as
// sideboard like every card inside a "Sideboard" card group.
func ParseDeck(doc *goquery.Document, typeId string, tel telemetry.API) ([]store.Card, error) {
	entries := doc.Find(cardEntrySelector)
	if entries.Length() == 0 {
		return nil, ErrNoCardEntries
	}

	pendingSideboard := IsCommanderType(typeId)

	cards := make([]store.Card, 0, entries.Length())
	for i := range entries.Nodes {
		entry := entries.Eq(i)

		card, err := parseCardEntry(entry, tel)
		if err != nil {
			return nil, fmt.Errorf("card entry %d: %w", i, err)
		}
		card.IsSideboard = pendingSideboard || inSideboardGroup(entry)
		pendingSideboard = false

		cards = append(cards, card)
	}

	return cards, nil
}

func inSideboardGroup(entry *goquery.Selection) bool {
	parent := entry.Parent()
	return parent.HasClass(cardGroupClass) &&
		strings.Contains(parent.Text(), "Sideboard")
}

func parseCardEntry(entry *goquery.Selection, tel telemetry.API) (store.Card, error) {
	text := entry.Text()

	quantityStr := quantityRegex.FindString(text)
	if quantityStr == "" {
		return store.Card{}, fmt.Errorf("%w: '%s'", ErrNoQuantity, htmlutil.CleanText(text))
	}
	quantity, err := strconv.Atoi(quantityStr)
	if err != nil {
		return store.Card{}, fmt.Errorf("%w: %w", ErrNoQuantity, err)
	}
	if quantity < 1 {
		return store.Card{}, fmt.Errorf("%w: '%s'", ErrNoQuantity, htmlutil.CleanText(text))
	}

	link := entry.Find(cardLinkSelector).First()
	if link.Length() == 0 {
		return store.Card{}, fmt.Errorf("%w: '%s'", ErrNoCardLink, htmlutil.CleanText(text))
	}

	name, _, _ := strings.Cut(link.Text(), "\n")
	name = strings.TrimSpace(name)

	href, _ := link.Attr("href")
	setCode, setId, ok := ParseCardHref(href)
	if !ok {
		tel.ReportWarning(
			report_deck_parse_card,
			fmt.Errorf("malformed card link, using %s", FallbackCardHref),
			name,
			href,
		)
	}

	return store.Card{
		Name:     name,
		SetCode:  setCode,
		SetID:    setId,
		Quantity: quantity,
	}, nil
}
