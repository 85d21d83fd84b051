package precons

import (
	"errors"
	"precon-scraper/internal/components/telemetry"
	"precon-scraper/internal/store"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseCardHref(t *testing.T) {
	cases := []struct {
		href        string
		expectCode  string
		expectId    string
		expectValid bool
	}{
		{href: "/card/znr/199/Llanowar-Elves", expectCode: "znr", expectId: "199", expectValid: true},
		{href: "https://mtg.wtf/card/c21/12a/Foo", expectCode: "c21", expectId: "12a", expectValid: true},
		{href: "/card/znr/199", expectCode: "znr", expectId: "199", expectValid: true},
		{href: "/card/p%26f/7/Foo", expectCode: "p%26f", expectId: "7", expectValid: true},
		{href: "/card/a%2Fb/12%E2%98%85/Foo", expectCode: "a%2Fb", expectId: "12%E2%98%85", expectValid: true},
		{href: "/card/c&amp;d/3/Foo", expectCode: "c&d", expectId: "3", expectValid: true},
		{href: "", expectCode: "000", expectId: "_", expectValid: false},
		{href: "/card/zn", expectCode: "000", expectId: "_", expectValid: false},
		{href: "/card//1/Foo", expectCode: "000", expectId: "_", expectValid: false},
	}

	for _, test := range cases {
		code, id, ok := ParseCardHref(test.href)
		require.Equal(t, test.expectCode, code, test.href)
		require.Equal(t, test.expectId, id, test.href)
		require.Equal(t, test.expectValid, ok, test.href)
	}
}

func TestParseDeckCommander(t *testing.T) {
	doc := loadDocument(t, "deck_commander.html")

	cards, err := ParseDeck(doc, "Commander Deck", telemetry.NewTestAPI())
	require.NoError(t, err)

	expected := []store.Card{
		{Name: "Anowon, the Ruin Thief", SetCode: "znc", SetID: "2", Quantity: 1, IsSideboard: true},
		{Name: "Brushfield Sighting", SetCode: "znr", SetID: "161", Quantity: 1},
		{Name: "Llanowar Elves", SetCode: "znr", SetID: "199", Quantity: 2},
		{Name: "Island", SetCode: "znr", SetID: "278", Quantity: 30},
	}
	if diff := cmp.Diff(expected, cards); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseDeckNonCommanderFirstCard(t *testing.T) {
	doc := loadDocument(t, "deck_commander.html")

	cards, err := ParseDeck(doc, "Theme Deck", telemetry.NewTestAPI())
	require.NoError(t, err)
	for _, c := range cards {
		require.False(t, c.IsSideboard, c.Name)
	}
}

func TestParseDeckOnlyFirstCommanderCard(t *testing.T) {
	doc := documentFromString(t, `
<div class="card_entry">1 <a href="/card/c16/1/Atraxa">Atraxa, Praetors' Voice</a></div>
<div class="card_entry">1 <a href="/card/c16/2/Sol-Ring">Sol Ring</a></div>
<div class="card_entry">1 <a href="/card/c16/3/Command-Tower">Command Tower</a></div>`)

	cards, err := ParseDeck(doc, "Commander Deck", telemetry.NewTestAPI())
	require.NoError(t, err)

	var sideboard []string
	for _, c := range cards {
		if c.IsSideboard {
			sideboard = append(sideboard, c.Name)
		}
	}
	require.Equal(t, []string{"Atraxa, Praetors' Voice"}, sideboard)
	require.Equal(t, []string{"Atraxa, Praetors' Voice", "Sol Ring", "Command Tower"}, cardNames(cards))
}

func TestParseDeckSideboardGroup(t *testing.T) {
	doc := loadDocument(t, "deck_sideboard.html")
	tel := telemetry.NewTestAPI()

	cards, err := ParseDeck(doc, "Planeswalker Deck", tel)
	require.NoError(t, err)

	expected := []store.Card{
		{Name: "Llanowar Elves", SetCode: "znr", SetID: "199", Quantity: 4},
		{Name: "Mystery Card", SetCode: "000", SetID: "_", Quantity: 2},
		{Name: "Broken Card", SetCode: "000", SetID: "_", Quantity: 1},
		{Name: "Containment Priest", SetCode: "m21", SetID: "25", Quantity: 3, IsSideboard: true},
	}
	if diff := cmp.Diff(expected, cards); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, tel.Reports("warning", report_deck_parse_card), 2)
}

func TestParseDeckErrors(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		expect error
	}{
		{
			name:   "no entries",
			markup: `<div class="deck"><p>Deck not found</p></div>`,
			expect: ErrNoCardEntries,
		},
		{
			name:   "no quantity",
			markup: `<div class="card_entry"><a href="/card/znr/199/Llanowar-Elves">Llanowar Elves</a></div>`,
			expect: ErrNoQuantity,
		},
		{
			name:   "zero quantity",
			markup: `<div class="card_entry">0 <a href="/card/znr/1/X">X</a></div>`,
			expect: ErrNoQuantity,
		},
		{
			name:   "no link",
			markup: `<div class="card_entry">2 Llanowar Elves</div>`,
			expect: ErrNoCardLink,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			doc := documentFromString(t, test.markup)
			_, err := ParseDeck(doc, "Theme Deck", telemetry.NewTestAPI())
			require.True(t, errors.Is(err, test.expect), err)
		})
	}
}

func TestParseDeckNameDecodedOnce(t *testing.T) {
	doc := documentFromString(t, `<div class="card_entry">1 <a href="/card/znr/1/Tom">Tom &amp;lt;3 Jerry</a></div>`)

	cards, err := ParseDeck(doc, "Theme Deck", telemetry.NewTestAPI())
	require.NoError(t, err)
	require.Equal(t, []string{"Tom &lt;3 Jerry"}, cardNames(cards))
}

func cardNames(cards []store.Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	return names
}
