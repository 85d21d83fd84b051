package store

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateFirstWins(t *testing.T) {
	s := New()

	created := 0
	create := func(id string) Type {
		created++
		return Type{ID: id}
	}

	first := s.Types.GetOrCreate("Commander Deck", create)
	second := s.Types.GetOrCreate("Commander Deck", create)

	require.Equal(t, first, second)
	require.Equal(t, 1, created)
	require.Equal(t, 1, s.Types.Len())
}

func TestUpsertReplaceLatestWins(t *testing.T) {
	s := New()

	s.Sets.UpsertReplace(Set{ID: "znc", FriendlyName: "old"})
	s.Sets.UpsertReplace(Set{ID: "c21", FriendlyName: "Commander 2021"})
	s.Sets.UpsertReplace(Set{ID: "znc", FriendlyName: "Zendikar Rising Commander"})

	expected := []Set{
		{ID: "c21", FriendlyName: "Commander 2021"},
		{ID: "znc", FriendlyName: "Zendikar Rising Commander"},
	}
	if diff := cmp.Diff(expected, s.Sets.All()); diff != "" {
		t.Fatal(diff)
	}

	set, ok := s.Sets.Get("c21")
	require.True(t, ok)
	require.Equal(t, "Commander 2021", set.FriendlyName)
}

func TestUpsertReplaceMiddleKeepsOthers(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		s.Sets.UpsertReplace(Set{ID: id})
	}
	s.Sets.UpsertReplace(Set{ID: "b", FriendlyName: "new"})

	expected := []Set{{ID: "a"}, {ID: "c"}, {ID: "b", FriendlyName: "new"}}
	if diff := cmp.Diff(expected, s.Sets.All()); diff != "" {
		t.Fatal(diff)
	}
	for _, id := range []string{"a", "b", "c"} {
		_, ok := s.Sets.Get(id)
		require.True(t, ok, id)
	}
	require.Equal(t, 3, s.Sets.Len())
}

func TestUpsertReplaceIdempotent(t *testing.T) {
	sets := []Set{
		{ID: "znc", FriendlyName: "Zendikar Rising Commander"},
		{ID: "c21", FriendlyName: "Commander 2021"},
	}

	s := New()
	for _, set := range sets {
		s.Sets.UpsertReplace(set)
	}
	once := s.Sets.All()

	for i := 0; i < 3; i++ {
		for _, set := range sets {
			s.Sets.UpsertReplace(set)
		}
	}

	if diff := cmp.Diff(once, s.Sets.All()); diff != "" {
		t.Fatal(diff)
	}
}

func TestAddIfAbsent(t *testing.T) {
	s := New()

	first := &DeckEntry{ID: "Sneak Attack", SetID: "znc", SourceURL: "https://example.com/1"}
	second := &DeckEntry{ID: "Sneak Attack", SetID: "c21", SourceURL: "https://example.com/2"}

	require.True(t, s.Decks.AddIfAbsent(first))
	require.False(t, s.Decks.AddIfAbsent(second))

	stored, ok := s.Decks.Get("Sneak Attack")
	require.True(t, ok)
	require.Same(t, first, stored)
	require.Equal(t, 1, s.Decks.Len())
}

func TestDeckEntryUniqueness(t *testing.T) {
	s := New()
	names := []string{"a", "b", "a", "c", "b", "a"}
	for _, n := range names {
		s.Decks.AddIfAbsent(&DeckEntry{ID: n})
	}

	seen := map[string]bool{}
	for _, d := range s.Decks.All() {
		require.False(t, seen[d.ID], "duplicate deck id %s", d.ID)
		seen[d.ID] = true
	}
	require.Len(t, seen, 3)
}

func TestAddCardsPreservesOrder(t *testing.T) {
	deck := &DeckEntry{ID: "deck"}
	deck.AddCards(Card{Name: "A", Quantity: 1})
	deck.AddCards(Card{Name: "B", Quantity: 1}, Card{Name: "C", Quantity: 2})

	var names []string
	for _, c := range deck.Cards {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"A", "B", "C"}, names)
}

func TestResolveReferences(t *testing.T) {
	s := New()
	s.Sets.UpsertReplace(Set{ID: "znc", FriendlyName: "Zendikar Rising Commander"})
	s.Type("Commander Deck")

	deck := &DeckEntry{ID: "Sneak Attack", SetID: "znc", TypeID: "Commander Deck"}
	set, err := s.SetOf(deck)
	require.NoError(t, err)
	require.Equal(t, "Zendikar Rising Commander", set.FriendlyName)

	typ, err := s.TypeOf(deck)
	require.NoError(t, err)
	require.Equal(t, "Commander Deck", typ.ID)

	_, err = s.SetOf(&DeckEntry{ID: "orphan", SetID: "nope"})
	require.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []string{"a", "b", "c"} {
				s.Type(id)
				s.Sets.UpsertReplace(Set{ID: id})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, s.Types.Len())
	require.Equal(t, 3, s.Sets.Len())
}
