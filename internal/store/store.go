package store

import "fmt"

// Set is a card set grouping (a release or expansion) identified by its
// short code.
type Set struct {
	ID           string
	FriendlyName string
}

func (s Set) Key() string { return s.ID }

// Type is a deck category label, ex. "Commander Deck".
type Type struct {
	ID string
}

func (t Type) Key() string { return t.ID }

// Card is one line of a deck.
type Card struct {
	Name        string
	SetCode     string
	SetID       string
	Quantity    int
	IsSideboard bool
}

// DeckEntry is a single preconstructed deck. It refers to its Set and Type by
// id, use Store.SetOf and Store.TypeOf to resolve them.
type DeckEntry struct {
	ID        string
	SetID     string
	TypeID    string
	SourceURL string
	Cards     []Card
}

func (d *DeckEntry) Key() string { return d.ID }

// AddCards appends cards in order, cards are never removed or reordered once
// added.
func (d *DeckEntry) AddCards(cards ...Card) {
	d.Cards = append(d.Cards, cards...)
}

// Store holds everything discovered during a single scrape run.
type Store struct {
	Sets  *Collection[Set]
	Types *Collection[Type]
	Decks *Collection[*DeckEntry]
}

func New() *Store {
	return &Store{
		Sets:  NewCollection[Set](),
		Types: NewCollection[Type](),
		Decks: NewCollection[*DeckEntry](),
	}
}

// Type returns the type with the given id, creating it if it doesn't exist.
func (s *Store) Type(id string) Type {
	return s.Types.GetOrCreate(id, func(id string) Type {
		return Type{ID: id}
	})
}

// SetOf resolves the Set a deck belongs to.
func (s *Store) SetOf(deck *DeckEntry) (Set, error) {
	set, ok := s.Sets.Get(deck.SetID)
	if !ok {
		return Set{}, fmt.Errorf("deck '%s' refers to unknown set '%s'", deck.ID, deck.SetID)
	}
	return set, nil
}

// TypeOf resolves the Type a deck belongs to.
func (s *Store) TypeOf(deck *DeckEntry) (Type, error) {
	t, ok := s.Types.Get(deck.TypeID)
	if !ok {
		return Type{}, fmt.Errorf("deck '%s' refers to unknown type '%s'", deck.ID, deck.TypeID)
	}
	return t, nil
}
