// Package dck reads and writes decks in the plain text .dck format, one card
// per line:
//
//	[SB: ]{quantity} [{SETCODE}:{setId}] {name}
package dck

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"precon-scraper/internal/store"
	"precon-scraper/pkg/textutil"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

const (
	Extension       = ".dck"
	sideboardPrefix = "SB: "
)

var ErrMalformedLine = errors.New("malformed dck line")

// RenderCard renders a single card line without the trailing newline.
func RenderCard(card store.Card) string {
	var b strings.Builder
	if card.IsSideboard {
		b.WriteString(sideboardPrefix)
	}
	b.WriteString(strconv.Itoa(card.Quantity))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(card.SetCode))
	b.WriteString(":")
	b.WriteString(card.SetID)
	b.WriteString("] ")
	b.WriteString(card.Name)
	return b.String()
}

// Render renders cards in order, every line (including the last one) ends
// with a newline.
func Render(cards []store.Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(RenderCard(c))
		b.WriteString("\n")
	}
	return b.String()
}

// FileName returns the file name a deck is written to,
// "[{setId} - {typeId}] {deckId}.dck" without invalid path characters.
func FileName(setId, typeId, deckId string) string {
	return textutil.SanitizeFilename(fmt.Sprintf("[%s - %s] %s%s", setId, typeId, deckId, Extension))
}

// Write writes deck into dir and returns the path of the written file. The
// file is synced to disk before Write returns.
func Write(dir string, s *store.Store, deck *store.DeckEntry) (string, error) {
	set, err := s.SetOf(deck)
	if err != nil {
		return "", err
	}
	typ, err := s.TypeOf(deck)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(set.ID, typ.ID, deck.ID))
	err = renameio.WriteFile(path, []byte(Render(deck.Cards)), 0644)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

var lineRegex = regexp.MustCompile(`^(SB: )?(\d+) \[([^:\]]*):([^\]]*)\] (.+)$`)

// ParseCard parses a single line produced by RenderCard. The set code is
// returned as written, which is upper case.
func ParseCard(line string) (store.Card, error) {
	groups := lineRegex.FindStringSubmatch(line)
	if groups == nil {
		return store.Card{}, fmt.Errorf("%w: '%s'", ErrMalformedLine, line)
	}
	quantity, err := strconv.Atoi(groups[2])
	if err != nil {
		return store.Card{}, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}
	return store.Card{
		Name:        groups[5],
		SetCode:     groups[3],
		SetID:       groups[4],
		Quantity:    quantity,
		IsSideboard: groups[1] != "",
	}, nil
}

// Parse reads every card of a .dck file, blank lines are skipped.
func Parse(r io.Reader) ([]store.Card, error) {
	var cards []store.Card
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		card, err := ParseCard(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cards = append(cards, card)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}
