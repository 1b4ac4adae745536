// Package deck holds the static card decks and the draw algorithm.
package deck

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/arcana/internal/domain"
)

//go:embed decks/*.yaml
var embedded embed.FS

// Deck is an ordered, read-only set of cards. It is safe for concurrent use.
type Deck struct {
	name   string
	cards  []domain.Card
	byName map[string]domain.Card
}

type deckFile struct {
	Name  string        `yaml:"name"`
	Cards []domain.Card `yaml:"cards"`
}

// New validates cards and builds a deck. Empty decks and duplicate names are
// configuration errors.
func New(name string, cards []domain.Card) (*Deck, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: deck %q has no cards", domain.ErrConfiguration, name)
	}

	d := &Deck{
		name:   name,
		cards:  make([]domain.Card, 0, len(cards)),
		byName: make(map[string]domain.Card, len(cards)),
	}
	for _, c := range cards {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: deck %q has a card without a name", domain.ErrConfiguration, name)
		}
		if _, dup := d.byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: deck %q lists %q twice", domain.ErrConfiguration, name, c.Name)
		}
		d.byName[c.Name] = c
		d.cards = append(d.cards, c)
	}
	return d, nil
}

// Load reads a YAML deck definition.
func Load(r io.Reader) (*Deck, error) {
	var f deckFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode deck: %v", domain.ErrConfiguration, err)
	}
	return New(f.Name, f.Cards)
}

// LoadFile reads a YAML deck definition from disk.
func LoadFile(path string) (*Deck, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read deck file: %v", domain.ErrConfiguration, err)
	}
	return Load(bytes.NewReader(b))
}

// Embedded returns one of the built-in decks ("major" or "full").
func Embedded(name string) (*Deck, error) {
	b, err := embedded.ReadFile("decks/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: unknown deck %q (have %v)", domain.ErrConfiguration, name, EmbeddedNames())
	}
	return Load(bytes.NewReader(b))
}

// EmbeddedNames lists the built-in decks.
func EmbeddedNames() []string {
	entries, _ := embedded.ReadDir("decks")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name()[:len(e.Name())-len(".yaml")])
	}
	sort.Strings(names)
	return names
}

func (d *Deck) Name() string { return d.name }
func (d *Deck) Len() int     { return len(d.cards) }

// Cards returns a copy of the deck in its canonical order.
func (d *Deck) Cards() []domain.Card {
	return append([]domain.Card(nil), d.cards...)
}

func (d *Deck) Card(name string) (domain.Card, bool) {
	c, ok := d.byName[name]
	return c, ok
}
