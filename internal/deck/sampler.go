package deck

import (
	"fmt"
	"math/rand/v2"

	"github.com/PabloGalante/arcana/internal/domain"
)

// Rand is the randomness a draw needs. IntN returns a uniform value in [0, n).
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand uses the math/rand/v2 global source and is safe for
// concurrent use.
var DefaultRand Rand = globalRand{}

// Draw picks count distinct cards that are not in history. When fewer than
// count cards remain, history is cleared first, so the draw always succeeds.
// history is not modified; the returned slice is the new history.
func Draw(d *Deck, history []string, count int, rng Rand) ([]domain.DrawnCard, []string, error) {
	if d == nil || d.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: empty deck", domain.ErrConfiguration)
	}
	if count < 1 || count > d.Len() {
		return nil, nil, fmt.Errorf("%w: draw count %d outside 1..%d", domain.ErrConfiguration, count, d.Len())
	}
	if rng == nil {
		rng = DefaultRand
	}

	drawn := make(map[string]struct{}, len(history))
	for _, name := range history {
		if _, ok := d.byName[name]; ok {
			drawn[name] = struct{}{}
		}
	}

	available := make([]domain.Card, 0, d.Len())
	for _, c := range d.cards {
		if _, ok := drawn[c.Name]; !ok {
			available = append(available, c)
		}
	}

	next := make([]string, 0, len(drawn)+count)
	if len(available) < count {
		available = d.Cards()
	} else {
		// keep only names that belong to this deck, in their original order
		for _, name := range history {
			if _, ok := drawn[name]; ok {
				next = append(next, name)
				delete(drawn, name)
			}
		}
	}

	// Partial Fisher-Yates: the first count slots end up a uniform sample.
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(available)-i)
		available[i], available[j] = available[j], available[i]
	}

	out := make([]domain.DrawnCard, count)
	for i := range out {
		orientation := domain.Upright
		if rng.IntN(2) == 1 {
			orientation = domain.Reversed
		}
		out[i] = domain.DrawnCard{Card: available[i], Orientation: orientation}
		next = append(next, available[i].Name)
	}
	return out, next, nil
}
