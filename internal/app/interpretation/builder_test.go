package interpretation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/arcana/internal/app/interpretation"
	"github.com/PabloGalante/arcana/internal/domain"
)

func card(name string, o domain.Orientation) domain.DrawnCard {
	return domain.DrawnCard{Card: domain.Card{Name: name}, Orientation: o}
}

func TestBuildIsDeterministic(t *testing.T) {
	prior := []domain.Turn{{Question: "job?", Cards: []domain.DrawnCard{card("The Tower", domain.Reversed)}, Interpretation: "change"}}
	cards := []domain.DrawnCard{card("The Sun", domain.Upright)}

	a := interpretation.Build(prior, "and love?", cards)
	b := interpretation.Build(prior, "and love?", cards)
	assert.Equal(t, a, b)
}

func TestBuildOrdersContextBeforeQuestion(t *testing.T) {
	prior := []domain.Turn{
		{Question: "first question", Cards: []domain.DrawnCard{card("The Fool", domain.Upright)}, Interpretation: "one"},
		{Question: "second question", Cards: []domain.DrawnCard{card("Death", domain.Reversed)}, Interpretation: "two"},
	}
	req := interpretation.Build(prior, "third question", []domain.DrawnCard{card("The Star", domain.Reversed)})

	first := strings.Index(req.Text, "first question")
	second := strings.Index(req.Text, "second question")
	third := strings.Index(req.Text, "third question")
	assert.True(t, first >= 0 && first < second && second < third, req.Text)
	assert.Contains(t, req.Text, "Death (reversed)")
	assert.Contains(t, req.Text, "1. The Star, reversed")
	assert.Contains(t, req.Text, "Do not end with an offer of another reading")
}

func TestBuildWithoutContext(t *testing.T) {
	req := interpretation.Build(nil, "q", []domain.DrawnCard{card("The Moon", domain.Upright)})
	assert.NotContains(t, req.Text, "Earlier readings")
	assert.NotContains(t, req.Text, "(Past)")
}

func TestBuildLabelsThreeCardPositions(t *testing.T) {
	req := interpretation.Build(nil, "q", []domain.DrawnCard{
		card("A", domain.Upright), card("B", domain.Reversed), card("C", domain.Upright),
	})
	assert.Contains(t, req.Text, "1. A, upright (Past)")
	assert.Contains(t, req.Text, "2. B, reversed (Present)")
	assert.Contains(t, req.Text, "3. C, upright (Future)")
}

func TestParseSpread(t *testing.T) {
	cases := map[string]domain.Spread{
		"multi-card":                 domain.SpreadThree,
		"  Multi-Card.":              domain.SpreadThree,
		"single-card":                domain.SpreadSingle,
		"single-card or multi-card?": domain.SpreadSingle,
		"hmm, hard to say":           domain.SpreadSingle,
		"":                           domain.SpreadSingle,
		"I would use a multi card":   domain.SpreadSingle,
	}
	for reply, want := range cases {
		assert.Equal(t, want, interpretation.ParseSpread(reply), reply)
	}
}

func TestClassifySpreadMentionsBothPhrases(t *testing.T) {
	req := interpretation.ClassifySpread([]domain.Turn{{Question: "old"}}, "new")
	assert.Contains(t, req.Text, interpretation.SingleCardPhrase)
	assert.Contains(t, req.Text, interpretation.MultiCardPhrase)
	assert.Contains(t, req.Text, `"old"`)
}

func TestChat(t *testing.T) {
	assert.Contains(t, interpretation.Chat("  hello  ").Text, "\nhello")
}
