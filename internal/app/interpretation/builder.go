// Package interpretation composes the text sent to the language model.
// Every function here is deterministic.
package interpretation

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/arcana/internal/domain"
)

// Request is the payload for one model call.
type Request struct {
	Text string
}

// MultiCardPhrase is the literal the classifier must answer with to get a
// three card spread. Anything else means a single card.
const (
	MultiCardPhrase  = "multi-card"
	SingleCardPhrase = "single-card"
)

var threeCardPositions = []string{"Past", "Present", "Future"}

const readingInstructions = `You are Arcana, a tarot reader. Give a reading that is warm, honest and specific to the question.
Tone: calm, gently mystical, never fatalistic.
Explain each card in its position, then tie them together into one answer to the question.`

const noSolicitation = `Do not end with an offer of another reading, a follow-up question or an invitation to ask more; the chat already offers those options.`

// Build grounds a reading on the prior turns (oldest first), then states the
// new question and the drawn cards.
func Build(prior []domain.Turn, question string, cards []domain.DrawnCard) Request {
	var b strings.Builder

	if len(prior) > 0 {
		b.WriteString("Earlier readings in this session, oldest first:\n")
		for i, t := range prior {
			fmt.Fprintf(&b, "%d. Question: %s\n", i+1, t.Question)
			fmt.Fprintf(&b, "   Cards: %s\n", cardList(t.Cards))
			fmt.Fprintf(&b, "   Interpretation: %s\n", strings.TrimSpace(t.Interpretation))
		}
		b.WriteString("\n")
	}

	b.WriteString(readingInstructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question: %q\n", strings.TrimSpace(question))
	b.WriteString("Cards drawn:\n")
	for i, c := range cards {
		fmt.Fprintf(&b, "%d. %s, %s", i+1, c.Card.Name, c.Orientation)
		if len(cards) == len(threeCardPositions) {
			fmt.Fprintf(&b, " (%s)", threeCardPositions[i])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(noSolicitation)

	return Request{Text: b.String()}
}

// ClassifySpread asks the model whether a follow-up question needs one card
// or a three card spread.
func ClassifySpread(prior []domain.Turn, question string) Request {
	var b strings.Builder
	if n := len(prior); n > 0 {
		fmt.Fprintf(&b, "The previous question was: %q\n", prior[n-1].Question)
	}
	fmt.Fprintf(&b, "A tarot querent now asks: %q\n", strings.TrimSpace(question))
	fmt.Fprintf(&b, "Does this need a quick yes/no style answer from one card, or a broader look at a situation over time?\n")
	fmt.Fprintf(&b, "Answer with exactly one phrase: %q or %q.", SingleCardPhrase, MultiCardPhrase)
	return Request{Text: b.String()}
}

// ParseSpread maps a classifier reply to a spread. It matches the literal
// phrase only, and falls back to a single card when the reply is ambiguous.
func ParseSpread(reply string) domain.Spread {
	r := strings.ToLower(reply)
	if strings.Contains(r, MultiCardPhrase) && !strings.Contains(r, SingleCardPhrase) {
		return domain.SpreadThree
	}
	return domain.SpreadSingle
}

// Chat wraps free text that matched no command. It carries no session
// context.
func Chat(text string) Request {
	return Request{Text: "Reply briefly, in character as Arcana the tarot reader, to this message:\n" + strings.TrimSpace(text)}
}

func cardList(cards []domain.DrawnCard) string {
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}
