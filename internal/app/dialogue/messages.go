package dialogue

import "github.com/PabloGalante/arcana/internal/domain"

// User-facing copy. Kept in one place so the UI layer and tests agree.
const (
	greetingText      = "Welcome, seeker. Shall I draw a single card for you, or lay out three for past, present and future?"
	identityText      = "I am Arcana, a tarot reader. Ask me for a reading and I will draw the cards for you."
	notYoursText      = "This isn't your interaction. Ask for your own reading to get cards of your own."
	staleText         = "That option is no longer active. Ask for a new reading to start again."
	retryText         = "The cards are clouded right now. Please try that step again in a moment."
	emptyQuestionText = "Please write a question for the cards."
	endedText         = "The reading has ended. Thank you for visiting, and may the cards guide you."
	noImagesText      = "_Card images are unavailable, so this reading is text only._"
	questionTitle     = "Your question"
	questionLabel     = "What would you like to ask the cards?"
)

var spreadOptions = []domain.Option{
	{Label: "One card", Control: domain.ControlSpreadSingle},
	{Label: "Three cards", Control: domain.ControlSpreadThree},
}

var followUpOptions = []domain.Option{
	{Label: "Ask a follow-up", Control: domain.ControlFollowUp},
	{Label: "End the reading", Control: domain.ControlEnd},
}

func questionForm() domain.ShowQuestionForm {
	return domain.ShowQuestionForm{Title: questionTitle, Label: questionLabel}
}
