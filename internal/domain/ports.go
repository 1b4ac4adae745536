package domain

import "context"

// LanguageModel starts grounded conversations with a generative model.
type LanguageModel interface {
	StartConversation(ctx context.Context) (Conversation, error)
}

// Conversation is a single model chat. Send may fail with errors wrapping
// ErrModelUnavailable or ErrModelRequestFailed.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
}

// ImageAssets resolves the picture for a card. A missing image is reported
// with ok == false, not an error.
type ImageAssets interface {
	Lookup(ctx context.Context, card Card, orientation Orientation) (ref string, ok bool, err error)
}
