package domain

import "time"

// MaxContextTurns bounds the rolling context kept per session.
const MaxContextTurns = 10

// Turn summarizes one answered question.
type Turn struct {
	ID             string      `json:"id"`
	Question       string      `json:"question"`
	Cards          []DrawnCard `json:"cards"`
	Interpretation string      `json:"interpretation"`
	At             time.Time   `json:"at"`
}

// Record is everything stored for one SessionKey.
type Record struct {
	State InteractionState `json:"state"`

	// History holds the card names drawn since the last reshuffle, in draw
	// order. Names are orientation independent.
	History []string `json:"history"`

	// Context is oldest first and never longer than MaxContextTurns.
	Context []Turn `json:"context"`

	// Claim identifies the question submission currently being answered, and
	// ClaimHistory is History as it was when that submission was admitted.
	// Both are empty when no answer is pending.
	Claim        string   `json:"claim,omitempty"`
	ClaimHistory []string `json:"claim_history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it freely.
func (r Record) Clone() Record {
	out := r
	out.History = append([]string(nil), r.History...)
	out.ClaimHistory = append([]string(nil), r.ClaimHistory...)
	out.Context = make([]Turn, len(r.Context))
	for i, t := range r.Context {
		t.Cards = append([]DrawnCard(nil), t.Cards...)
		out.Context[i] = t
	}
	return out
}

// AppendTurn adds t and evicts the oldest entries beyond MaxContextTurns.
func (r *Record) AppendTurn(t Turn) {
	r.Context = append(r.Context, t)
	if over := len(r.Context) - MaxContextTurns; over > 0 {
		r.Context = append([]Turn(nil), r.Context[over:]...)
	}
}
