package domain

import "fmt"

// Control is the typed form of a button or modal custom action.
type Control string

const (
	ControlSpreadSingle Control = "spread:1"
	ControlSpreadThree  Control = "spread:3"
	ControlFollowUp     Control = "follow_up"
	ControlEnd          Control = "end"
	ControlQuestion     Control = "question"
)

// QuestionField is the modal field carrying the user's question.
const QuestionField = "question"

// ParseControl validates a custom action coming from the transport.
func ParseControl(v string) (Control, error) {
	switch c := Control(v); c {
	case ControlSpreadSingle, ControlSpreadThree, ControlFollowUp, ControlEnd, ControlQuestion:
		return c, nil
	}
	return "", fmt.Errorf("unknown control %q", v)
}

// Spread reports the spread selected by a spread control.
func (c Control) Spread() (Spread, bool) {
	switch c {
	case ControlSpreadSingle:
		return SpreadSingle, true
	case ControlSpreadThree:
		return SpreadThree, true
	}
	return SpreadUndetermined, false
}

// Event is an inbound dialogue event. The set is closed.
type Event interface {
	// Key is the session the event belongs to.
	Key() SessionKey
	isEvent()
}

type TextMessage struct {
	AuthorID    UserID
	ScopeID     GuildID
	Text        string
	AuthorIsBot bool
}

type ButtonPressed struct {
	ActorID             UserID
	ScopeID             GuildID
	Control             Control
	OriginalRequesterID UserID
}

type ModalSubmitted struct {
	ActorID             UserID
	ScopeID             GuildID
	Control             Control
	OriginalRequesterID UserID
	Fields              map[string]string
}

func (e TextMessage) Key() SessionKey { return SessionKey{GuildID: e.ScopeID, UserID: e.AuthorID} }

// Key belongs to the original requester, never to whoever clicked.
func (e ButtonPressed) Key() SessionKey {
	return SessionKey{GuildID: e.ScopeID, UserID: e.OriginalRequesterID}
}

func (e ModalSubmitted) Key() SessionKey {
	return SessionKey{GuildID: e.ScopeID, UserID: e.OriginalRequesterID}
}

func (TextMessage) isEvent()    {}
func (ButtonPressed) isEvent()  {}
func (ModalSubmitted) isEvent() {}
