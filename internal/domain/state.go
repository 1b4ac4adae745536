package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Spread is the number of cards laid out for one question.
type Spread int

const (
	SpreadUndetermined Spread = 0 // decided when the question arrives
	SpreadSingle       Spread = 1
	SpreadThree        Spread = 3
)

func (s Spread) Valid() bool {
	return s == SpreadUndetermined || s == SpreadSingle || s == SpreadThree
}

type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAwaitingSpreadChoice
	PhaseAwaitingQuestion
	PhaseAwaitingFollowUpChoice
	PhaseEnded
)

var phaseNames = map[Phase]string{
	PhaseIdle:                   "idle",
	PhaseAwaitingSpreadChoice:   "awaiting_spread_choice",
	PhaseAwaitingQuestion:       "awaiting_question",
	PhaseAwaitingFollowUpChoice: "awaiting_follow_up_choice",
	PhaseEnded:                  "ended",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// InteractionState is the dialogue position of one session. Only
// AwaitingQuestion carries a spread; the fields are unexported so a spread
// can't be attached to any other phase. The zero value is Idle.
type InteractionState struct {
	phase  Phase
	spread Spread
}

func Idle() InteractionState { return InteractionState{phase: PhaseIdle} }
func AwaitingSpreadChoice() InteractionState {
	return InteractionState{phase: PhaseAwaitingSpreadChoice}
}
func AwaitingFollowUpChoice() InteractionState {
	return InteractionState{phase: PhaseAwaitingFollowUpChoice}
}
func Ended() InteractionState { return InteractionState{phase: PhaseEnded} }

// AwaitingQuestion returns the question-capture state for the given spread.
// Invalid spreads collapse to SpreadUndetermined.
func AwaitingQuestion(spread Spread) InteractionState {
	if !spread.Valid() {
		spread = SpreadUndetermined
	}
	return InteractionState{phase: PhaseAwaitingQuestion, spread: spread}
}

func (s InteractionState) Phase() Phase   { return s.phase }
func (s InteractionState) Spread() Spread { return s.spread }

func (s InteractionState) String() string {
	if s.phase == PhaseAwaitingQuestion {
		return s.phase.String() + ":" + strconv.Itoa(int(s.spread))
	}
	return s.phase.String()
}

func (s InteractionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *InteractionState) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState is the inverse of InteractionState.String.
func ParseState(v string) (InteractionState, error) {
	name, arg, hasArg := strings.Cut(v, ":")
	for p, pn := range phaseNames {
		if pn != name {
			continue
		}
		if p != PhaseAwaitingQuestion {
			if hasArg {
				return InteractionState{}, fmt.Errorf("state %q takes no spread", name)
			}
			return InteractionState{phase: p}, nil
		}
		n, err := strconv.Atoi(arg)
		if err != nil || !Spread(n).Valid() {
			return InteractionState{}, fmt.Errorf("invalid spread in state %q", v)
		}
		return AwaitingQuestion(Spread(n)), nil
	}
	return InteractionState{}, fmt.Errorf("unknown state %q", v)
}
