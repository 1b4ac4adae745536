package domain

type GuildID string
type UserID string

// SessionKey identifies one independent reading session. Direct messages
// carry an empty GuildID.
type SessionKey struct {
	GuildID GuildID
	UserID  UserID
}

func (k SessionKey) String() string {
	return string(k.GuildID) + ":" + string(k.UserID)
}

type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// Card is an immutable deck entry. Image is the base name used by the
// asset lookup, not a path.
type Card struct {
	Name  string `yaml:"name" json:"name"`
	Image string `yaml:"image" json:"image,omitempty"`
}

// DrawnCard is a card as it came out of a draw.
type DrawnCard struct {
	Card        Card        `json:"card"`
	Orientation Orientation `json:"orientation"`
}

func (c DrawnCard) String() string {
	if c.Orientation == Reversed {
		return c.Card.Name + " (reversed)"
	}
	return c.Card.Name
}
