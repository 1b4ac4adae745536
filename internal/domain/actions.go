package domain

// Action is an outbound instruction for the UI layer.
type Action interface {
	ActionType() string
}

// Option is one affordance (button) attached to a prompt or reading.
type Option struct {
	Label   string
	Control Control
}

type SendText struct {
	Text string
}

type SendChoicePrompt struct {
	Text    string
	Options []Option
}

// ShowQuestionForm asks the UI to open the question modal. Submitting it
// must come back as a ModalSubmitted with ControlQuestion.
type ShowQuestionForm struct {
	Title string
	Label string
}

type EditMessage struct {
	Text             string
	ClearAffordances bool
}

type SendReading struct {
	Text        string
	CardImages  []string
	Affordances []Option
}

type SendEphemeralNotice struct {
	Text string
}

func (SendText) ActionType() string            { return "send_text" }
func (SendChoicePrompt) ActionType() string    { return "send_choice_prompt" }
func (ShowQuestionForm) ActionType() string    { return "show_question_form" }
func (EditMessage) ActionType() string         { return "edit_message" }
func (SendReading) ActionType() string         { return "send_reading" }
func (SendEphemeralNotice) ActionType() string { return "send_ephemeral_notice" }
