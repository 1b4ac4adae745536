package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/PabloGalante/arcana/internal/app/dialogue"
	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/observability"
)

// EventHandler is the dialogue entry point the webhook feeds.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) dialogue.Outcome
}

type Server struct {
	events EventHandler
}

// RegisterRoutes mounts the webhook on e.
func RegisterRoutes(e *echo.Echo, events EventHandler) {
	s := &Server{events: events}

	e.GET("/healthz", s.Health)

	v1 := e.Group("/v1/events")
	v1.POST("/messages", s.Message)
	v1.POST("/buttons", s.Button)
	v1.POST("/modals", s.Modal)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageRequest struct {
	GuildID     string `json:"guild_id"`
	AuthorID    string `json:"author_id"`
	Text        string `json:"text"`
	AuthorIsBot bool   `json:"author_is_bot,omitempty"`
}

type buttonRequest struct {
	GuildID             string `json:"guild_id"`
	ActorID             string `json:"actor_id"`
	OriginalRequesterID string `json:"original_requester_id"`
	Control             string `json:"control"`
}

type modalRequest struct {
	buttonRequest
	Fields map[string]string `json:"fields"`
}

type optionResponse struct {
	Label   string `json:"label"`
	Control string `json:"control"`
}

type actionResponse struct {
	Type             string           `json:"type"`
	Text             string           `json:"text,omitempty"`
	Title            string           `json:"title,omitempty"`
	Label            string           `json:"label,omitempty"`
	Options          []optionResponse `json:"options,omitempty"`
	CardImages       []string         `json:"card_images,omitempty"`
	ClearAffordances bool             `json:"clear_affordances,omitempty"`
}

type eventResponse struct {
	Actions []actionResponse `json:"actions"`
	Outcome string           `json:"outcome"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

// Health reports liveness.
// GET /healthz
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Message accepts a chat message.
// POST /v1/events/messages
func (s *Server) Message(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	// guild_id is empty for direct messages
	if req.AuthorID == "" {
		return badRequest(c, "author_id is required")
	}

	return s.dispatch(c, domain.TextMessage{
		AuthorID:    domain.UserID(req.AuthorID),
		ScopeID:     domain.GuildID(req.GuildID),
		Text:        req.Text,
		AuthorIsBot: req.AuthorIsBot,
	})
}

// Button accepts a press on one of the reading affordances.
// POST /v1/events/buttons
func (s *Server) Button(c echo.Context) error {
	var req buttonRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	control, msg := validateInteraction(req)
	if msg != "" {
		return badRequest(c, msg)
	}

	return s.dispatch(c, domain.ButtonPressed{
		ActorID:             domain.UserID(req.ActorID),
		ScopeID:             domain.GuildID(req.GuildID),
		Control:             control,
		OriginalRequesterID: domain.UserID(req.OriginalRequesterID),
	})
}

// Modal accepts a submitted question form.
// POST /v1/events/modals
func (s *Server) Modal(c echo.Context) error {
	var req modalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	control, msg := validateInteraction(req.buttonRequest)
	if msg != "" {
		return badRequest(c, msg)
	}

	return s.dispatch(c, domain.ModalSubmitted{
		ActorID:             domain.UserID(req.ActorID),
		ScopeID:             domain.GuildID(req.GuildID),
		Control:             control,
		OriginalRequesterID: domain.UserID(req.OriginalRequesterID),
		Fields:              req.Fields,
	})
}

func (s *Server) dispatch(c echo.Context, ev domain.Event) error {
	out := s.events.Handle(c.Request().Context(), ev)

	resp := eventResponse{
		Actions: make([]actionResponse, 0, len(out.Actions)),
		Outcome: outcomeName(out.Err),
	}
	for _, a := range out.Actions {
		resp.Actions = append(resp.Actions, toActionResponse(a))
	}

	if out.Err != nil {
		observability.LoggerFromContext(c.Request().Context()).Debug("event outcome",
			"outcome", resp.Outcome, "error", out.Err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func validateInteraction(req buttonRequest) (domain.Control, string) {
	if req.ActorID == "" || req.OriginalRequesterID == "" {
		return "", "actor_id and original_requester_id are required"
	}
	control, err := domain.ParseControl(strings.TrimSpace(req.Control))
	if err != nil {
		return "", err.Error()
	}
	return control, ""
}

func outcomeName(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnauthorizedActor):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "stale"
	default:
		return "failed"
	}
}

func toActionResponse(a domain.Action) actionResponse {
	resp := actionResponse{Type: a.ActionType()}
	switch v := a.(type) {
	case domain.SendText:
		resp.Text = v.Text
	case domain.SendChoicePrompt:
		resp.Text = v.Text
		resp.Options = toOptions(v.Options)
	case domain.ShowQuestionForm:
		resp.Title = v.Title
		resp.Label = v.Label
	case domain.EditMessage:
		resp.Text = v.Text
		resp.ClearAffordances = v.ClearAffordances
	case domain.SendReading:
		resp.Text = v.Text
		resp.CardImages = v.CardImages
		resp.Options = toOptions(v.Affordances)
	case domain.SendEphemeralNotice:
		resp.Text = v.Text
	}
	return resp
}

func toOptions(opts []domain.Option) []optionResponse {
	out := make([]optionResponse, 0, len(opts))
	for _, o := range opts {
		out = append(out, optionResponse{Label: o.Label, Control: string(o.Control)})
	}
	return out
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
