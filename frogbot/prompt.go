package frogbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	promptIDBytes = 6

	actionCancel = "cancel"
	actionClose  = "close"
)

// ComponentEvent is a button press, select, or modal submission routed to
// an open prompt.
type ComponentEvent struct {
	Action  string
	Values  []string
	Fields  map[string]string
	Handler InteractionHandler
}

// Field returns a submitted modal input, trimmed.
func (e ComponentEvent) Field(customID string) string {
	return strings.TrimSpace(e.Fields[customID])
}

// Prompt is one open interactive message. Components on it carry custom
// ids of the form "<prompt id>:<action>", which is how events find their
// way back here.
//
// A prompt is presented when opened, and ends completed or abandoned
// (timed out or cancelled) when closed.
type Prompt struct {
	ID     string
	UserID string

	prompts *Prompts
	events  chan ComponentEvent
	closed  chan struct{}
	once    sync.Once
}

// CustomID returns the component custom id for action.
func (p *Prompt) CustomID(action string) string {
	return fmt.Sprintf(customIDFormat, p.ID, action)
}

// Next waits for the member's next event. The wait is bounded by the
// prompt timeout, which restarts with every call. A cancel event is
// returned together with ErrPromptCancelled so the caller can still
// respond to it.
func (p *Prompt) Next(ctx context.Context) (ComponentEvent, error) {
	timer := time.NewTimer(p.prompts.timeout)
	defer timer.Stop()
	select {
	case ev := <-p.events:
		if ev.Action == actionCancel {
			return ev, ErrPromptCancelled
		}
		return ev, nil
	case <-timer.C:
		return ComponentEvent{}, ErrPromptTimeout
	case <-p.closed:
		return ComponentEvent{}, ErrPromptCancelled
	case <-ctx.Done():
		return ComponentEvent{}, ctx.Err()
	}
}

// Close unregisters the prompt and records how it ended. Only the first
// call has any effect.
func (p *Prompt) Close(err error) {
	p.once.Do(
		func() {
			close(p.closed)
			p.prompts.remove(p.ID)
			switch {
			case err == nil:
				p.prompts.metrics.prompt(promptOutcomeCompleted)
			case errors.Is(err, ErrPromptTimeout):
				p.prompts.metrics.prompt(promptOutcomeTimeout)
			case errors.Is(err, ErrPromptCancelled):
				p.prompts.metrics.prompt(promptOutcomeCancelled)
			default:
			}
		},
	)
}

// Prompts tracks every open prompt.
type Prompts struct {
	mu      sync.Mutex
	pending map[string]*Prompt
	timeout time.Duration
	metrics *Metrics
}

func newPrompts(timeout time.Duration, metrics *Metrics) *Prompts {
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	return &Prompts{
		pending: make(map[string]*Prompt),
		timeout: timeout,
		metrics: metrics,
	}
}

// Open registers a new prompt answerable only by userID.
func (ps *Prompts) Open(userID string) (*Prompt, error) {
	id, err := generateRandomHexString(promptIDBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating prompt id: %w", err)
	}
	p := &Prompt{
		ID:      id,
		UserID:  userID,
		prompts: ps,
		events:  make(chan ComponentEvent, 1),
		closed:  make(chan struct{}),
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.pending[id] = p
	return p, nil
}

func (ps *Prompts) remove(id string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.pending, id)
}

func (ps *Prompts) get(id string) (*Prompt, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.pending[id]
	return p, ok
}

// Len returns the number of open prompts.
func (ps *Prompts) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pending)
}

// deliverResult describes what Deliver did with an interaction.
type deliverResult int

const (
	deliverUnknown deliverResult = iota
	deliverOK
	deliverWrongUser
	deliverBusy
)

// Deliver routes a component or modal interaction to its prompt.
func (ps *Prompts) Deliver(handler InteractionHandler) deliverResult {
	i := handler.GetInteraction()
	var ev ComponentEvent
	var customID string
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		customID = data.CustomID
		ev.Values = data.Values
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		customID = data.CustomID
		ev.Fields = modalValues(data)
	default:
		return deliverUnknown
	}

	promptID, action, ok := strings.Cut(customID, ":")
	if !ok {
		return deliverUnknown
	}
	p, ok := ps.get(promptID)
	if !ok {
		return deliverUnknown
	}
	if u := interactionUser(i); u == nil || u.ID != p.UserID {
		return deliverWrongUser
	}
	ev.Action = action
	ev.Handler = handler

	select {
	case p.events <- ev:
		return deliverOK
	case <-p.closed:
		return deliverUnknown
	default:
		return deliverBusy
	}
}
