package frogbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// view drives one interactive message opened by a slash command. Buttons
// on the message, and the modals or selects they open, all belong to the
// view's prompt.
type view struct {
	bot     *FrogBot
	profile *Profile
	origin  InteractionHandler
	prompt  *Prompt
	logger  *slog.Logger

	// deferred is set once origin has been answered with a deferred
	// response, so the first screen is sent as an edit.
	deferred bool
}

// viewAction handles one event. Returning true ends the view.
type viewAction func(ctx context.Context, ev ComponentEvent) (bool, error)

// screen renders the view's current message.
type screen func() *discordgo.InteractionResponseData

func (b *FrogBot) newView(ctx context.Context, profile *Profile, origin InteractionHandler) (*view, error) {
	u := interactionUser(origin.GetInteraction())
	if u == nil {
		return nil, errors.New("interaction has no user")
	}
	prompt, err := b.prompts.Open(u.ID)
	if err != nil {
		return nil, err
	}
	logger := contextLogger(ctx, b.logger).With("prompt_id", prompt.ID)
	if profile != nil {
		logger = logger.With("profile", profile)
	}
	return &view{
		bot:     b,
		profile: profile,
		origin:  origin,
		prompt:  prompt,
		logger:  logger,
	}, nil
}

// run posts the first screen as the response to the slash command, then
// dispatches events to actions until one finishes the view, the member
// closes it, or the prompt times out.
func (v *view) run(ctx context.Context, render screen, actions map[string]viewAction) (err error) {
	defer func() {
		v.prompt.Close(err)
	}()

	if v.deferred {
		data := render()
		_, err = v.origin.Edit(
			ctx, &discordgo.WebhookEdit{
				Embeds:     &data.Embeds,
				Components: &data.Components,
			},
		)
	} else {
		err = v.origin.Respond(
			ctx, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: render(),
			},
		)
	}
	if err != nil {
		return err
	}
	return v.loop(ctx, actions)
}

// deferTo answers handler with a deferred message and makes it the
// view's origin.
func (v *view) deferTo(ctx context.Context, handler InteractionHandler) error {
	err := handler.Respond(
		ctx, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource},
	)
	if err != nil {
		return err
	}
	v.origin = handler
	v.deferred = true
	return nil
}

func (v *view) loop(ctx context.Context, actions map[string]viewAction) error {
	for {
		ev, err := v.prompt.Next(ctx)
		switch {
		case errors.Is(err, ErrPromptTimeout):
			v.logger.InfoContext(ctx, "view timed out")
			v.expire(ctx)
			return err
		case errors.Is(err, ErrPromptCancelled):
			if ev.Handler != nil {
				v.ack(ctx, ev)
			}
			return err
		case err != nil:
			return err
		}

		if ev.Action == actionClose {
			v.ack(ctx, ev)
			v.origin.Delete(ctx)
			return nil
		}

		action, ok := actions[ev.Action]
		if !ok {
			v.logger.WarnContext(ctx, "unhandled view action", "action", ev.Action)
			v.ack(ctx, ev)
			continue
		}
		done, err := action(ctx, ev)
		if err != nil {
			if !v.bot.respondError(ctx, ev.Handler, err) {
				return reportedError{err}
			}
			continue
		}
		if done {
			return nil
		}
	}
}

// expire strips the components from the view's message.
func (v *view) expire(ctx context.Context) {
	empty := []discordgo.MessageComponent{}
	if _, err := v.origin.Edit(ctx, &discordgo.WebhookEdit{Components: &empty}); err != nil {
		v.logger.WarnContext(ctx, "error expiring view", tint.Err(err))
	}
}

// ack acknowledges an event without changing its message.
func (v *view) ack(ctx context.Context, ev ComponentEvent) {
	_ = ev.Handler.Respond(
		ctx, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate},
	)
}

// update replaces the message the event came from.
func (v *view) update(ctx context.Context, ev ComponentEvent, data *discordgo.InteractionResponseData) error {
	return ev.Handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: data,
		},
	)
}

// refresh edits the view's own message, for events that came from a
// secondary message.
func (v *view) refresh(ctx context.Context, data *discordgo.InteractionResponseData) {
	_, err := v.origin.Edit(
		ctx, &discordgo.WebhookEdit{
			Embeds:     &data.Embeds,
			Components: &data.Components,
		},
	)
	if err != nil {
		v.logger.WarnContext(ctx, "error refreshing view", tint.Err(err))
	}
}

// modal opens a modal whose submission arrives as action.
func (v *view) modal(
	ctx context.Context,
	ev ComponentEvent,
	action string,
	title string,
	inputs ...discordgo.TextInput,
) error {
	return ev.Handler.Respond(ctx, discordModalResponse(v.prompt.CustomID(action), title, inputs...))
}

// followup sends an ephemeral message with components belonging to the
// view.
func (v *view) followup(ctx context.Context, ev ComponentEvent, data *discordgo.InteractionResponseData) error {
	data.Flags |= discordgo.MessageFlagsEphemeral
	return ev.Handler.Respond(
		ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		},
	)
}

// button returns a button bound to action. Buttons for attributes that
// are already set are green.
func (v *view) button(label string, action string, set bool) discordgo.Button {
	style := discordgo.SecondaryButton
	if set {
		style = discordgo.SuccessButton
	}
	return discordgo.Button{Label: label, Style: style, CustomID: v.prompt.CustomID(action)}
}

func (v *view) closeButton() discordgo.Button {
	return discordgo.Button{
		Label:    "Close Message",
		Style:    discordgo.SecondaryButton,
		Emoji:    &discordgo.ComponentEmoji{Name: EmojiCross},
		CustomID: v.prompt.CustomID(actionClose),
	}
}

func (v *view) cancelButton() discordgo.Button {
	return discordgo.Button{
		Label:    "Cancel",
		Style:    discordgo.SecondaryButton,
		Emoji:    &discordgo.ComponentEmoji{Name: EmojiCross},
		CustomID: v.prompt.CustomID(actionCancel),
	}
}

// selectRow returns a one-select action row bound to action. A positive
// maxValues allows picking several options.
func (v *view) selectRow(
	action string,
	placeholder string,
	options []discordgo.SelectMenuOption,
	maxValues int,
	disabled bool,
) discordgo.ActionsRow {
	menu := discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    v.prompt.CustomID(action),
		Placeholder: placeholder,
		Options:     options,
		Disabled:    disabled,
	}
	if maxValues > 1 {
		menu.MaxValues = min(maxValues, len(options), discordMaxSelectOptions)
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}}
}

// selected decodes the single catalog value picked in a select menu.
func selected[T Enum](ev ComponentEvent, values []T) (T, error) {
	var zero T
	if len(ev.Values) == 0 {
		return zero, errors.New("no option selected")
	}
	code, err := strconv.Atoi(ev.Values[0])
	if err != nil {
		return zero, fmt.Errorf("invalid option %q: %w", ev.Values[0], err)
	}
	v, ok := lookupCode(values, code)
	if !ok {
		return zero, fmt.Errorf("unknown option %d", code)
	}
	return v, nil
}

// instructionsInput is the read-only style text box shown at the top of
// every modal.
func instructionsInput(placeholder string, text string) discordgo.TextInput {
	return discordgo.TextInput{
		CustomID:    "instructions",
		Label:       "Instructions",
		Style:       discordgo.TextInputParagraph,
		Placeholder: placeholder,
		Value:       text,
		Required:    false,
	}
}

func embedsData(
	components []discordgo.MessageComponent,
	embeds ...*discordgo.MessageEmbed,
) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{Embeds: embeds, Components: components}
}
