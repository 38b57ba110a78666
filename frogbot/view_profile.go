package frogbot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	actionPreviewCard    = "preview_card"
	actionPreviewAboutMe = "preview_about_me"
	actionChannelSelect  = "channel_select"
)

// runPreview shows /profiles preview: buttons that display the compiled
// card and the About Me embed privately.
func (b *FrogBot) runPreview(ctx context.Context, profile *Profile, origin InteractionHandler) error {
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	render := func() *discordgo.InteractionResponseData {
		_, aboutMe := profile.Compile()
		aboutMeButton := discordgo.Button{
			Label:    "About Me Section",
			Style:    discordgo.PrimaryButton,
			CustomID: v.prompt.CustomID(actionPreviewAboutMe),
		}
		if aboutMe == nil {
			aboutMeButton.Style = discordgo.SecondaryButton
			aboutMeButton.Disabled = true
		}
		return embedsData(
			buttonRows(
				discordgo.Button{
					Label:    "Main Profile",
					Style:    discordgo.PrimaryButton,
					CustomID: v.prompt.CustomID(actionPreviewCard),
				},
				aboutMeButton,
				v.closeButton(),
			),
			newEmbed(
				"Preview Profile",
				"Select the button below corresponding to the section\n"+
					"of your profile you would like to preview.",
				profile.Color(),
			),
		)
	}
	return v.run(
		ctx, render, map[string]viewAction{
			actionPreviewCard: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				card, _ := profile.Compile()
				return false, v.followup(ctx, ev, embedsData(nil, card))
			},
			actionPreviewAboutMe: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				_, aboutMe := profile.Compile()
				if aboutMe == nil {
					v.ack(ctx, ev)
					return false, nil
				}
				return false, v.followup(ctx, ev, embedsData(nil, aboutMe))
			},
		},
	)
}

// runProgress shows /profiles progress.
func (b *FrogBot) runProgress(ctx context.Context, profile *Profile, origin InteractionHandler) error {
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	render := func() *discordgo.InteractionResponseData {
		return embedsData(buttonRows(v.closeButton()), profile.ProgressEmbed())
	}
	return v.run(ctx, render, nil)
}

// channelPrompt asks the member to pick a posting channel on the view's
// message. It implements ChannelChooser.
type channelPrompt struct {
	v       *view
	channel func(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

func (c *channelPrompt) ChooseChannel(ctx context.Context, channelIDs []string) (string, error) {
	options := make([]discordgo.SelectMenuOption, 0, len(channelIDs))
	for _, id := range channelIDs {
		label := id
		if ch, err := c.channel(id, discordgo.WithContext(ctx)); err == nil {
			label = "#" + ch.Name
		} else {
			c.v.logger.WarnContext(ctx, "error looking up post channel", "channel_id", id, tint.Err(err))
		}
		options = append(options, discordgo.SelectMenuOption{Label: label, Value: id})
		if len(options) == discordMaxSelectOptions {
			break
		}
	}

	components := []discordgo.MessageComponent{
		c.v.selectRow(actionChannelSelect, "Select Your Posting Channel...", options, 0, false),
		buttonRows(c.v.cancelButton())[0],
	}
	embeds := []*discordgo.MessageEmbed{
		newEmbed(
			"Select Your Posting Channel",
			"The select below is populated with the channels approved\n"+
				"by your server admin(s) for profile posting.\n\n"+
				"Pick one to finish the process!",
			c.v.profile.Color(),
		),
	}
	if _, err := c.v.origin.Edit(ctx, &discordgo.WebhookEdit{Embeds: &embeds, Components: &components}); err != nil {
		return "", err
	}

	for {
		ev, err := c.v.prompt.Next(ctx)
		if err != nil {
			if ev.Handler != nil {
				c.v.ack(ctx, ev)
			}
			return "", err
		}
		c.v.ack(ctx, ev)
		if ev.Action == actionChannelSelect && len(ev.Values) > 0 {
			return ev.Values[0], nil
		}
	}
}

// finalize handles /profiles finalize: publish the card, or update the
// copy already published.
func (b *FrogBot) finalize(ctx context.Context, profile *Profile, origin InteractionHandler) (err error) {
	if len(profile.Community().PostChannels()) == 0 {
		b.metrics.post(postOutcomeRejected)
		return &NoPostChannelsError{}
	}
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	defer func() {
		v.prompt.Close(err)
	}()
	if err = v.deferTo(ctx, origin); err != nil {
		return err
	}

	session := b.discord.session
	result, err := profile.Post(ctx, session, &channelPrompt{v: v, channel: session.Channel})
	switch {
	case errors.Is(err, ErrPromptCancelled), errors.Is(err, ErrPromptTimeout):
		v.logger.InfoContext(ctx, "profile post abandoned", tint.Err(err))
		v.origin.Delete(ctx)
		return nil
	case err != nil:
		if _, ok := userErrorEmbed(err); ok {
			b.metrics.post(postOutcomeRejected)
		}
		// the deferred response is already out, so errors are reported
		// by editing it
		if !b.respondError(ctx, v.origin, err) {
			return reportedError{err}
		}
		return nil
	}

	if result.Updated {
		b.metrics.post(postOutcomeUpdated)
	} else {
		b.metrics.post(postOutcomeCreated)
	}
	v.logger.InfoContext(ctx, "profile posted", "url", result.URL, "updated", result.Updated)

	embeds := []*discordgo.MessageEmbed{postedEmbed(profile.CharName(), result.URL)}
	components := []discordgo.MessageComponent{}
	_, err = v.origin.Edit(ctx, &discordgo.WebhookEdit{Embeds: &embeds, Components: &components})
	return err
}
