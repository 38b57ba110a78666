package frogbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

var errUnknownCommand = errors.New("unknown command")

// profileCommand runs one /profiles subcommand for the invoking member's
// profile.
type profileCommand func(
	ctx context.Context,
	profile *Profile,
	handler InteractionHandler,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error

func (b *FrogBot) profileCommands() map[string]profileCommand {
	simple := func(
		run func(context.Context, *Profile, InteractionHandler) error,
	) profileCommand {
		return func(
			ctx context.Context,
			p *Profile,
			h InteractionHandler,
			_ map[string]*discordgo.ApplicationCommandInteractionDataOption,
		) error {
			return run(ctx, p, h)
		}
	}
	return map[string]profileCommand{
		subcommandDetails:     simple(b.runDetails),
		subcommandPersonality: simple(b.runPersonality),
		subcommandAtAGlance:   simple(b.runAtAGlance),
		subcommandImages:      simple(b.runImages),
		subcommandAddImage:    b.commandAddImage,
		subcommandPreview:     simple(b.runPreview),
		subcommandFinalize:    simple(b.finalize),
		subcommandProgress:    simple(b.runProgress),
	}
}

// handleProfilesCommand resolves the member's profile, creating it on
// first use, and runs the subcommand.
func (b *FrogBot) handleProfilesCommand(ctx context.Context, handler InteractionHandler) error {
	i := handler.GetInteraction()
	u := interactionUser(i)
	if u == nil || i.GuildID == "" {
		return fmt.Errorf("%w: profiles command outside a guild", errUnknownCommand)
	}
	sub, options := commandOptions(i.ApplicationCommandData())
	cmd, ok := b.profileCommands()[sub]
	if !ok {
		return fmt.Errorf("%w: /%s %s", errUnknownCommand, commandProfiles, sub)
	}
	profile, err := b.registry.GetProfile(ctx, i.GuildID, u.ID)
	if err != nil {
		return fmt.Errorf("error loading profile: %w", err)
	}
	return cmd(ctx, profile, handler, options)
}

func (b *FrogBot) commandAddImage(
	ctx context.Context,
	profile *Profile,
	handler InteractionHandler,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	field, ok := options[optionField]
	if !ok {
		return fmt.Errorf("missing %s option", optionField)
	}
	code, err := strconv.Atoi(field.StringValue())
	if err != nil {
		return fmt.Errorf("invalid %s option: %w", optionField, err)
	}
	section, ok := lookupCode(SectionTypes, code)
	if !ok {
		return fmt.Errorf("invalid image section %d", code)
	}
	return b.addImage(ctx, profile, handler, section, resolvedAttachment(handler.GetInteraction(), options[optionFile]))
}

// resolvedAttachment returns the attachment an attachment option refers
// to.
func resolvedAttachment(
	i *discordgo.InteractionCreate,
	option *discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.MessageAttachment {
	if option == nil {
		return nil
	}
	id, ok := option.Value.(string)
	if !ok {
		return nil
	}
	resolved := i.ApplicationCommandData().Resolved
	if resolved == nil {
		return nil
	}
	return resolved.Attachments[id]
}

// handleConfigCommand runs /config subcommands.
func (b *FrogBot) handleConfigCommand(ctx context.Context, handler InteractionHandler) error {
	i := handler.GetInteraction()
	if i.GuildID == "" {
		return fmt.Errorf("%w: config command outside a guild", errUnknownCommand)
	}
	community, err := b.registry.EnsureCommunity(ctx, i.GuildID)
	if err != nil {
		return err
	}
	sub, options := commandOptions(i.ApplicationCommandData())
	switch sub {
	case subcommandProfileChannels:
	case subcommandPostChannel:
		if err := b.updatePostChannel(ctx, community, i, options); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: /%s %s", errUnknownCommand, commandConfig, sub)
	}

	v, err := b.newView(ctx, nil, handler)
	if err != nil {
		return err
	}
	return v.run(
		ctx, func() *discordgo.InteractionResponseData {
			return embedsData(buttonRows(v.closeButton()), community.PostChannelsEmbed())
		}, nil,
	)
}

func (b *FrogBot) updatePostChannel(
	ctx context.Context,
	community *Community,
	i *discordgo.InteractionCreate,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
) error {
	opOption, chOption := options[optionOperation], options[optionChannel]
	if opOption == nil || chOption == nil {
		return fmt.Errorf("missing %s or %s option", optionOperation, optionChannel)
	}
	channelID, _ := chOption.Value.(string)
	var channel *discordgo.Channel
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		channel = resolved.Channels[channelID]
	}
	if channel == nil || channel.Type != discordgo.ChannelTypeGuildText {
		return &ChannelTypeError{Required: "Text Channel"}
	}

	switch opOption.StringValue() {
	case operationAdd:
		return community.AddPostChannel(ctx, channel.ID)
	case operationRemove:
		return community.RemovePostChannel(ctx, channel.ID)
	default:
		return fmt.Errorf("invalid operation %q", opOption.StringValue())
	}
}
