package frogbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// MessageClient is the part of the discord REST API used to publish a
// profile card.
type MessageClient interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(
		channelID string,
		messageID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	ChannelMessageEditComplex(
		m *discordgo.MessageEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// ChannelChooser asks the member which approved channel to publish to.
// It returns ErrPromptCancelled or ErrPromptTimeout when the member
// doesn't pick one.
type ChannelChooser interface {
	ChooseChannel(ctx context.Context, channelIDs []string) (string, error)
}

// Profile is one member's character profile in one community. All of
// its sections share mu.
type Profile struct {
	ID      string
	UserID  string
	GuildID string

	mu        sync.RWMutex
	store     ProfileStore
	community *Community
	logger    *slog.Logger

	details     *Details
	personality *Personality
	atAGlance   *AtAGlance
	images      *Images
}

func newProfile(c *Community, id string, userID string) *Profile {
	p := &Profile{
		ID:        id,
		UserID:    userID,
		GuildID:   c.ID,
		store:     c.store,
		community: c,
		logger:    c.logger,
	}
	p.details = loadDetails(p, nil)
	p.personality = loadPersonality(p, nil)
	p.atAGlance = loadAtAGlance(p, nil)
	p.images = loadImages(p, nil)
	return p
}

// loadProfile rebuilds a profile from one profile_master row.
func loadProfile(c *Community, row []*string) (*Profile, error) {
	if len(row) < profileRowWidth {
		return nil, fmt.Errorf(
			"expected %d columns in %s row, got %d",
			profileRowWidth, profileMasterView, len(row),
		)
	}
	id := stringPointerValue(row[colProfileID])
	if id == "" {
		return nil, errors.New("profile row missing profile_id")
	}
	p := newProfile(c, id, stringPointerValue(row[colUserID]))
	p.details = loadDetails(p, row[detailsStart:personalityStart])
	p.personality = loadPersonality(p, row[personalityStart:atAGlanceStart])
	p.atAGlance = loadAtAGlance(p, row[atAGlanceStart:imagesStart])
	p.images = loadImages(p, row[imagesStart:profileRowWidth])
	return p, nil
}

func (p *Profile) Details() *Details         { return p.details }
func (p *Profile) Personality() *Personality { return p.personality }
func (p *Profile) AtAGlance() *AtAGlance     { return p.atAGlance }
func (p *Profile) Images() *Images           { return p.images }
func (p *Profile) Community() *Community     { return p.community }

// Sections returns the four sections in checklist order.
func (p *Profile) Sections() []Section {
	return []Section{p.details, p.atAGlance, p.personality, p.images}
}

// CharName is the character name, or "`Not Set`".
func (p *Profile) CharName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.details.charNameDisplay()
}

// Color is the accent color used for every embed about this profile.
func (p *Profile) Color() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.details.color()
}

// Published reports whether the card has been posted at least once.
func (p *Profile) Published() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.details.f.PostURL != nil
}

func (p *Profile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("profile_id", p.ID),
		slog.String("user_id", p.UserID),
		slog.String("guild_id", p.GuildID),
	)
}

// Compile renders the profile card, plus the about-me embed when a
// biography is set.
func (p *Profile) Compile() (card *discordgo.MessageEmbed, aboutMe *discordgo.MessageEmbed) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.compile()
}

func (p *Profile) compile() (*discordgo.MessageEmbed, *discordgo.MessageEmbed) {
	details := p.details.compile()
	glance := p.atAGlance.compile()
	personality := p.personality.compile()
	images := p.images.compile()

	title := details.CharName
	switch {
	case title == "":
		title = "Character Name: " + notSet
	case details.URL != "":
		title = fmt.Sprintf("%s  %s  %s", EmojiEnvelope, title, EmojiEnvelope)
	}

	var description string
	if details.Jobs != "" {
		sep := drawSeparator(details.Jobs, 0, 0)
		description = sep + "\n" + details.Jobs + "\n" + sep
	}

	var fields []*discordgo.MessageEmbedField
	for _, f := range []*discordgo.MessageEmbedField{
		glance,
		details.Rates,
		personality.Likes,
		personality.Dislikes,
		personality.Personality,
	} {
		if f != nil {
			fields = append(fields, f)
		}
	}
	if images.Additional != nil {
		images.Additional.Value += separatorLine(15)
		fields = append(fields, images.Additional)
	}

	card := newEmbed(title, description, details.Color)
	card.URL = details.URL
	card.Fields = fields
	if images.Thumbnail != "" {
		card.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: images.Thumbnail}
	}
	if images.MainImage != "" {
		card.Image = &discordgo.MessageEmbedImage{URL: images.MainImage}
	}
	return card, personality.AboutMe
}

// Progress renders every section checklist plus whether the card has
// been published.
func (p *Profile) Progress() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.details.progress() +
		p.atAGlance.progress() +
		p.personality.progress() +
		p.images.progress() +
		separatorLine(15) + "\n" +
		progressEmoji(p.details.f.PostURL != nil) + " -- Finalize"
}

// ProgressEmbed wraps Progress for display.
func (p *Profile) ProgressEmbed() *discordgo.MessageEmbed {
	return newEmbed("Profile Progress", p.Progress(), p.Color())
}

// PostResult describes a successful Post.
type PostResult struct {
	URL     string
	Updated bool
}

// Post publishes the card. A previously published message is edited in
// place when it still exists. Otherwise the member picks one of the
// community's approved channels and a new message is sent there.
//
// Nothing is sent when the character name is unset or the card is over
// discord's embed limit. A cancelled or timed out channel prompt leaves
// the profile unchanged.
func (p *Profile) Post(
	ctx context.Context,
	client MessageClient,
	chooser ChannelChooser,
) (PostResult, error) {
	p.mu.RLock()
	hasName := p.details.f.CharName != nil
	card, aboutMe := p.compile()
	postURL := stringPointerValue(p.details.f.PostURL)
	p.mu.RUnlock()

	if !hasName {
		return PostResult{}, &CharNameNotSetError{}
	}
	if n := embedLength(card); n > embedMaxLength-1 {
		return PostResult{}, &ExceedsMaxLengthError{Length: n}
	}

	embeds := []*discordgo.MessageEmbed{card}
	if aboutMe != nil {
		embeds = append(embeds, aboutMe)
	}

	if postURL != "" {
		updated, err := p.updatePublished(ctx, client, postURL, embeds)
		if err != nil {
			return PostResult{}, err
		}
		if updated {
			return PostResult{URL: postURL, Updated: true}, nil
		}
	}

	channels := p.community.PostChannels()
	if len(channels) == 0 {
		return PostResult{}, &NoPostChannelsError{}
	}
	channelID, err := chooser.ChooseChannel(ctx, channels)
	if err != nil {
		return PostResult{}, err
	}

	channel, err := client.Channel(channelID)
	if err != nil {
		return PostResult{}, &ChannelNotFoundError{ChannelID: channelID, Err: err}
	}
	msg, err := client.ChannelMessageSendComplex(
		channel.ID,
		&discordgo.MessageSend{Embeds: embeds},
	)
	if err != nil {
		return PostResult{}, fmt.Errorf("error sending profile to %s: %w", channel.ID, err)
	}

	url := messageLink(p.GuildID, channel.ID, msg.ID)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err = p.details.setPostURL(ctx, url); err != nil {
		return PostResult{}, fmt.Errorf("profile posted but location not saved: %w", err)
	}
	return PostResult{URL: url}, nil
}

// updatePublished edits the message at postURL. It reports false, after
// clearing the stored location, when that message no longer exists.
func (p *Profile) updatePublished(
	ctx context.Context,
	client MessageClient,
	postURL string,
	embeds []*discordgo.MessageEmbed,
) (bool, error) {
	channelID, messageID, ok := parseMessageLink(postURL)
	if !ok {
		return false, p.clearPostURL(ctx, "unparseable post url")
	}

	msg, err := client.ChannelMessage(channelID, messageID)
	if err != nil {
		if isNotFound(err) {
			return false, p.clearPostURL(ctx, "published message not found")
		}
		return false, fmt.Errorf("error fetching published profile: %w", err)
	}

	_, err = client.ChannelMessageEditComplex(
		&discordgo.MessageEdit{
			ID:      msg.ID,
			Channel: channelID,
			Embeds:  &embeds,
		},
	)
	if err != nil {
		if isNotFound(err) {
			return false, p.clearPostURL(ctx, "published message deleted before edit")
		}
		return false, fmt.Errorf("error editing published profile: %w", err)
	}
	return true, nil
}

func (p *Profile) clearPostURL(ctx context.Context, reason string) error {
	p.logger.InfoContext(ctx, "clearing stale post url", "profile", p, "reason", reason)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.details.setPostURL(ctx, ""); err != nil {
		p.logger.ErrorContext(ctx, "error clearing post url", "profile", p, tint.Err(err))
		return err
	}
	return nil
}

// isNotFound reports whether err is a discord 404.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

// postedEmbed is shown to the member after a successful Post.
func postedEmbed(charName string, url string) *discordgo.MessageEmbed {
	e := newEmbed(
		"Profile Posted!",
		"Hey, good job, you did it! Your profile was posted successfully!\n"+
			separatorLine(37)+"\n"+
			fmt.Sprintf("(__Character Name:__ ***%s***)\n\n", charName)+
			fmt.Sprintf(
				"%s  [Check It Out HERE!](%s)  %s\n",
				EmojiArrowRight, url, EmojiArrowLeft,
			)+
			separatorLine(16),
		colorBrandGreen,
	)
	e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: placeholderImage}
	e.Footer = &discordgo.MessageEmbedFooter{Text: botFooter, IconURL: placeholderImage}
	e.Timestamp = timestamp()
	return e
}
