package frogbot

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrPromptTimeout   = errors.New("prompt timed out")
	ErrPromptCancelled = errors.New("prompt cancelled")
	ErrProfileNotFound = errors.New("profile not found")
	ErrGuildNotFound   = errors.New("guild not found")
)

// reportedError wraps an error the member has already been shown the
// generic error message for.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// UserError is an error caused by member input or server setup. It is
// reported back to the member as an embed rather than logged as a
// failure.
type UserError interface {
	error
	Embed() *discordgo.MessageEmbed
}

func errorEmbed(
	title string,
	description string,
	whatHappened string,
	howToFix string,
) *discordgo.MessageEmbed {
	e := newEmbed(title, description, colorRed)
	e.Timestamp = timestamp()
	e.Fields = []*discordgo.MessageEmbedField{
		embedField("What Happened?", whatHappened, true),
		embedField("How to Fix?", howToFix, true),
	}
	return e
}

// userErrorEmbed returns the embed for err if it is (or wraps) a
// UserError.
func userErrorEmbed(err error) (*discordgo.MessageEmbed, bool) {
	var ue UserError
	if errors.As(err, &ue) {
		return ue.Embed(), true
	}
	return nil, false
}

type InvalidColorError struct {
	Value string
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("invalid color value %q", e.Value)
}

func (e *InvalidColorError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Invalid Color Value",
		fmt.Sprintf("You entered `%s` for your accent color.", e.Value),
		"The value you entered in the modal couldn't be parsed into a HEX color.",
		"Ensure you're entering a valid HEX code comprised of 6 characters, "+
			"numbers `0 - 9` and letters `A - F`.",
	)
}

type InvalidHeightError struct {
	Value string
}

func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf("invalid height %q", e.Value)
}

func (e *InvalidHeightError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Invalid Height Input",
		"",
		fmt.Sprintf("The value `%s` couldn't be interpreted.", e.Value),
		"The following are acceptable input styles:\n"+
			"- `X feet X inches`\n"+
			"- `X ft. X in.`\n"+
			"- `X in.`\n"+
			"- `X cm.`",
	)
}

type InvalidFileTypeError struct {
	ContentType string
	Section     SectionType
}

func (e *InvalidFileTypeError) Error() string {
	return fmt.Sprintf("invalid file type %q for %s", e.ContentType, e.Section.Label())
}

func (e *InvalidFileTypeError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Invalid File Type",
		fmt.Sprintf(
			"You submitted a file of type ``%s`` for your %s.",
			e.ContentType,
			e.Section.Label(),
		),
		"The attachment you submitted couldn't be used as a profile image.",
		"Only '`.JPEG`', '`.GIF`', '`.WEBP`' and '`.PNG`' type files are allowed.",
	)
}

type MaxImagesReachedError struct {
	Max int
}

func (e *MaxImagesReachedError) Error() string {
	return fmt.Sprintf("maximum of %d additional images reached", e.Max)
}

func (e *MaxImagesReachedError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Image Maximum Reached",
		"",
		fmt.Sprintf(
			"You already have the maximum of %d additional images on your profile.",
			e.Max,
		),
		"Sorry, I can't add any more because of formatting restrictions. :(",
	)
}

type CharNameNotSetError struct{}

func (e *CharNameNotSetError) Error() string {
	return "character name not set"
}

func (e *CharNameNotSetError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Character Name Not Set",
		"",
		"You haven't set a character name for your profile!",
		"You can't post your profile until you complete at least that much.\n"+
			"Use `/profile details` to change it.",
	)
}

type NoPostChannelsError struct{}

func (e *NoPostChannelsError) Error() string {
	return "no profile posting channels configured"
}

func (e *NoPostChannelsError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"No Profile Channels Configured",
		"*(You're going to want to contact a server administrator for this one.)*",
		"There are not configured profile posting channels for your server.",
		"Have a server administrator run the `/profile post_channel` command "+
			"to set one up.",
	)
}

type ExceedsMaxLengthError struct {
	Length int
}

func (e *ExceedsMaxLengthError) Error() string {
	return fmt.Sprintf("profile length %d exceeds embed limit", e.Length)
}

func (e *ExceedsMaxLengthError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Profile Too Large!",
		fmt.Sprintf("Current Character Count: `%d`.", e.Length),
		"Your profile is larger than Discord's mandatory 6,000-character limit "+
			"for embedded messages.",
		"The total number of character in all your profile's sections must "+
			"not exceed 6,000.",
	)
}

type ChannelNotFoundError struct {
	ChannelID string
	Err       error
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("posting channel %s not found: %v", e.ChannelID, e.Err)
}

func (e *ChannelNotFoundError) Unwrap() error { return e.Err }

func (e *ChannelNotFoundError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Posting Channel Error",
		"",
		"The selected posting channel wasn't found",
		"Try finalizing one more time... <_<",
	)
}

type ChannelTypeError struct {
	Required string
}

func (e *ChannelTypeError) Error() string {
	return fmt.Sprintf("channel must be of type %s", e.Required)
}

func (e *ChannelTypeError) Embed() *discordgo.MessageEmbed {
	return errorEmbed(
		"Invalid Channel Type",
		"",
		"You entered a channel of an invalid type.",
		fmt.Sprintf("Channel argument must be of type %s.", e.Required),
	)
}
