package frogbot

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	EmojiArrowDown   = "⬇️"
	EmojiArrowLeft   = "⬅️"
	EmojiArrowRight  = "➡️"
	EmojiCamera      = "<:camera:958816462406033498>"
	EmojiCheck       = "<:check:958615684869414962>"
	EmojiCross       = "❌"
	EmojiEnvelope    = "💌"
	EmojiEyes        = "👀"
	EmojiFlyingMoney = "💸"
	EmojiGoose       = "<:goose:958828235058208829>"
	EmojiScroll      = "📜"
)

const (
	notSet    = "`Not Set`"
	separator = "═"

	colorRed        = 0xE74C3C
	colorBrandGreen = 0x57F287
	colorBlurple    = 0x5865F2

	embedMaxLength     = 6000
	fieldPlaceholder   = "\u200b"
	botFooter          = "FrogBot: By Allegro#6969"
	placeholderImage   = "https://cdn.discordapp.com/embed/avatars/0.png"
	channelLinkFormat  = "https://discord.com/channels/%s/%s/%s"
	channelMentionList = "- <#%s>"
)

// separatorWeights approximates how wide each glyph renders in the
// discord client, in units of one separator character. Glyphs not listed
// (including '1' and '{') don't count.
var separatorWeights = func() map[rune]float64 {
	groups := []struct {
		weight float64
		chars  string
	}{
		{0.25, "'"},
		{0.30, "ij. "},
		{0.35, "I!;|,"},
		{0.40, "fl`[]"},
		{0.45, "()t"},
		{0.50, "r}\"\\/"},
		{0.60, "sz*-"},
		{0.65, "x^"},
		{0.70, "acegkvyJ7_=+~<>?"},
		{0.75, "nou25689"},
		{0.80, "bdhpqEFLSTZ34$"},
		{0.85, "PVXY0"},
		{0.90, "ABCDKR#&"},
		{0.95, "GHU"},
		{1.00, "wNOQ%"},
		{1.15, "mW"},
		{1.20, "M"},
		{1.30, "@"},
	}
	m := make(map[rune]float64)
	for _, g := range groups {
		for _, r := range g.chars {
			if _, ok := m[r]; !ok {
				m[r] = g.weight
			}
		}
	}
	return m
}()

// drawSeparator returns a horizontal rule roughly as wide as text, plus
// numEmoji emoji and extra separator widths.
func drawSeparator(text string, numEmoji int, extra float64) string {
	width := extra + 1.95*float64(numEmoji)
	for _, r := range text {
		width += separatorWeights[r]
	}
	return strings.Repeat(separator, int(math.Ceil(width)))
}

func separatorLine(extra float64) string {
	return drawSeparator("", 0, extra)
}

var titleizeWord = regexp.MustCompile(`[A-Za-z]+(?:['-][A-Za-z]+)*`)

// titleize capitalizes each word, lower-casing the rest of it.
// Apostrophes and hyphens join a word rather than start a new one, so
// "mary-jane o'brien" becomes "Mary-jane O'brien".
func titleize(text string) string {
	return titleizeWord.ReplaceAllStringFunc(
		text, func(word string) string {
			r, size := utf8.DecodeRuneInString(word)
			return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
		},
	)
}

func progressEmoji(complete bool) string {
	if complete {
		return EmojiCheck
	}
	return EmojiCross
}

func orNotSet(s string) string {
	if s == "" {
		return notSet
	}
	return s
}

// colorHex formats a color as six uppercase hex digits.
func colorHex(color int) string {
	return fmt.Sprintf("%06X", color)
}

// parseColor accepts "#A1B2C3" or "a1b2c3" style input.
func parseColor(input string) (int, error) {
	raw := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(input)), "#")
	if raw == "" || len(raw) > 6 {
		return 0, &InvalidColorError{Value: input}
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, &InvalidColorError{Value: input}
	}
	return int(v), nil
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

func newEmbed(title string, description string, color int) *discordgo.MessageEmbed {
	if color == 0 {
		color = colorBlurple
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}

func embedField(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func spacerField(extra float64) *discordgo.MessageEmbedField {
	return embedField(fieldPlaceholder, separatorLine(extra), false)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// embedLength counts the characters discord includes in its 6000
// character embed budget.
func embedLength(e *discordgo.MessageEmbed) int {
	if e == nil {
		return 0
	}
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	for _, f := range e.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	if e.Author != nil {
		n += utf8.RuneCountInString(e.Author.Name)
	}
	return n
}

func messageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf(channelLinkFormat, guildID, channelID, messageID)
}

// parseMessageLink extracts the channel and message ids from a jump link.
func parseMessageLink(link string) (channelID string, messageID string, ok bool) {
	parts := strings.Split(strings.TrimSpace(link), "/")
	if len(parts) < 7 {
		return "", "", false
	}
	channelID, messageID = parts[5], parts[6]
	if channelID == "" || messageID == "" {
		return "", "", false
	}
	return channelID, messageID, true
}
