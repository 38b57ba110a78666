package frogbot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	maxPersonalityLength = 400
	maxAboutMeLength     = 4000
	maxLikesInputLength  = 250
	aboutMePreviewLength = 500
)

type personalityFields struct {
	Likes       []string
	Dislikes    []string
	Personality *string
	AboutMe     *string
}

// Personality holds likes, dislikes, a short personality blurb and the
// long-form "about me" biography.
type Personality struct {
	profile *Profile
	f       personalityFields
}

// loadPersonality rebuilds the section from likes, dislikes,
// personality, aboutme.
func loadPersonality(p *Profile, raw []*string) *Personality {
	return &Personality{
		profile: p,
		f: personalityFields{
			Likes:       decodeList(rawField(raw, 0)),
			Dislikes:    decodeList(rawField(raw, 1)),
			Personality: rawField(raw, 2),
			AboutMe:     rawField(raw, 3),
		},
	}
}

func (s *Personality) Profile() *Profile { return s.profile }

func (s *Personality) save(ctx context.Context, f personalityFields) error {
	return s.profile.store.SavePersonality(
		ctx, &PersonalityRecord{
			ProfileID:   s.profile.ID,
			Likes:       encodeList(f.Likes),
			Dislikes:    encodeList(f.Dislikes),
			Personality: f.Personality,
			AboutMe:     f.AboutMe,
		},
	)
}

func (s *Personality) Likes() []string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return append([]string(nil), s.f.Likes...)
}

func (s *Personality) Dislikes() []string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return append([]string(nil), s.f.Dislikes...)
}

func (s *Personality) PersonalityText() string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return stringPointerValue(s.f.Personality)
}

func (s *Personality) AboutMe() string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return stringPointerValue(s.f.AboutMe)
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *Personality) SetLikes(ctx context.Context, likes []string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()
	next := s.f
	next.Likes = cleanList(likes)
	return commit(ctx, &s.f, next, s.save)
}

func (s *Personality) SetDislikes(ctx context.Context, dislikes []string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()
	next := s.f
	next.Dislikes = cleanList(dislikes)
	return commit(ctx, &s.f, next, s.save)
}

func (s *Personality) SetPersonality(ctx context.Context, text string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()
	next := s.f
	next.Personality = optString(truncate(text, maxPersonalityLength))
	return commit(ctx, &s.f, next, s.save)
}

func (s *Personality) SetAboutMe(ctx context.Context, text string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()
	next := s.f
	next.AboutMe = optString(truncate(text, maxAboutMeLength))
	return commit(ctx, &s.f, next, s.save)
}

func (s *Personality) likesField() *discordgo.MessageEmbedField {
	value := notSet
	if len(s.f.Likes) > 0 {
		value = bulletList(s.f.Likes)
	}
	return embedField(
		EmojiCheck+"  __Likes__",
		value+"\n"+separatorLine(15),
		true,
	)
}

func (s *Personality) dislikesField() *discordgo.MessageEmbedField {
	value := notSet
	if len(s.f.Dislikes) > 0 {
		value = bulletList(s.f.Dislikes)
	}
	return embedField(EmojiCross+"  __Dislikes__", value, true)
}

func (s *Personality) personalityField() *discordgo.MessageEmbedField {
	return embedField(
		fmt.Sprintf("%s  __Personality__  %s", EmojiGoose, EmojiGoose),
		orNotSet(stringPointerValue(s.f.Personality))+"\n"+separatorLine(15),
		false,
	)
}

// aboutMePreview shows the biography inline, cut short past 500
// characters.
func (s *Personality) aboutMePreview() *discordgo.MessageEmbedField {
	value := notSet
	if s.f.AboutMe != nil {
		value = *s.f.AboutMe
		if utf8.RuneCountInString(value) >= aboutMePreviewLength {
			value = truncate(value, aboutMePreviewLength+1) +
				"...\n*(Preview Only -- Click below to see the whole thing!)*"
		}
	}
	return embedField(
		fmt.Sprintf("%s  __About Me / Biography__  %s", EmojiScroll, EmojiScroll),
		value+"\n"+separatorLine(15),
		false,
	)
}

func (s *Personality) Status() *discordgo.MessageEmbed {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()

	e := newEmbed(
		fmt.Sprintf("Personality Attributes for __%s__", s.profile.details.charNameDisplay()),
		separatorLine(40),
		s.profile.details.color(),
	)
	e.Fields = []*discordgo.MessageEmbedField{
		s.likesField(),
		s.dislikesField(),
		s.personalityField(),
		s.aboutMePreview(),
	}
	return e
}

// PersonalityFragments is the compiled form of Personality. Nil fields
// are omitted from the card; AboutMe is nil when no biography is set.
type PersonalityFragments struct {
	Likes       *discordgo.MessageEmbedField
	Dislikes    *discordgo.MessageEmbedField
	Personality *discordgo.MessageEmbedField
	AboutMe     *discordgo.MessageEmbed
}

func (s *Personality) Compile() PersonalityFragments {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return s.compile()
}

func (s *Personality) compile() PersonalityFragments {
	var out PersonalityFragments
	if len(s.f.Likes) > 0 {
		out.Likes = s.likesField()
	}
	if len(s.f.Dislikes) > 0 {
		out.Dislikes = s.dislikesField()
	}
	if s.f.Personality != nil {
		out.Personality = s.personalityField()
	}
	if s.f.AboutMe != nil {
		d := s.profile.details
		out.AboutMe = newEmbed(
			"About "+d.charNameDisplay(),
			*s.f.AboutMe,
			d.color(),
		)
		if d.f.URL != nil {
			out.AboutMe.Footer = &discordgo.MessageEmbedFooter{Text: *d.f.URL}
		}
	}
	return out
}

func (s *Personality) Progress() string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return s.progress()
}

func (s *Personality) progress() string {
	return fmt.Sprintf(
		"%s\n__**Personality**__\n"+
			"%s -- Likes\n"+
			"%s -- Dislikes\n"+
			"%s -- Personality\n"+
			"%s -- About Me\n",
		separatorLine(15),
		progressEmoji(len(s.f.Likes) > 0),
		progressEmoji(len(s.f.Dislikes) > 0),
		progressEmoji(s.f.Personality != nil),
		progressEmoji(s.f.AboutMe != nil),
	)
}
