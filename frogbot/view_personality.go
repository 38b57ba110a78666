package frogbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const modalSuffix = "_modal"

// personalitySection pairs a Personality slot with how it is edited.
type personalitySection struct {
	section SectionType
	current func() string
	set     func(ctx context.Context, input string) error
	isList  bool
	maxLen  int
}

func personalitySections(p *Personality) []personalitySection {
	return []personalitySection{
		{
			section: SectionLikes,
			current: func() string { return strings.Join(p.Likes(), ", ") },
			set: func(ctx context.Context, input string) error {
				return p.SetLikes(ctx, splitCommaList(input))
			},
			isList: true,
			maxLen: maxLikesInputLength,
		},
		{
			section: SectionDislikes,
			current: func() string { return strings.Join(p.Dislikes(), ", ") },
			set: func(ctx context.Context, input string) error {
				return p.SetDislikes(ctx, splitCommaList(input))
			},
			isList: true,
			maxLen: maxLikesInputLength,
		},
		{
			section: SectionPersonality,
			current: p.PersonalityText,
			set:     p.SetPersonality,
			maxLen:  maxPersonalityLength,
		},
		{
			section: SectionAboutMe,
			current: p.AboutMe,
			set:     p.SetAboutMe,
			maxLen:  maxAboutMeLength,
		},
	}
}

func (s personalitySection) action() string {
	return strings.ReplaceAll(strings.ToLower(s.section.Label()), " ", "_")
}

func (s personalitySection) instructions() string {
	name := s.section.Label()
	if s.isList {
		return fmt.Sprintf(
			"Enter a list of your %s separated by commas. "+
				"Minimum three is suggested. Your likes list should "+
				"be LONGER than your dislikes to avoid formatting issues.",
			name,
		)
	}
	return fmt.Sprintf(
		"Enter your desired %s section content here. "+
			"Note that this accepts markdown, newlines, and emojis, "+
			"so really make it your own. ♥",
		name,
	)
}

// runPersonality shows the Personality status view for
// /profiles personality.
func (b *FrogBot) runPersonality(ctx context.Context, profile *Profile, origin InteractionHandler) error {
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	p := profile.Personality()
	sections := personalitySections(p)

	render := func() *discordgo.InteractionResponseData {
		buttons := make([]discordgo.Button, 0, len(sections)+1)
		for _, s := range sections {
			buttons = append(buttons, v.button(s.section.Label(), s.action(), s.current() != ""))
		}
		buttons = append(buttons, v.closeButton())
		return embedsData(buttonRows(buttons...), p.Status())
	}

	actions := make(map[string]viewAction, len(sections)*2)
	for _, s := range sections {
		name := s.section.Label()
		actions[s.action()] = func(ctx context.Context, ev ComponentEvent) (bool, error) {
			return false, v.modal(
				ctx, ev, s.action()+modalSuffix, "Edit Your "+name,
				instructionsInput(fmt.Sprintf("Enter your %s section content.", name), s.instructions()),
				discordgo.TextInput{
					CustomID:    inputValue,
					Label:       name,
					Style:       discordgo.TextInputParagraph,
					Placeholder: "eg. 'A beautiful froggy princess who loves flies.'",
					Value:       s.current(),
					MaxLength:   s.maxLen,
					Required:    false,
				},
			)
		}
		actions[s.action()+modalSuffix] = func(ctx context.Context, ev ComponentEvent) (bool, error) {
			if err := s.set(ctx, ev.Field(inputValue)); err != nil {
				return false, err
			}
			return false, v.update(ctx, ev, render())
		}
	}
	return v.run(ctx, render, actions)
}
