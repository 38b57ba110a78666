package frogbot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

const (
	actionGender           = "gender"
	actionGenderSelect     = "gender_select"
	actionGenderModal      = "gender_modal"
	actionPronounSelect    = "pronoun_select"
	actionRace             = "race"
	actionRaceSelect       = "race_select"
	actionRaceModal        = "race_modal"
	actionClanSelect       = "clan_select"
	actionClanModal        = "clan_modal"
	actionOrientation      = "orientation"
	actionOrientationSel   = "orientation_select"
	actionOrientationModal = "orientation_modal"
	actionHeight           = "height"
	actionHeightModal      = "height_modal"
	actionAge              = "age"
	actionAgeModal         = "age_modal"
	actionFriendID         = "friend_id"
	actionFriendIDModal    = "friend_id_modal"

	inputRace = "race"
	inputClan = "clan"
)

func genderPromptEmbed() *discordgo.MessageEmbed {
	return newEmbed(
		"Gender/Pronoun Selection",
		"Select your preferred gender from the selector below.\n"+
			"Don't worry, you'll be able to choose your pronouns next!\n\n"+
			"**If you select `Custom`, a pop-up will appear for you\n"+
			"to provide your custom gender text.**",
		0,
	)
}

func raceClanPromptEmbed() *discordgo.MessageEmbed {
	return newEmbed(
		"Select Your Race & Clan",
		"Select your character's race from the drop-down below.\n"+
			"An additional selector will then appear for you to choose your clan.\n\n"+
			"**If none of those apply, you may select `Custom`, and a pop-up will\n"+
			"appear for you to enter your own custom information into.**",
		0,
	)
}

func orientationPromptEmbed() *discordgo.MessageEmbed {
	return newEmbed(
		"Select Your Orientation",
		"Select your preferred orientation from the selector below.\n\n"+
			"**If you select `Custom`, a pop-up will appear for\n"+
			"you to provide your custom orientation value.**",
		0,
	)
}

// runAtAGlance shows the At A Glance status view for /profiles ataglance.
// Gender, race and orientation are picked on a separate ephemeral message
// whose selects belong to the same prompt.
func (b *FrogBot) runAtAGlance(ctx context.Context, profile *Profile, origin InteractionHandler) error {
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	a := profile.AtAGlance()

	render := func() *discordgo.InteractionResponseData {
		return embedsData(
			buttonRows(
				v.button("Race/Clan", actionRace, a.Race().IsSet()),
				v.button("Gender/Pronouns", actionGender, a.Gender().IsSet()),
				v.button("Orientation", actionOrientation, a.Orientation().IsSet()),
				v.button("Height", actionHeight, a.Height().IsSet()),
				v.button("Age", actionAge, a.Age().IsSet()),
				v.button("Friend ID", actionFriendID, a.FriendID() != ""),
				v.closeButton(),
			),
			a.Status(),
		)
	}

	// finish closes out a selection message and redraws the view.
	finish := func(ctx context.Context, ev ComponentEvent) (bool, error) {
		err := v.update(ctx, ev, embedsData([]discordgo.MessageComponent{}, a.Status()))
		v.refresh(ctx, render())
		return false, err
	}
	// saved redraws the view after a modal opened from the view itself.
	saved := func(ctx context.Context, ev ComponentEvent, err error) (bool, error) {
		if err != nil {
			return false, err
		}
		return false, v.update(ctx, ev, render())
	}

	pronounStep := func() *discordgo.InteractionResponseData {
		return embedsData(
			[]discordgo.MessageComponent{
				v.selectRow(actionGenderSelect, a.Gender().Label(), selectMenuOptions(Genders), 0, true),
				v.selectRow(
					actionPronounSelect,
					"Select your preferred pronouns...",
					selectMenuOptions(Pronouns, a.Pronouns()...),
					len(Pronouns),
					false,
				),
			},
			genderPromptEmbed(),
		)
	}
	clanStep := func(race Race) *discordgo.InteractionResponseData {
		return embedsData(
			[]discordgo.MessageComponent{
				v.selectRow(actionRaceSelect, race.Label(), selectMenuOptions(Races), 0, true),
				v.selectRow(
					actionClanSelect,
					"Select Your Clan...",
					selectMenuOptions(ClanOptionsFor(race)),
					0,
					false,
				),
			},
			raceClanPromptEmbed(),
		)
	}

	return v.run(
		ctx, render, map[string]viewAction{
			actionGender: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.followup(
					ctx, ev, embedsData(
						[]discordgo.MessageComponent{
							v.selectRow(
								actionGenderSelect,
								"Select Your Preferred Gender...",
								selectMenuOptions(Genders),
								0,
								false,
							),
						},
						genderPromptEmbed(),
					),
				)
			},
			actionGenderSelect: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				g, err := selected(ev, Genders)
				if err != nil {
					return false, err
				}
				if g == GenderCustom {
					var current string
					if c, ok := a.Gender().Custom(); ok {
						current = c
					}
					return false, v.modal(
						ctx, ev, actionGenderModal, "Set Custom Gender Value",
						instructionsInput(
							"Enter your custom gender identity below.",
							"Enter your custom gender identity in the box below.\n"+
								"You can choose your preferred pronouns after this.",
						),
						discordgo.TextInput{
							CustomID:    inputValue,
							Label:       "Custom Gender",
							Style:       discordgo.TextInputShort,
							Placeholder: "eg. 'Amphibian'",
							Value:       current,
							MaxLength:   maxCustomGenderLength,
							Required:    true,
						},
					)
				}
				if err := a.SetGender(ctx, Enumerated(g)); err != nil {
					return false, err
				}
				return false, v.update(ctx, ev, pronounStep())
			},
			actionGenderModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				custom := truncate(ev.Field(inputValue), maxCustomGenderLength)
				if err := a.SetGender(ctx, CustomText[Gender](custom)); err != nil {
					return false, err
				}
				return false, v.update(ctx, ev, pronounStep())
			},
			actionPronounSelect: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				pronouns := make([]Pronoun, 0, len(ev.Values))
				for _, value := range ev.Values {
					p, err := selected(ComponentEvent{Values: []string{value}}, Pronouns)
					if err != nil {
						return false, err
					}
					pronouns = append(pronouns, p)
				}
				if err := a.SetPronouns(ctx, pronouns); err != nil {
					return false, err
				}
				return finish(ctx, ev)
			},

			actionRace: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.followup(
					ctx, ev, embedsData(
						[]discordgo.MessageComponent{
							v.selectRow(actionRaceSelect, "Select Your Race...", selectMenuOptions(Races), 0, false),
						},
						raceClanPromptEmbed(),
					),
				)
			},
			actionRaceSelect: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				race, err := selected(ev, Races)
				if err != nil {
					return false, err
				}
				if race == RaceCustom {
					var curRace, curClan string
					if c, ok := a.Race().Custom(); ok {
						curRace = c
					}
					if c, ok := a.Clan().Custom(); ok {
						curClan = c
					}
					return false, v.modal(
						ctx, ev, actionRaceModal, "Set Custom Race & Clan Values",
						instructionsInput(
							"Enter your custom race and clan values below.",
							"Enter your custom race and clan values below. Only race is required.",
						),
						discordgo.TextInput{
							CustomID:    inputRace,
							Label:       "Race",
							Style:       discordgo.TextInputShort,
							Placeholder: "eg. 'Amphibarian'",
							Value:       curRace,
							MaxLength:   maxCustomRaceLength,
							Required:    true,
						},
						discordgo.TextInput{
							CustomID:    inputClan,
							Label:       "Clan",
							Style:       discordgo.TextInputShort,
							Placeholder: "eg. 'Pad Leaper'",
							Value:       curClan,
							MaxLength:   maxCustomClanLength,
							Required:    false,
						},
					)
				}
				if err := a.SetRace(ctx, Enumerated(race)); err != nil {
					return false, err
				}
				return false, v.update(ctx, ev, clanStep(race))
			},
			actionRaceModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				err := a.SetRaceClan(
					ctx,
					CustomText[Race](truncate(ev.Field(inputRace), maxCustomRaceLength)),
					CustomText[Clan](truncate(ev.Field(inputClan), maxCustomClanLength)),
				)
				if err != nil {
					return false, err
				}
				return finish(ctx, ev)
			},
			actionClanSelect: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				clan, err := selected(ev, Clans)
				if err != nil {
					return false, err
				}
				if clan == ClanCustom {
					var current string
					if c, ok := a.Clan().Custom(); ok {
						current = c
					}
					return false, v.modal(
						ctx, ev, actionClanModal, "Set Custom Clan Value",
						instructionsInput(
							"Enter your custom Clan value in the box below.",
							"Enter your custom Clan value below. This isn't required, and if \n"+
								"you don't want to enter one, simply submit a blank dialog.",
						),
						discordgo.TextInput{
							CustomID:    inputValue,
							Label:       "Clan",
							Style:       discordgo.TextInputShort,
							Placeholder: "eg. 'Pad Leaper'",
							Value:       current,
							MaxLength:   maxCustomClanLength,
							Required:    false,
						},
					)
				}
				if err := a.SetClan(ctx, Enumerated(clan)); err != nil {
					return false, err
				}
				return finish(ctx, ev)
			},
			actionClanModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				custom := truncate(ev.Field(inputValue), maxCustomClanLength)
				if err := a.SetClan(ctx, CustomText[Clan](custom)); err != nil {
					return false, err
				}
				return finish(ctx, ev)
			},

			actionOrientation: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.followup(
					ctx, ev, embedsData(
						[]discordgo.MessageComponent{
							v.selectRow(
								actionOrientationSel,
								"Select Your Orientation...",
								selectMenuOptions(Orientations),
								0,
								false,
							),
						},
						orientationPromptEmbed(),
					),
				)
			},
			actionOrientationSel: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				o, err := selected(ev, Orientations)
				if err != nil {
					return false, err
				}
				if o == OrientationCustom {
					var current string
					if c, ok := a.Orientation().Custom(); ok {
						current = c
					}
					return false, v.modal(
						ctx, ev, actionOrientationModal, "Set Your Custom Orientation Value",
						instructionsInput(
							"Enter your custom sexual orientation.",
							"Enter the text you want to display as your sexual orientation.",
						),
						discordgo.TextInput{
							CustomID:    inputValue,
							Label:       "Sexual Orientation",
							Style:       discordgo.TextInputShort,
							Placeholder: "eg. 'Frogge'",
							Value:       current,
							MaxLength:   maxCustomOrientationLength,
							Required:    false,
						},
					)
				}
				if err := a.SetOrientation(ctx, Enumerated(o)); err != nil {
					return false, err
				}
				return finish(ctx, ev)
			},
			actionOrientationModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				custom := truncate(ev.Field(inputValue), maxCustomOrientationLength)
				if err := a.SetOrientation(ctx, CustomText[Orientation](custom)); err != nil {
					return false, err
				}
				return finish(ctx, ev)
			},

			actionHeight: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.modal(
					ctx, ev, actionHeightModal, "Height Entry",
					instructionsInput(
						"Enter your height in feet and inches.",
						"Enter your height in feet and inches, or centimeters.",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Height",
						Style:       discordgo.TextInputShort,
						Placeholder: "eg. '6ft 2in'",
						Value:       heightInputValue(a.Height()),
						MaxLength:   maxHeightInputLength,
						Required:    false,
					},
				)
			},
			actionHeightModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, a.SetHeightInput(ctx, ev.Field(inputValue)))
			},
			actionAge: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.modal(
					ctx, ev, actionAgeModal, "Age Value Input",
					instructionsInput(
						"Enter your age below.",
						"Enter your age. It may be a numerical value or text.",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Age",
						Style:       discordgo.TextInputShort,
						Placeholder: "eg. '32' -or- 'Older than you think...'",
						Value:       ageInputValue(a.Age()),
						MaxLength:   maxAgeLength,
						Required:    false,
					},
				)
			},
			actionAgeModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, a.SetAge(ctx, ev.Field(inputValue)))
			},
			actionFriendID: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.modal(
					ctx, ev, actionFriendIDModal, "Friend ID Code Entry",
					instructionsInput(
						"Enter your friend ID/pairing code.",
						"Enter your alphanumeric Friend Pairing ID below.",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Friend ID",
						Style:       discordgo.TextInputShort,
						Placeholder: "eg. 'A1B2C3D4E5'",
						Value:       a.FriendID(),
						MaxLength:   maxFriendIDLength,
						Required:    false,
					},
				)
			},
			actionFriendIDModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, a.SetFriendID(ctx, ev.Field(inputValue)))
			},
		},
	)
}
