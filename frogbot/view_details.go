package frogbot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	actionCharName      = "char_name"
	actionCharNameModal = "char_name_modal"
	actionURL           = "url"
	actionURLModal      = "url_modal"
	actionColor         = "color"
	actionColorModal    = "color_modal"
	actionJobs          = "jobs"
	actionJobsModal     = "jobs_modal"
	actionRates         = "rates"
	actionRatesModal    = "rates_modal"

	inputValue = "value"
)

// runDetails shows the Details status view for /profiles details.
func (b *FrogBot) runDetails(ctx context.Context, profile *Profile, origin InteractionHandler) error {
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	d := profile.Details()

	render := func() *discordgo.InteractionResponseData {
		_, hasColor := d.Color()
		return embedsData(
			buttonRows(
				v.button("Character Name", actionCharName, d.CharName() != ""),
				v.button("Custom URL", actionURL, d.URL() != ""),
				v.button("Accent Color", actionColor, hasColor),
				v.button("RP Jobs", actionJobs, len(d.Jobs()) > 0),
				v.button("Rates", actionRates, d.Rates() != ""),
				v.closeButton(),
			),
			d.Status(),
		)
	}
	saved := func(ctx context.Context, ev ComponentEvent, err error) (bool, error) {
		if err != nil {
			return false, err
		}
		return false, v.update(ctx, ev, render())
	}

	return v.run(
		ctx, render, map[string]viewAction{
			actionCharName: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.modal(
					ctx, ev, actionCharNameModal, "Character Name Modal",
					instructionsInput(
						"Enter your character's name.",
						"Enter or edit your character's name on the line below.",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Character Name",
						Style:       discordgo.TextInputShort,
						Placeholder: "eg. 'Allegro Vivo'",
						Value:       d.CharName(),
						Required:    true,
						MaxLength:   maxCharNameLength,
					},
				)
			},
			actionCharNameModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, d.SetCharName(ctx, ev.Field(inputValue)))
			},
			actionURL: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.modal(
					ctx, ev, actionURLModal, "Edit Profile URL",
					instructionsInput(
						"Enter your desired custom URL.",
						"Enter your desired custom URL.\n"+
							"This will be the link that your character name will redirect to if clicked.",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Custom URL",
						Style:       discordgo.TextInputShort,
						Placeholder: "eg. 'https://twitter.com/HomeHopping'",
						Value:       d.URL(),
						Required:    false,
					},
				)
			},
			actionURLModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, d.SetURL(ctx, ev.Field(inputValue)))
			},
			actionColor: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				var current string
				if c, ok := d.Color(); ok {
					current = colorHex(c)
				}
				return false, v.modal(
					ctx, ev, actionColorModal, "Custom Profile URL",
					instructionsInput(
						"Enter your desired accent color.",
						"Enter the 6-character HEX code for your desired profile accent color.\n"+
							"Google Color Picker:\n"+
							"https://g.co/kgs/psoVFb",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Accent Color HEX",
						Style:       discordgo.TextInputShort,
						Placeholder: "#4ABC23",
						Value:       current,
						Required:    true,
						MinLength:   6,
						MaxLength:   7,
					},
				)
			},
			actionColorModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, d.SetColor(ctx, ev.Field(inputValue)))
			},
			actionJobs: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				jobs := d.Jobs()
				inputs := []discordgo.TextInput{
					instructionsInput(
						"Enter up to three RP professions for your character.",
						"Enter the RP professions to display on your profile. "+
							"(Limit 3 for formatting reasons.)\n"+
							"If you want to delete a job, just empty the corresponding box "+
							"and submit the dialog.",
					),
				}
				placeholders := []string{"eg. 'Professional Frog'", "eg. 'Taco Wrangler'", "eg. 'Stunt Camel'"}
				for n := range maxJobs {
					var current string
					if n < len(jobs) {
						current = jobs[n]
					}
					inputs = append(
						inputs, discordgo.TextInput{
							CustomID:    fmt.Sprintf("job_%d", n),
							Label:       fmt.Sprintf("Job #%d", n+1),
							Style:       discordgo.TextInputShort,
							Placeholder: placeholders[n],
							Value:       current,
							MaxLength:   maxJobLength,
							Required:    false,
						},
					)
				}
				return false, v.modal(ctx, ev, actionJobsModal, "Edit Character Jobs", inputs...)
			},
			actionJobsModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				jobs := make([]string, 0, maxJobs)
				for n := range maxJobs {
					jobs = append(jobs, ev.Field(fmt.Sprintf("job_%d", n)))
				}
				return saved(ctx, ev, d.SetJobs(ctx, jobs))
			},
			actionRates: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return false, v.modal(
					ctx, ev, actionRatesModal, "Profile Rates Section",
					instructionsInput(
						"Enter your Rates section information below.",
						"Enter the information for your 'Rates' section "+
							"exactly as you want it displayed on your profile.\n"+
							"This supports markdown and emojis.",
					),
					discordgo.TextInput{
						CustomID:    inputValue,
						Label:       "Rates Section",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "eg. '250k gil per photoshoot'",
						Value:       d.Rates(),
						MaxLength:   maxRatesLength,
						Required:    false,
					},
				)
			},
			actionRatesModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return saved(ctx, ev, d.SetRates(ctx, ev.Field(inputValue)))
			},
		},
	)
}
