package frogbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	maxCharNameLength = 50
	maxRatesLength    = 500
	maxJobs           = 3
	maxJobLength      = 20
)

type detailsFields struct {
	CharName *string
	URL      *string
	Color    *int
	Jobs     []string
	Rates    *string
	PostURL  *string
}

// Details holds the character name, custom URL, accent color, jobs,
// rates, and the location of the last published card.
type Details struct {
	profile *Profile
	f       detailsFields
}

// loadDetails rebuilds the section from the details columns of a
// profile_master row: char_name, url, color, jobs, rates, post_url.
func loadDetails(p *Profile, raw []*string) *Details {
	f := detailsFields{
		CharName: rawField(raw, 0),
		URL:      rawField(raw, 1),
		Jobs:     decodeList(rawField(raw, 3)),
		Rates:    rawField(raw, 4),
		PostURL:  rawField(raw, 5),
	}
	if c := rawField(raw, 2); c != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(*c)); err == nil {
			f.Color = &v
		}
	}
	return &Details{profile: p, f: f}
}

func (d *Details) Profile() *Profile { return d.profile }

func (d *Details) record(f detailsFields) *DetailsRecord {
	return &DetailsRecord{
		ProfileID: d.profile.ID,
		CharName:  f.CharName,
		URL:       f.URL,
		Color:     f.Color,
		Jobs:      encodeList(f.Jobs),
		Rates:     f.Rates,
		PostURL:   f.PostURL,
	}
}

func (d *Details) save(ctx context.Context, f detailsFields) error {
	return d.profile.store.SaveDetails(ctx, d.record(f))
}

func (d *Details) CharName() string {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return stringPointerValue(d.f.CharName)
}

func (d *Details) URL() string {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return stringPointerValue(d.f.URL)
}

// Color returns the accent color and whether one is set.
func (d *Details) Color() (int, bool) {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	if d.f.Color == nil {
		return 0, false
	}
	return *d.f.Color, true
}

func (d *Details) Jobs() []string {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return append([]string(nil), d.f.Jobs...)
}

func (d *Details) Rates() string {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return stringPointerValue(d.f.Rates)
}

func (d *Details) PostURL() string {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return stringPointerValue(d.f.PostURL)
}

func (d *Details) SetCharName(ctx context.Context, name string) error {
	d.profile.mu.Lock()
	defer d.profile.mu.Unlock()
	next := d.f
	next.CharName = optString(truncate(strings.TrimSpace(name), maxCharNameLength))
	return commit(ctx, &d.f, next, d.save)
}

func (d *Details) SetURL(ctx context.Context, url string) error {
	d.profile.mu.Lock()
	defer d.profile.mu.Unlock()
	next := d.f
	next.URL = optString(url)
	return commit(ctx, &d.f, next, d.save)
}

// SetColor parses a hex color ("#A1B2C3" or "a1b2c3"). Invalid input
// returns an *InvalidColorError and leaves the color unchanged. Blank
// input clears the color.
func (d *Details) SetColor(ctx context.Context, input string) error {
	var color *int
	if strings.TrimSpace(input) != "" {
		v, err := parseColor(input)
		if err != nil {
			return err
		}
		color = &v
	}
	d.profile.mu.Lock()
	defer d.profile.mu.Unlock()
	next := d.f
	next.Color = color
	return commit(ctx, &d.f, next, d.save)
}

// SetJobs keeps up to three non-blank jobs, in order.
func (d *Details) SetJobs(ctx context.Context, jobs []string) error {
	var cleaned []string
	for _, j := range jobs {
		j = strings.TrimSpace(j)
		if j == "" {
			continue
		}
		cleaned = append(cleaned, truncate(j, maxJobLength))
		if len(cleaned) == maxJobs {
			break
		}
	}
	d.profile.mu.Lock()
	defer d.profile.mu.Unlock()
	next := d.f
	next.Jobs = cleaned
	return commit(ctx, &d.f, next, d.save)
}

func (d *Details) SetRates(ctx context.Context, rates string) error {
	d.profile.mu.Lock()
	defer d.profile.mu.Unlock()
	next := d.f
	next.Rates = optString(truncate(strings.TrimSpace(rates), maxRatesLength))
	return commit(ctx, &d.f, next, d.save)
}

// setPostURL records where the card was published. Caller holds the
// profile write lock.
func (d *Details) setPostURL(ctx context.Context, url string) error {
	next := d.f
	next.PostURL = optString(url)
	return commit(ctx, &d.f, next, d.save)
}

func (d *Details) charNameDisplay() string {
	return orNotSet(stringPointerValue(d.f.CharName))
}

func (d *Details) color() int {
	if d.f.Color == nil {
		return 0
	}
	return *d.f.Color
}

func (d *Details) Status() *discordgo.MessageEmbed {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return d.status()
}

func (d *Details) status() *discordgo.MessageEmbed {
	jobs := notSet
	if len(d.f.Jobs) > 0 {
		jobs = bulletList(d.f.Jobs)
	}
	colorField := notSet
	if d.f.Color != nil {
		colorField = fmt.Sprintf("%s -- (__#%s__)", EmojiArrowLeft, colorHex(*d.f.Color))
	}

	charName := "**Character Name:** " + d.charNameDisplay()
	sep := drawSeparator(charName, 0, 0)

	e := newEmbed(
		"Profile Details",
		sep+"\n"+charName+"\n"+sep+"\n"+
			"Select a button to add/edit the corresponding profile attribute.",
		d.color(),
	)
	e.Timestamp = timestamp()
	e.Fields = []*discordgo.MessageEmbedField{
		embedField("__Color__", colorField, true),
		embedField("__Jobs__", jobs, true),
		embedField("__Custom URL__", orNotSet(stringPointerValue(d.f.URL)), false),
		embedField("__Rates__", orNotSet(stringPointerValue(d.f.Rates)), false),
	}
	return e
}

// DetailsFragments is the compiled form of Details.
type DetailsFragments struct {
	CharName string
	URL      string
	Color    int
	Jobs     string
	Rates    *discordgo.MessageEmbedField
}

func (d *Details) Compile() DetailsFragments {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return d.compile()
}

func (d *Details) compile() DetailsFragments {
	out := DetailsFragments{
		CharName: stringPointerValue(d.f.CharName),
		URL:      stringPointerValue(d.f.URL),
		Color:    d.color(),
		Jobs:     strings.Join(d.f.Jobs, "/"),
	}
	if d.f.Rates != nil {
		out.Rates = embedField(
			fmt.Sprintf("%s __Rates__ %s", EmojiFlyingMoney, EmojiFlyingMoney),
			*d.f.Rates+"\n"+separatorLine(15),
			false,
		)
	}
	return out
}

func (d *Details) Progress() string {
	d.profile.mu.RLock()
	defer d.profile.mu.RUnlock()
	return d.progress()
}

func (d *Details) progress() string {
	return fmt.Sprintf(
		"%s\n__**Details**__\n"+
			"%s -- Character Name\n"+
			"%s -- Custom URL\n"+
			"%s -- Accent Color\n"+
			"%s -- Jobs List\n"+
			"%s -- Rates Field\n",
		separatorLine(15),
		progressEmoji(d.f.CharName != nil),
		progressEmoji(d.f.URL != nil),
		progressEmoji(d.f.Color != nil),
		progressEmoji(len(d.f.Jobs) > 0),
		progressEmoji(d.f.Rates != nil),
	)
}
