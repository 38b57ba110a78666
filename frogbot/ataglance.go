package frogbot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	maxCustomGenderLength      = 30
	maxCustomRaceLength        = 25
	maxCustomClanLength        = 25
	maxCustomOrientationLength = 40
	maxHeightInputLength       = 20
	maxAgeLength               = 30
	maxFriendIDLength          = 30
)

var (
	heightCentimeters = regexp.MustCompile(`(?i)^(\d+)\s*cm\.?$`)
	heightFeet        = regexp.MustCompile(`(?i)^(\d+)\s*(?:ft\.?|feet|')$`)
	heightInches      = regexp.MustCompile(`(?i)^(\d+)\s*(?:in\.?|inches|"|'')$`)
	heightFeetInches  = regexp.MustCompile(
		`(?i)^(\d+)\s*(?:ft\.?|feet|')\s*(\d+)\s*(?:in\.?|inches|"|'')$`,
	)
	signedInteger = regexp.MustCompile(`^[+-]?\d+$`)
)

// inchesToCentimeters converts with ceiling rounding, in integer math so
// exact multiples of 2.54 don't round up.
func inchesToCentimeters(inches int) int {
	return (inches*254 + 99) / 100
}

// ParseHeight converts "180 cm", "6 ft", "74 in" or "6ft 2in" style
// input to whole centimeters. Anything else returns an
// *InvalidHeightError.
func ParseHeight(input string) (int, error) {
	s := strings.TrimSpace(input)
	atoi := func(v string) (int, error) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, &InvalidHeightError{Value: input}
		}
		return n, nil
	}

	if m := heightCentimeters.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	if m := heightFeet.FindStringSubmatch(s); m != nil {
		ft, err := atoi(m[1])
		if err != nil {
			return 0, err
		}
		return inchesToCentimeters(ft * 12), nil
	}
	if m := heightInches.FindStringSubmatch(s); m != nil {
		in, err := atoi(m[1])
		if err != nil {
			return 0, err
		}
		return inchesToCentimeters(in), nil
	}
	if m := heightFeetInches.FindStringSubmatch(s); m != nil {
		ft, err := atoi(m[1])
		if err != nil {
			return 0, err
		}
		in, err := atoi(m[2])
		if err != nil {
			return 0, err
		}
		return inchesToCentimeters(ft*12 + in), nil
	}
	return 0, &InvalidHeightError{Value: input}
}

// FormatHeight renders centimeters as feet and inches, with the
// original value in parentheses.
func FormatHeight(cm int) string {
	inches := cm * 100 / 254
	return fmt.Sprintf("%d' %d\" (~%d cm.)", inches/12, inches%12, cm)
}

// heightInputValue is the modal prefill for a stored height.
func heightInputValue(m Measure) string {
	if n, ok := m.Number(); ok {
		inches := n * 100 / 254
		return fmt.Sprintf("%d' %d\"", inches/12, inches%12)
	}
	text, _ := m.Text()
	return text
}

// ageInputValue is the modal prefill for a stored age.
func ageInputValue(m Measure) string {
	if n, ok := m.Number(); ok {
		return strconv.Itoa(n)
	}
	text, _ := m.Text()
	return text
}

// ParseAge accepts a whole number (sign discarded) or free text.
func ParseAge(input string) Measure {
	s := strings.TrimSpace(input)
	if signedInteger.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			if n < 0 {
				n = -n
			}
			return Number(n)
		}
	}
	return Text(truncate(s, maxAgeLength))
}

type atAGlanceFields struct {
	Gender      Choice[Gender]
	Pronouns    []Pronoun
	Race        Choice[Race]
	Clan        Choice[Clan]
	Orientation Choice[Orientation]
	Height      Measure
	Age         Measure
	FriendID    *string
}

// AtAGlance holds the short demographic summary shown at the top of a
// card.
type AtAGlance struct {
	profile *Profile
	f       atAGlanceFields
}

// loadAtAGlance rebuilds the section from gender, pronouns, race, clan,
// orientation, height, age, mare.
func loadAtAGlance(p *Profile, raw []*string) *AtAGlance {
	return &AtAGlance{
		profile: p,
		f: atAGlanceFields{
			Gender:      decodeChoice(rawField(raw, 0), Genders),
			Pronouns:    decodeCodes(rawField(raw, 1), Pronouns),
			Race:        decodeChoice(rawField(raw, 2), Races),
			Clan:        decodeChoice(rawField(raw, 3), Clans),
			Orientation: decodeChoice(rawField(raw, 4), Orientations),
			Height:      decodeMeasure(rawField(raw, 5)),
			Age:         decodeMeasure(rawField(raw, 6)),
			FriendID:    rawField(raw, 7),
		},
	}
}

func (a *AtAGlance) Profile() *Profile { return a.profile }

func (a *AtAGlance) save(ctx context.Context, f atAGlanceFields) error {
	return a.profile.store.SaveAtAGlance(
		ctx, &AtAGlanceRecord{
			ProfileID:   a.profile.ID,
			Gender:      f.Gender.encode(),
			Pronouns:    encodeCodes(f.Pronouns),
			Race:        f.Race.encode(),
			Clan:        f.Clan.encode(),
			Orientation: f.Orientation.encode(),
			Height:      f.Height.encode(),
			Age:         f.Age.encode(),
			Mare:        f.FriendID,
		},
	)
}

func (a *AtAGlance) update(ctx context.Context, mutate func(*atAGlanceFields)) error {
	a.profile.mu.Lock()
	defer a.profile.mu.Unlock()
	next := a.f
	next.Pronouns = append([]Pronoun(nil), a.f.Pronouns...)
	mutate(&next)
	return commit(ctx, &a.f, next, a.save)
}

func (a *AtAGlance) Gender() Choice[Gender] {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.f.Gender
}

func (a *AtAGlance) Pronouns() []Pronoun {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return append([]Pronoun(nil), a.f.Pronouns...)
}

func (a *AtAGlance) Race() Choice[Race] {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.f.Race
}

func (a *AtAGlance) Clan() Choice[Clan] {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.f.Clan
}

func (a *AtAGlance) Orientation() Choice[Orientation] {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.f.Orientation
}

func (a *AtAGlance) Height() Measure {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.f.Height
}

func (a *AtAGlance) Age() Measure {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.f.Age
}

func (a *AtAGlance) FriendID() string {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return stringPointerValue(a.f.FriendID)
}

func (a *AtAGlance) SetGender(ctx context.Context, g Choice[Gender]) error {
	return a.update(ctx, func(f *atAGlanceFields) { f.Gender = g })
}

// SetPronouns replaces the pronoun list, dropping duplicates.
func (a *AtAGlance) SetPronouns(ctx context.Context, pronouns []Pronoun) error {
	seen := make(map[Pronoun]bool, len(pronouns))
	var uniq []Pronoun
	for _, p := range pronouns {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}
	return a.update(ctx, func(f *atAGlanceFields) { f.Pronouns = uniq })
}

func (a *AtAGlance) SetRace(ctx context.Context, r Choice[Race]) error {
	return a.update(ctx, func(f *atAGlanceFields) { f.Race = r })
}

func (a *AtAGlance) SetClan(ctx context.Context, c Choice[Clan]) error {
	return a.update(ctx, func(f *atAGlanceFields) { f.Clan = c })
}

// SetRaceClan sets both values in one write.
func (a *AtAGlance) SetRaceClan(ctx context.Context, r Choice[Race], c Choice[Clan]) error {
	return a.update(
		ctx, func(f *atAGlanceFields) {
			f.Race = r
			f.Clan = c
		},
	)
}

func (a *AtAGlance) SetOrientation(ctx context.Context, o Choice[Orientation]) error {
	return a.update(ctx, func(f *atAGlanceFields) { f.Orientation = o })
}

func (a *AtAGlance) SetHeight(ctx context.Context, h Measure) error {
	return a.update(ctx, func(f *atAGlanceFields) { f.Height = h })
}

// SetHeightInput parses and stores a height entered by the member.
// Blank input clears the height.
func (a *AtAGlance) SetHeightInput(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return a.SetHeight(ctx, Measure{})
	}
	cm, err := ParseHeight(input)
	if err != nil {
		return err
	}
	return a.SetHeight(ctx, Number(cm))
}

func (a *AtAGlance) SetAge(ctx context.Context, input string) error {
	age := ParseAge(input)
	return a.update(ctx, func(f *atAGlanceFields) { f.Age = age })
}

func (a *AtAGlance) SetFriendID(ctx context.Context, id string) error {
	v := optString(truncate(strings.TrimSpace(id), maxFriendIDLength))
	return a.update(ctx, func(f *atAGlanceFields) { f.FriendID = v })
}

func (a *AtAGlance) pronounText() string {
	labels := make([]string, 0, len(a.f.Pronouns))
	for _, p := range a.f.Pronouns {
		labels = append(labels, p.Label())
	}
	return strings.Join(labels, "/")
}

func (a *AtAGlance) heightText() string {
	if n, ok := a.f.Height.Number(); ok {
		return FormatHeight(n)
	}
	if t, ok := a.f.Height.Text(); ok {
		return "`" + t + "`"
	}
	return ""
}

func (a *AtAGlance) ageText() string {
	if n, ok := a.f.Age.Number(); ok {
		return strconv.Itoa(n)
	}
	if t, ok := a.f.Age.Text(); ok {
		return "`" + t + "`"
	}
	return ""
}

func (a *AtAGlance) Status() *discordgo.MessageEmbed {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()

	raceClan := orNotSet(a.f.Race.Label()) + "/" + orNotSet(a.f.Clan.Label())
	if a.f.Race.IsCustom() || a.f.Clan.IsCustom() {
		raceClan += "\n*(Custom Value(s))*"
	}

	genderPronouns := fmt.Sprintf(
		"%s -- *(%s)*",
		orNotSet(a.f.Gender.Label()),
		orNotSet(a.pronounText()),
	)
	if a.f.Gender.IsCustom() {
		genderPronouns += "\n*(Custom Value)*"
	}

	orientation := orNotSet(a.f.Orientation.Label())
	if a.f.Orientation.IsCustom() {
		orientation += "\n*(Custom Value)*"
	}

	e := newEmbed(
		"At A Glance Section Details for "+a.profile.details.charNameDisplay(),
		"*All sections, aside from **Race/Clan** are optional.*\n"+
			"*(Click the corresponding button below to edit each data point.)*\n"+
			separatorLine(38),
		a.profile.details.color(),
	)
	e.Fields = []*discordgo.MessageEmbedField{
		embedField("__Race/Clan__", raceClan, true),
		embedField("__Gender/Pronouns__", genderPronouns, true),
		spacerField(30),
		embedField("__Orientation__", orientation, true),
		embedField("__Friend ID__", orNotSet(stringPointerValue(a.f.FriendID)), true),
		spacerField(30),
		embedField("__Height__", orNotSet(a.heightText()), true),
		embedField("__Age__", orNotSet(a.ageText()), true),
	}
	return e
}

// summary is the at-a-glance block of the card, one line per set
// attribute, or "" when nothing is set.
func (a *AtAGlance) summary() string {
	var b strings.Builder
	if a.f.Gender.IsSet() {
		b.WriteString("__Gender:__ " + a.f.Gender.Label())
		if len(a.f.Pronouns) > 0 {
			b.WriteString(" -- *(" + a.pronounText() + ")*")
		}
		b.WriteString("\n")
	}
	if a.f.Race.IsSet() {
		b.WriteString("__Race:__ " + a.f.Race.Label())
		if a.f.Clan.IsSet() {
			b.WriteString(" / " + a.f.Clan.Label())
		}
		b.WriteString("\n")
	}
	if a.f.Orientation.IsSet() {
		b.WriteString("__Orientation:__ " + a.f.Orientation.Label() + "\n")
	}
	if h := a.heightText(); h != "" {
		b.WriteString("__Height:__ " + h + "\n")
	}
	if age := a.ageText(); age != "" {
		b.WriteString("__Age:__ " + age + "\n")
	}
	if a.f.FriendID != nil {
		b.WriteString("__Friend ID:__ " + *a.f.FriendID + "\n")
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString(separatorLine(15))
	return b.String()
}

// Compile returns the at-a-glance card field, or nil if nothing is set.
func (a *AtAGlance) Compile() *discordgo.MessageEmbedField {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.compile()
}

func (a *AtAGlance) compile() *discordgo.MessageEmbedField {
	value := a.summary()
	if value == "" {
		return nil
	}
	return embedField(
		fmt.Sprintf("%s  __At A Glance__ %s", EmojiEyes, EmojiEyes),
		value,
		false,
	)
}

func (a *AtAGlance) Progress() string {
	a.profile.mu.RLock()
	defer a.profile.mu.RUnlock()
	return a.progress()
}

func (a *AtAGlance) progress() string {
	return fmt.Sprintf(
		"%s\n__**At A Glance**__\n"+
			"%s -- Gender / Pronouns\n"+
			"%s -- Race / Clan\n"+
			"%s -- Orientation\n"+
			"%s -- Height\n"+
			"%s -- Age\n"+
			"%s -- Friend ID\n",
		separatorLine(15),
		progressEmoji(a.f.Gender.IsSet()),
		progressEmoji(a.f.Race.IsSet()),
		progressEmoji(a.f.Orientation.IsSet()),
		progressEmoji(a.f.Height.IsSet()),
		progressEmoji(a.f.Age.IsSet()),
		progressEmoji(a.f.FriendID != nil),
	)
}
