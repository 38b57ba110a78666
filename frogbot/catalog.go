package frogbot

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Enum is implemented by every catalog type. Codes are persisted, so
// existing values must never be renumbered.
type Enum interface {
	~int
	Label() string
}

// Option is a (label, code) pair, in the order a catalog presents it.
type Option struct {
	Label string `json:"label"`
	Code  int    `json:"code"`
}

type Gender int

const (
	GenderMale      Gender = 1
	GenderFemale    Gender = 2
	GenderNonBinary Gender = 3
	GenderCustom    Gender = 4
)

var Genders = []Gender{GenderMale, GenderFemale, GenderNonBinary, GenderCustom}

var genderLabels = map[Gender]string{
	GenderMale:      "Male",
	GenderFemale:    "Female",
	GenderNonBinary: "Non-Binary",
	GenderCustom:    "Custom",
}

func (g Gender) Label() string { return genderLabels[g] }

type Pronoun int

const (
	PronounHe     Pronoun = 1
	PronounHim    Pronoun = 2
	PronounHis    Pronoun = 3
	PronounShe    Pronoun = 4
	PronounHer    Pronoun = 5
	PronounHers   Pronoun = 6
	PronounThey   Pronoun = 7
	PronounThem   Pronoun = 8
	PronounTheirs Pronoun = 9
	PronounZe     Pronoun = 10
	PronounHir    Pronoun = 11
	PronounPer    Pronoun = 12
	PronounPers   Pronoun = 13
	PronounIt     Pronoun = 14
	PronounIts    Pronoun = 15
)

var Pronouns = []Pronoun{
	PronounHe, PronounHim, PronounHis, PronounShe, PronounHer,
	PronounHers, PronounThey, PronounThem, PronounTheirs, PronounZe,
	PronounHir, PronounPer, PronounPers, PronounIt, PronounIts,
}

var pronounLabels = map[Pronoun]string{
	PronounHe:     "He",
	PronounHim:    "Him",
	PronounHis:    "His",
	PronounShe:    "She",
	PronounHer:    "Her",
	PronounHers:   "Hers",
	PronounThey:   "They",
	PronounThem:   "Them",
	PronounTheirs: "Theirs",
	PronounZe:     "Ze",
	PronounHir:    "Hir",
	PronounPer:    "Per",
	PronounPers:   "Pers",
	PronounIt:     "It",
	PronounIts:    "Its",
}

func (p Pronoun) Label() string { return pronounLabels[p] }

type Race int

const (
	RaceAura           Race = 1
	RaceElezen         Race = 2
	RaceFantasiaAddict Race = 3
	RaceHrothgar       Race = 4
	RaceHyur           Race = 5
	RaceLalafell       Race = 6
	RaceMiqote         Race = 7
	RaceRoegadyn       Race = 8
	RaceViera          Race = 9
	RaceCustom         Race = 999
)

var Races = []Race{
	RaceAura, RaceElezen, RaceFantasiaAddict, RaceHrothgar, RaceHyur,
	RaceLalafell, RaceMiqote, RaceRoegadyn, RaceViera, RaceCustom,
}

var raceLabels = map[Race]string{
	RaceAura:           "Au ra",
	RaceElezen:         "Elezen",
	RaceFantasiaAddict: "Fantasia Addict",
	RaceHrothgar:       "Hrothgar",
	RaceHyur:           "Hyur",
	RaceLalafell:       "Lalafell",
	RaceMiqote:         "Miqo'te",
	RaceRoegadyn:       "Roegadyn",
	RaceViera:          "Viera",
	RaceCustom:         "Custom",
}

func (r Race) Label() string { return raceLabels[r] }

type Clan int

const (
	ClanDunesfolk       Clan = 1
	ClanDuskwight       Clan = 2
	ClanHelion          Clan = 3
	ClanHellsguard      Clan = 4
	ClanHighlander      Clan = 5
	ClanKeeperOfTheMoon Clan = 6
	ClanMidlander       Clan = 7
	ClanPlainsfolk      Clan = 8
	ClanRaen            Clan = 9
	ClanRava            Clan = 10
	ClanSeaWolf         Clan = 11
	ClanSeekerOfTheSun  Clan = 12
	ClanTheLost         Clan = 13
	ClanVeena           Clan = 14
	ClanWildwood        Clan = 15
	ClanXaela           Clan = 16
	ClanCustom          Clan = 998
	ClanNA              Clan = 999
)

var Clans = []Clan{
	ClanDunesfolk, ClanDuskwight, ClanHelion, ClanHellsguard,
	ClanHighlander, ClanKeeperOfTheMoon, ClanMidlander, ClanPlainsfolk,
	ClanRaen, ClanRava, ClanSeaWolf, ClanSeekerOfTheSun, ClanTheLost,
	ClanVeena, ClanWildwood, ClanXaela, ClanCustom, ClanNA,
}

var clanLabels = map[Clan]string{
	ClanDunesfolk:       "Dunesfolk",
	ClanDuskwight:       "Duskwight",
	ClanHelion:          "Helion",
	ClanHellsguard:      "Hellsguard",
	ClanHighlander:      "Highlander",
	ClanKeeperOfTheMoon: "Keeper of the Moon",
	ClanMidlander:       "Midlander",
	ClanPlainsfolk:      "Plainsfolk",
	ClanRaen:            "Raen",
	ClanRava:            "Rava",
	ClanSeaWolf:         "Sea Wolf",
	ClanSeekerOfTheSun:  "Seeker of the Sun",
	ClanTheLost:         "The Lost",
	ClanVeena:           "Veena",
	ClanWildwood:        "Wildwood",
	ClanXaela:           "Xaela",
	ClanCustom:          "Custom",
	ClanNA:              "NA",
}

func (c Clan) Label() string { return clanLabels[c] }

// raceClans maps a race to its two lore clans. Races not listed here
// (custom races included) only get the Custom/NA fallbacks.
var raceClans = map[Race][2]Clan{
	RaceAura:     {ClanRaen, ClanXaela},
	RaceElezen:   {ClanDuskwight, ClanWildwood},
	RaceHrothgar: {ClanHelion, ClanTheLost},
	RaceHyur:     {ClanHighlander, ClanMidlander},
	RaceLalafell: {ClanDunesfolk, ClanPlainsfolk},
	RaceMiqote:   {ClanKeeperOfTheMoon, ClanSeekerOfTheSun},
	RaceRoegadyn: {ClanHellsguard, ClanSeaWolf},
	RaceViera:    {ClanRava, ClanVeena},
}

// ClanOptionsFor returns the clans selectable for the given race.
func ClanOptionsFor(race Race) []Clan {
	pair, ok := raceClans[race]
	if !ok {
		return []Clan{ClanCustom, ClanNA}
	}
	return []Clan{pair[0], pair[1], ClanCustom, ClanNA}
}

type Orientation int

const (
	OrientationAromantic    Orientation = 1
	OrientationAsexual      Orientation = 2
	OrientationBisexual     Orientation = 3
	OrientationDemiromantic Orientation = 4
	OrientationDemisexual   Orientation = 5
	OrientationGay          Orientation = 6
	OrientationLesbian      Orientation = 7
	OrientationPansexual    Orientation = 8
	OrientationStraight     Orientation = 9
	OrientationCustom       Orientation = 999
)

var Orientations = []Orientation{
	OrientationAromantic, OrientationAsexual, OrientationBisexual,
	OrientationDemiromantic, OrientationDemisexual, OrientationGay,
	OrientationLesbian, OrientationPansexual, OrientationStraight,
	OrientationCustom,
}

var orientationLabels = map[Orientation]string{
	OrientationAromantic:    "Aromantic",
	OrientationAsexual:      "Asexual",
	OrientationBisexual:     "Bisexual",
	OrientationDemiromantic: "Demiromantic",
	OrientationDemisexual:   "Demisexual",
	OrientationGay:          "Gay",
	OrientationLesbian:      "Lesbian",
	OrientationPansexual:    "Pansexual",
	OrientationStraight:     "Straight",
	OrientationCustom:       "Custom",
}

func (o Orientation) Label() string { return orientationLabels[o] }

// SectionType identifies a profile slot in menus and the add_image
// command.
type SectionType int

const (
	SectionLikes            SectionType = 1
	SectionDislikes         SectionType = 2
	SectionPersonality      SectionType = 3
	SectionAboutMe          SectionType = 4
	SectionThumbnail        SectionType = 5
	SectionMainImage        SectionType = 6
	SectionAdditionalImages SectionType = 7
)

var SectionTypes = []SectionType{
	SectionLikes, SectionDislikes, SectionPersonality, SectionAboutMe,
	SectionThumbnail, SectionMainImage, SectionAdditionalImages,
}

var sectionTypeLabels = map[SectionType]string{
	SectionLikes:            "Likes",
	SectionDislikes:         "Dislikes",
	SectionPersonality:      "Personality",
	SectionAboutMe:          "About Me",
	SectionThumbnail:        "Thumbnail",
	SectionMainImage:        "Main Image",
	SectionAdditionalImages: "Additional Image",
}

func (s SectionType) Label() string { return sectionTypeLabels[s] }

// Options lists the catalog values as (label, code) pairs.
func Options[T Enum](values []T) []Option {
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{Label: v.Label(), Code: int(v)})
	}
	return opts
}

// lookupCode returns the catalog value with the given code, if the
// catalog still contains it.
func lookupCode[T Enum](values []T, code int) (T, bool) {
	for _, v := range values {
		if int(v) == code {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// selectMenuOptions renders catalog values as discord select options.
// Values in selected are marked as the default selection.
func selectMenuOptions[T Enum](values []T, selected ...T) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, 0, len(values))
	for _, v := range values {
		opt := discordgo.SelectMenuOption{
			Label: v.Label(),
			Value: strconv.Itoa(int(v)),
		}
		for _, s := range selected {
			if s == v {
				opt.Default = true
			}
		}
		opts = append(opts, opt)
	}
	return opts
}
