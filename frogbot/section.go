package frogbot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Section is one independently persisted slice of a Profile. Each
// implementation also has a typed Compile method whose output is only
// consumed by Profile.Compile.
//
// Setters persist the section's full row before the in-memory value
// changes, so a failed write leaves the section as it was.
type Section interface {
	// Profile returns the owning profile.
	Profile() *Profile

	// Status renders every field's current value for the owner.
	Status() *discordgo.MessageEmbed

	// Progress renders the section's completion checklist.
	Progress() string
}

var (
	_ Section = (*Details)(nil)
	_ Section = (*Personality)(nil)
	_ Section = (*AtAGlance)(nil)
	_ Section = (*Images)(nil)
)

// rawField returns raw[i], or nil if the row is short.
func rawField(raw []*string, i int) *string {
	if i < len(raw) {
		return raw[i]
	}
	return nil
}

// splitCommaList parses "a, b ,c" style input into titleized entries.
func splitCommaList(input string) []string {
	var items []string
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, titleize(part))
	}
	return items
}

// commit persists next via save and, on success, stores it in cur.
// The caller must hold the profile's write lock.
func commit[T any](
	ctx context.Context,
	cur *T,
	next T,
	save func(context.Context, T) error,
) error {
	if err := save(ctx, next); err != nil {
		return err
	}
	*cur = next
	return nil
}
