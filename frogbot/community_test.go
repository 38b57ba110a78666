package frogbot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a migrated sqlite database in t.TempDir().
func newTestStore(t testing.TB) *Store {
	t.Helper()
	cfg := DefaultTestConfig(t)

	db, err := CreateDB(context.Background(), cfg.DatabaseType, cfg.Database)
	require.NoError(t, err)
	require.NoError(t, configureSQLite(db))
	t.Cleanup(
		func() {
			if sqlDB, _ := db.DB(); sqlDB != nil {
				_ = sqlDB.Close()
			}
		},
	)
	return NewStore(NewDatabase(db, nil, false), nil)
}

// newTestProfile returns a fresh profile for user "u1" in guild "g1".
func newTestProfile(t testing.TB) (*Profile, *Registry, *Store) {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)
	registry := NewRegistry(store, nil)

	_, err := registry.EnsureCommunity(ctx, "g1")
	require.NoError(t, err)
	p, err := registry.GetProfile(ctx, "g1", "u1")
	require.NoError(t, err)
	return p, registry, store
}

// reloadProfile loads a second registry from store and returns its copy
// of the profile.
func reloadProfile(t testing.TB, store *Store, profileID string) *Profile {
	t.Helper()
	r := NewRegistry(store, nil)
	require.NoError(t, r.Load(context.Background()))
	p, ok := r.ProfileByID(profileID)
	require.True(t, ok, "profile %s not loaded", profileID)
	return p
}

func TestRegistry_GetProfile_UnknownGuild(t *testing.T) {
	registry := NewRegistry(newTestStore(t), nil)
	_, err := registry.GetProfile(context.Background(), "nope", "u1")
	assert.ErrorIs(t, err, ErrGuildNotFound)
}

func TestRegistry_GetProfile_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	registry := NewRegistry(store, nil)
	_, err := registry.EnsureCommunity(ctx, "g1")
	require.NoError(t, err)

	const n = 10
	profiles := make([]*Profile, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			profiles[i], errs[i] = registry.GetProfile(ctx, "g1", "u1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, profiles[0], profiles[i])
	}

	rows, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRegistry_SeparateCommunities(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newTestStore(t), nil)
	for _, g := range []string{"g1", "g2"} {
		_, err := registry.EnsureCommunity(ctx, g)
		require.NoError(t, err)
	}

	p1, err := registry.GetProfile(ctx, "g1", "u1")
	require.NoError(t, err)
	p2, err := registry.GetProfile(ctx, "g2", "u1")
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID, p2.ID)

	communities := registry.Communities()
	require.Len(t, communities, 2)
	assert.Equal(t, "g1", communities[0].ID)
}

func TestCommunity_PostChannels(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	registry := NewRegistry(store, nil)

	var changed []string
	registry.OnChannelsChanged(
		func(_ context.Context, guildID string) {
			changed = append(changed, guildID)
		},
	)

	c, err := registry.EnsureCommunity(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, c.PostChannels())

	require.NoError(t, c.AddPostChannel(ctx, "c1"))
	require.NoError(t, c.AddPostChannel(ctx, "c2"))
	require.NoError(t, c.AddPostChannel(ctx, "c1"))
	assert.Equal(t, []string{"c1", "c2"}, c.PostChannels())
	assert.Equal(t, []string{"g1", "g1"}, changed)

	cfg, err := store.LoadGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, cfg.Channels())

	require.NoError(t, c.RemovePostChannel(ctx, "c1"))
	assert.Equal(t, []string{"c2"}, c.PostChannels())

	require.NoError(t, c.SetPostChannels(ctx, []string{"c3", "", "c3", "c4"}))
	assert.Equal(t, []string{"c3", "c4"}, c.PostChannels())

	require.NoError(t, c.SetPostChannels(ctx, nil))
	cfg, err = store.LoadGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, cfg.PostChannels)
}

func TestRegistry_ReloadChannels(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	primary := NewRegistry(store, nil)
	c, err := primary.EnsureCommunity(ctx, "g1")
	require.NoError(t, err)

	secondary := NewRegistry(store, nil)
	require.NoError(t, secondary.Load(ctx))
	other, ok := secondary.GetCommunity("g1")
	require.True(t, ok)

	require.NoError(t, c.AddPostChannel(ctx, "c1"))
	assert.Empty(t, other.PostChannels())

	require.NoError(t, secondary.ReloadChannels(ctx, "g1"))
	assert.Equal(t, []string{"c1"}, other.PostChannels())

	_, err = store.LoadGuild(ctx, "missing")
	assert.ErrorIs(t, err, ErrGuildNotFound)
}

func TestRegistry_RemoveChannel(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newTestStore(t), nil)
	c, err := registry.EnsureCommunity(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, c.SetPostChannels(ctx, []string{"c1", "c2"}))

	require.NoError(t, registry.RemoveChannel(ctx, "g1", "c1"))
	require.NoError(t, registry.RemoveChannel(ctx, "g1", "unknown"))
	require.NoError(t, registry.RemoveChannel(ctx, "other-guild", "c2"))
	assert.Equal(t, []string{"c2"}, c.PostChannels())
}

func TestRegistry_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestProfile(t)

	require.NoError(t, p.Details().SetCharName(ctx, "Y'shtola Rhul"))
	require.NoError(t, p.Details().SetJobs(ctx, []string{"Black Mage", "Conjurer"}))
	require.NoError(t, p.Details().SetColor(ctx, "#A1B2C3"))
	require.NoError(t, p.Personality().SetLikes(ctx, []string{"Aether", "Tea"}))
	require.NoError(t, p.Personality().SetAboutMe(ctx, "Archon."))
	require.NoError(t, p.AtAGlance().SetRaceClan(ctx, Enumerated(RaceMiqote), Enumerated(ClanSeekerOfTheSun)))
	require.NoError(t, p.AtAGlance().SetPronouns(ctx, []Pronoun{PronounShe, PronounHer, PronounShe}))
	require.NoError(t, p.Images().SetThumbnail(ctx, "https://cdn.example.com/thumb.png"))
	_, err := p.Images().AddAdditional(ctx, "https://cdn.example.com/1.png", "First")
	require.NoError(t, err)
	_, err = p.Images().AddAdditional(ctx, "https://cdn.example.com/2.png", "")
	require.NoError(t, err)

	loaded := reloadProfile(t, store, p.ID)
	assert.Equal(t, "u1", loaded.UserID)
	assert.Equal(t, "g1", loaded.GuildID)
	assert.Equal(t, "Y'shtola Rhul", loaded.Details().CharName())
	assert.Equal(t, []string{"Black Mage", "Conjurer"}, loaded.Details().Jobs())
	color, ok := loaded.Details().Color()
	assert.True(t, ok)
	assert.Equal(t, 0xA1B2C3, color)
	assert.Equal(t, []string{"Aether", "Tea"}, loaded.Personality().Likes())
	assert.Empty(t, loaded.Personality().Dislikes())
	assert.Equal(t, "Archon.", loaded.Personality().AboutMe())
	assert.Equal(t, Enumerated(RaceMiqote), loaded.AtAGlance().Race())
	assert.Equal(t, Enumerated(ClanSeekerOfTheSun), loaded.AtAGlance().Clan())
	assert.Equal(t, []Pronoun{PronounShe, PronounHer}, loaded.AtAGlance().Pronouns())
	assert.Equal(t, "https://cdn.example.com/thumb.png", loaded.Images().Thumbnail())

	addl := loaded.Images().AdditionalImages()
	require.Len(t, addl, 2)
	captions := map[string]*string{}
	for _, img := range addl {
		captions[img.URL] = img.Caption
	}
	require.NotNil(t, captions["https://cdn.example.com/1.png"])
	assert.Equal(t, "First", *captions["https://cdn.example.com/1.png"])
	assert.Nil(t, captions["https://cdn.example.com/2.png"])
}

func TestRegistry_LoadRoundTrip_NumericCustomValues(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestProfile(t)

	require.NoError(t, p.AtAGlance().SetGender(ctx, CustomText[Gender]("1")))
	require.NoError(t, p.AtAGlance().SetOrientation(ctx, CustomText[Orientation]("50")))
	require.NoError(t, p.AtAGlance().SetRaceClan(ctx, CustomText[Race]("#7"), CustomText[Clan]("12")))

	loaded := reloadProfile(t, store, p.ID)
	assert.Equal(t, CustomText[Gender]("1"), loaded.AtAGlance().Gender())
	assert.Equal(t, CustomText[Orientation]("50"), loaded.AtAGlance().Orientation())
	assert.Equal(t, CustomText[Race]("#7"), loaded.AtAGlance().Race())
	assert.Equal(t, CustomText[Clan]("12"), loaded.AtAGlance().Clan())
}
