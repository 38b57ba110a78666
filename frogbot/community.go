package frogbot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Community is one discord server: its approved posting channels and
// its members' profiles.
type Community struct {
	ID string

	mu           sync.RWMutex
	postChannels []string
	profiles     map[string]*Profile

	store    ProfileStore
	logger   *slog.Logger
	registry *Registry
}

func newCommunity(r *Registry, cfg GuildConfig) *Community {
	return &Community{
		ID:           cfg.GuildID,
		postChannels: cfg.Channels(),
		profiles:     make(map[string]*Profile),
		store:        r.store,
		logger:       r.logger.With("guild_id", cfg.GuildID),
		registry:     r,
	}
}

// PostChannels returns the approved posting channel ids, in the order
// they were added.
func (c *Community) PostChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.postChannels)
}

// Profile returns the member's profile if one exists.
func (c *Community) Profile(userID string) (*Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[userID]
	return p, ok
}

// Profiles returns every profile in the community, ordered by member id.
func (c *Community) Profiles() []*Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	profiles := make([]*Profile, 0, len(c.profiles))
	for _, p := range c.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(
		profiles, func(i, j int) bool {
			return profiles[i].UserID < profiles[j].UserID
		},
	)
	return profiles
}

// AddPostChannel approves a channel for posting. Adding a channel that
// is already approved is a no-op.
func (c *Community) AddPostChannel(ctx context.Context, channelID string) error {
	return c.updateChannels(
		ctx, func(channels []string) []string {
			if slices.Contains(channels, channelID) {
				return channels
			}
			return append(channels, channelID)
		},
	)
}

// RemovePostChannel withdraws approval for a channel.
func (c *Community) RemovePostChannel(ctx context.Context, channelID string) error {
	return c.updateChannels(
		ctx, func(channels []string) []string {
			return slices.DeleteFunc(
				channels, func(ch string) bool {
					return ch == channelID
				},
			)
		},
	)
}

// SetPostChannels replaces the approved channel list.
func (c *Community) SetPostChannels(ctx context.Context, channelIDs []string) error {
	return c.updateChannels(
		ctx, func([]string) []string {
			var out []string
			for _, id := range channelIDs {
				if id != "" && !slices.Contains(out, id) {
					out = append(out, id)
				}
			}
			return out
		},
	)
}

func (c *Community) updateChannels(
	ctx context.Context,
	mutate func([]string) []string,
) error {
	c.mu.Lock()
	next := mutate(slices.Clone(c.postChannels))
	if slices.Equal(next, c.postChannels) {
		c.mu.Unlock()
		return nil
	}
	if err := c.store.SaveGuildChannels(ctx, c.ID, next); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("error saving post channels: %w", err)
	}
	c.postChannels = next
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "post channels updated", "channels", next)
	c.registry.channelsChanged(ctx, c.ID)
	return nil
}

// setChannels replaces the cached channel list without persisting it.
func (c *Community) setChannels(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postChannels = channels
}

// PostChannelsEmbed lists the approved channels.
func (c *Community) PostChannelsEmbed() *discordgo.MessageEmbed {
	channels := c.PostChannels()
	lines := make([]string, 0, len(channels))
	for _, ch := range channels {
		lines = append(lines, fmt.Sprintf(channelMentionList, ch))
	}
	value := notSet
	if len(lines) > 0 {
		value = strings.Join(lines, "\n")
	}
	e := newEmbed("Profile Posting Channels", "", 0)
	e.Fields = []*discordgo.MessageEmbedField{
		embedField("__Approved Channels__", value, false),
	}
	e.Timestamp = timestamp()
	return e
}

func (c *Community) add(p *Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.UserID] = p
}

// Registry caches every community and profile the bot knows about.
type Registry struct {
	mu          sync.RWMutex
	communities map[string]*Community
	byID        map[string]*Profile

	store  ProfileStore
	logger *slog.Logger
	create singleflight.Group

	onChannelsChanged func(ctx context.Context, guildID string)
}

func NewRegistry(store ProfileStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		communities: make(map[string]*Community),
		byID:        make(map[string]*Profile),
		store:       store,
		logger:      logger.With(loggerNameKey, "registry"),
	}
}

// OnChannelsChanged registers fn to be called after a community's post
// channels are saved.
func (r *Registry) OnChannelsChanged(fn func(ctx context.Context, guildID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChannelsChanged = fn
}

func (r *Registry) channelsChanged(ctx context.Context, guildID string) {
	r.mu.RLock()
	fn := r.onChannelsChanged
	r.mu.RUnlock()
	if fn != nil {
		fn(ctx, guildID)
	}
}

// Load populates the registry from the database: guild configs, the
// profile_master view and additional images.
func (r *Registry) Load(ctx context.Context) error {
	var (
		guilds []GuildConfig
		rows   [][]*string
		images []AdditionalImageRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(
		func() (err error) {
			guilds, err = r.store.LoadGuilds(gctx)
			return err
		},
	)
	g.Go(
		func() (err error) {
			rows, err = r.store.LoadProfiles(gctx)
			return err
		},
	)
	g.Go(
		func() (err error) {
			images, err = r.store.LoadAdditionalImages(gctx)
			return err
		},
	)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("error loading profiles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cfg := range guilds {
		if _, ok := r.communities[cfg.GuildID]; !ok {
			r.communities[cfg.GuildID] = newCommunity(r, cfg)
		}
	}

	for _, row := range rows {
		guildID := stringPointerValue(row[colGuildID])
		c, ok := r.communities[guildID]
		if !ok {
			c = newCommunity(r, GuildConfig{GuildID: guildID})
			r.communities[guildID] = c
		}
		p, err := loadProfile(c, row)
		if err != nil {
			r.logger.ErrorContext(ctx, "skipping profile row", tint.Err(err))
			continue
		}
		c.add(p)
		r.byID[p.ID] = p
	}

	for _, img := range images {
		if p, ok := r.byID[img.ProfileID]; ok {
			p.images.attachAdditional(img)
		}
	}

	r.logger.InfoContext(
		ctx,
		"loaded registry",
		"communities", len(r.communities),
		"profiles", len(r.byID),
		"additional_images", len(images),
	)
	return nil
}

// EnsureCommunity returns the community, creating its config row first
// if the bot hasn't seen it before.
func (r *Registry) EnsureCommunity(ctx context.Context, guildID string) (*Community, error) {
	if c, ok := r.GetCommunity(guildID); ok {
		return c, nil
	}
	cfg, err := r.store.EnsureGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.communities[guildID]; ok {
		return c, nil
	}
	c := newCommunity(r, cfg)
	r.communities[guildID] = c
	return c, nil
}

// GetCommunity looks up a community without creating it.
func (r *Registry) GetCommunity(guildID string) (*Community, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.communities[guildID]
	return c, ok
}

// Communities returns every known community, ordered by id.
func (r *Registry) Communities() []*Community {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Community, 0, len(r.communities))
	for _, c := range r.communities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ProfileByID finds a profile in any community.
func (r *Registry) ProfileByID(profileID string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[profileID]
	return p, ok
}

// GetProfile returns the member's profile in the community, creating it
// on first access. Concurrent first accesses for the same member share
// a single creation.
func (r *Registry) GetProfile(ctx context.Context, guildID string, userID string) (
	*Profile,
	error,
) {
	c, ok := r.GetCommunity(guildID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	if p, ok := c.Profile(userID); ok {
		return p, nil
	}

	key := fmt.Sprintf(customIDFormat, guildID, userID)
	v, err, _ := r.create.Do(
		key, func() (any, error) {
			if p, ok := c.Profile(userID); ok {
				return p, nil
			}
			id, err := r.store.CreateProfile(ctx, guildID, userID)
			if err != nil {
				return nil, err
			}
			p := newProfile(c, id, userID)
			c.add(p)
			r.mu.Lock()
			r.byID[id] = p
			r.mu.Unlock()
			return p, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return v.(*Profile), nil
}

// ReloadChannels refreshes a community's post channels from the
// database, after another instance changed them.
func (r *Registry) ReloadChannels(ctx context.Context, guildID string) error {
	cfg, err := r.store.LoadGuild(ctx, guildID)
	if err != nil {
		return err
	}
	c, ok := r.GetCommunity(guildID)
	if !ok {
		r.mu.Lock()
		if c, ok = r.communities[guildID]; !ok {
			c = newCommunity(r, cfg)
			r.communities[guildID] = c
		}
		r.mu.Unlock()
	}
	c.setChannels(cfg.Channels())
	r.logger.InfoContext(ctx, "reloaded post channels", "guild_id", guildID)
	return nil
}

// RemoveChannel drops a deleted channel from its community's post
// channels. Unknown guilds or unapproved channels are ignored.
func (r *Registry) RemoveChannel(ctx context.Context, guildID string, channelID string) error {
	c, ok := r.GetCommunity(guildID)
	if !ok {
		return nil
	}
	return c.RemovePostChannel(ctx, channelID)
}
