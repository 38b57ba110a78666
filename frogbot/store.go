package frogbot

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

const profileMasterView = "profile_master"

// profile_master column layout. Bulk loading slices each row by these
// fixed ranges, so the view and these bounds must change together.
const (
	colProfileID = 0
	colUserID    = 1
	colGuildID   = 2

	detailsStart     = 3
	personalityStart = 9
	atAGlanceStart   = 13
	imagesStart      = 21
	profileRowWidth  = 23
)

const profileMasterSelect = `SELECT
	p.profile_id, p.user_id, p.guild_id,
	d.char_name, d.url AS custom_url, d.color, d.jobs, d.rates, d.post_url,
	pr.likes, pr.dislikes, pr.personality, pr.aboutme,
	a.gender, a.pronouns, a.race, a.clan, a.orientation, a.height, a.age, a.mare,
	i.thumbnail, i.main_image
FROM profiles p
JOIN details d ON p.profile_id = d.profile_id
JOIN personality pr ON p.profile_id = pr.profile_id
JOIN ataglance a ON p.profile_id = a.profile_id
JOIN images i ON p.profile_id = i.profile_id`

//nolint:lll // struct tags can't be split
type GuildConfig struct {
	GuildID      string  `gorm:"column:guild_id;primaryKey" json:"guild_id"`
	PostChannels *string `gorm:"column:post_channels" json:"post_channels"`
}

func (GuildConfig) TableName() string { return "guild_config" }

// Channels decodes the stored post channel list.
func (g GuildConfig) Channels() []string { return decodeList(g.PostChannels) }

//nolint:lll // struct tags can't be split
type ProfileRecord struct {
	ProfileID string `gorm:"column:profile_id;primaryKey" json:"profile_id"`
	UserID    string `gorm:"column:user_id;not null;uniqueIndex:idx_profiles_guild_user" json:"user_id"`
	GuildID   string `gorm:"column:guild_id;not null;uniqueIndex:idx_profiles_guild_user" json:"guild_id"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

func (ProfileRecord) TableName() string { return "profiles" }

type DetailsRecord struct {
	ProfileID string  `gorm:"column:profile_id;primaryKey"`
	CharName  *string `gorm:"column:char_name"`
	URL       *string `gorm:"column:url"`
	Color     *int    `gorm:"column:color"`
	Jobs      *string `gorm:"column:jobs"`
	Rates     *string `gorm:"column:rates"`
	PostURL   *string `gorm:"column:post_url"`
}

func (DetailsRecord) TableName() string { return "details" }

type PersonalityRecord struct {
	ProfileID   string  `gorm:"column:profile_id;primaryKey"`
	Likes       *string `gorm:"column:likes"`
	Dislikes    *string `gorm:"column:dislikes"`
	Personality *string `gorm:"column:personality"`
	AboutMe     *string `gorm:"column:aboutme"`
}

func (PersonalityRecord) TableName() string { return "personality" }

type AtAGlanceRecord struct {
	ProfileID   string  `gorm:"column:profile_id;primaryKey"`
	Gender      *string `gorm:"column:gender"`
	Pronouns    *string `gorm:"column:pronouns"`
	Race        *string `gorm:"column:race"`
	Clan        *string `gorm:"column:clan"`
	Orientation *string `gorm:"column:orientation"`
	Height      *string `gorm:"column:height"`
	Age         *string `gorm:"column:age"`
	Mare        *string `gorm:"column:mare"`
}

func (AtAGlanceRecord) TableName() string { return "ataglance" }

type ImagesRecord struct {
	ProfileID string  `gorm:"column:profile_id;primaryKey"`
	Thumbnail *string `gorm:"column:thumbnail"`
	MainImage *string `gorm:"column:main_image"`
}

func (ImagesRecord) TableName() string { return "images" }

//nolint:lll // struct tags can't be split
type AdditionalImageRecord struct {
	ImageID   string  `gorm:"column:image_id;primaryKey" json:"image_id"`
	ProfileID string  `gorm:"column:profile_id;not null;index" json:"profile_id"`
	URL       string  `gorm:"column:url;not null" json:"url"`
	Caption   *string `gorm:"column:caption" json:"caption"`
	CreatedAt int64   `gorm:"autoCreateTime:milli" json:"created_at"`
}

func (AdditionalImageRecord) TableName() string { return "addl_images" }

// ProfileStore is the persistence gateway used by the registry and the
// profile sections. Every write is a whole-row, autocommitting statement.
type ProfileStore interface {
	EnsureGuild(ctx context.Context, guildID string) (GuildConfig, error)
	LoadGuild(ctx context.Context, guildID string) (GuildConfig, error)
	SaveGuildChannels(ctx context.Context, guildID string, channels []string) error
	LoadGuilds(ctx context.Context) ([]GuildConfig, error)

	CreateProfile(ctx context.Context, guildID, userID string) (string, error)
	SaveDetails(ctx context.Context, rec *DetailsRecord) error
	SavePersonality(ctx context.Context, rec *PersonalityRecord) error
	SaveAtAGlance(ctx context.Context, rec *AtAGlanceRecord) error
	SaveImages(ctx context.Context, rec *ImagesRecord) error
	LoadProfiles(ctx context.Context) ([][]*string, error)

	CreateAdditionalImage(
		ctx context.Context,
		profileID string,
		url string,
		caption *string,
	) (AdditionalImageRecord, error)
	UpdateAdditionalImageCaption(ctx context.Context, imageID string, caption *string) error
	DeleteAdditionalImage(ctx context.Context, imageID string) error
	LoadAdditionalImages(ctx context.Context) ([]AdditionalImageRecord, error)
}

// Store is the gorm-backed ProfileStore.
type Store struct {
	db     DBI
	logger *slog.Logger
}

func NewStore(db DBI, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With(loggerNameKey, "store")}
}

// newID returns a random 32 character hex id.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func (s *Store) EnsureGuild(ctx context.Context, guildID string) (GuildConfig, error) {
	cfg := GuildConfig{GuildID: guildID}
	err := s.db.Transaction(
		ctx, func(tx *gorm.DB) error {
			return tx.Where(GuildConfig{GuildID: guildID}).FirstOrCreate(&cfg).Error
		},
	)
	if err != nil {
		return cfg, fmt.Errorf("error ensuring guild %s: %w", guildID, err)
	}
	return cfg, nil
}

func (s *Store) LoadGuild(ctx context.Context, guildID string) (GuildConfig, error) {
	var cfg GuildConfig
	err := s.db.DB().WithContext(ctx).Where("guild_id = ?", guildID).Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cfg, fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	return cfg, err
}

func (s *Store) SaveGuildChannels(ctx context.Context, guildID string, channels []string) error {
	_, err := s.db.Save(ctx, &GuildConfig{GuildID: guildID, PostChannels: encodeList(channels)})
	return err
}

func (s *Store) LoadGuilds(ctx context.Context) ([]GuildConfig, error) {
	var guilds []GuildConfig
	err := s.db.DB().WithContext(ctx).Find(&guilds).Error
	return guilds, err
}

// CreateProfile inserts the profile row and its four empty section rows.
func (s *Store) CreateProfile(ctx context.Context, guildID, userID string) (string, error) {
	id := newID()
	err := s.db.Transaction(
		ctx, func(tx *gorm.DB) error {
			rows := []any{
				&ProfileRecord{ProfileID: id, UserID: userID, GuildID: guildID},
				&DetailsRecord{ProfileID: id},
				&PersonalityRecord{ProfileID: id},
				&AtAGlanceRecord{ProfileID: id},
				&ImagesRecord{ProfileID: id},
			}
			for _, row := range rows {
				if err := tx.Create(row).Error; err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("error creating profile: %w", err)
	}
	s.logger.InfoContext(
		ctx,
		"created profile",
		"profile_id", id,
		"guild_id", guildID,
		"user_id", userID,
	)
	return id, nil
}

func (s *Store) SaveDetails(ctx context.Context, rec *DetailsRecord) error {
	_, err := s.db.Save(ctx, rec)
	return err
}

func (s *Store) SavePersonality(ctx context.Context, rec *PersonalityRecord) error {
	_, err := s.db.Save(ctx, rec)
	return err
}

func (s *Store) SaveAtAGlance(ctx context.Context, rec *AtAGlanceRecord) error {
	_, err := s.db.Save(ctx, rec)
	return err
}

func (s *Store) SaveImages(ctx context.Context, rec *ImagesRecord) error {
	_, err := s.db.Save(ctx, rec)
	return err
}

func (s *Store) CreateAdditionalImage(
	ctx context.Context,
	profileID string,
	url string,
	caption *string,
) (AdditionalImageRecord, error) {
	rec := AdditionalImageRecord{
		ImageID:   newID(),
		ProfileID: profileID,
		URL:       url,
		Caption:   caption,
	}
	_, err := s.db.Create(ctx, &rec)
	return rec, err
}

func (s *Store) UpdateAdditionalImageCaption(
	ctx context.Context,
	imageID string,
	caption *string,
) error {
	_, err := s.db.UpdatesWhere(
		ctx,
		&AdditionalImageRecord{},
		map[string]any{"caption": caption},
		"image_id = ?",
		imageID,
	)
	return err
}

func (s *Store) DeleteAdditionalImage(ctx context.Context, imageID string) error {
	_, err := s.db.Delete(ctx, &AdditionalImageRecord{}, "image_id = ?", imageID)
	return err
}

func (s *Store) LoadAdditionalImages(ctx context.Context) ([]AdditionalImageRecord, error) {
	var images []AdditionalImageRecord
	err := s.db.DB().WithContext(ctx).Order("created_at asc").Find(&images).Error
	return images, err
}

// LoadProfiles reads every row of profile_master. Each row has
// profileRowWidth columns, nil for NULL.
func (s *Store) LoadProfiles(ctx context.Context) ([][]*string, error) {
	rows, err := s.db.DB().WithContext(ctx).Raw("SELECT * FROM " + profileMasterView).Rows()
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", profileMasterView, err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			s.logger.ErrorContext(ctx, "error closing rows", tint.Err(e))
		}
	}()

	var result [][]*string
	for rows.Next() {
		cols := make([]sql.NullString, profileRowWidth)
		dest := make([]any, profileRowWidth)
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", profileMasterView, err)
		}
		row := make([]*string, profileRowWidth)
		for i, c := range cols {
			if c.Valid {
				v := c.String
				row[i] = &v
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func createProfileMasterView(ctx context.Context, db *gorm.DB, databaseType string) error {
	db = db.WithContext(ctx)
	switch databaseType {
	case dbTypePostgres:
		return db.Exec("CREATE OR REPLACE VIEW " + profileMasterView + " AS " + profileMasterSelect).Error
	default:
		if err := db.Exec("DROP VIEW IF EXISTS " + profileMasterView).Error; err != nil {
			return err
		}
		return db.Exec("CREATE VIEW " + profileMasterView + " AS " + profileMasterSelect).Error
	}
}
