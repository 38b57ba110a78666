package frogbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	imageBackendDiscord    = "discord"
	imageBackendCloudinary = "cloudinary"

	maxImageDownloadSize = 25 << 20
)

// ImageStore re-hosts an uploaded attachment so its URL outlives the
// interaction it came from.
type ImageStore interface {
	Store(ctx context.Context, attachment *discordgo.MessageAttachment) (string, error)
	Backend() string
}

// imageDumpClient is the part of the session needed to post to the dump
// channel.
type imageDumpClient interface {
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

func newImageStore(
	cfg *ImagesConfig,
	session imageDumpClient,
	httpClient *http.Client,
	logger *slog.Logger,
) (ImageStore, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger = logger.With(loggerNameKey, "image_store")
	switch cfg.Backend {
	case "", imageBackendDiscord:
		if cfg.DumpChannelID == "" {
			return nil, errors.New("images.dump_channel_id is required for the discord image backend")
		}
		return &discordImageStore{
			session:   session,
			channelID: cfg.DumpChannelID,
			client:    httpClient,
			logger:    logger,
		}, nil
	case imageBackendCloudinary:
		return newCloudinaryImageStore(cfg, logger)
	default:
		return nil, fmt.Errorf("invalid image backend: %q", cfg.Backend)
	}
}

// discordImageStore uploads the attachment to a private dump channel and
// keeps the new attachment's URL.
type discordImageStore struct {
	session   imageDumpClient
	channelID string
	client    *http.Client
	logger    *slog.Logger
}

func (*discordImageStore) Backend() string { return imageBackendDiscord }

func (s *discordImageStore) Store(
	ctx context.Context,
	attachment *discordgo.MessageAttachment,
) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading attachment: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error downloading attachment: status %d", resp.StatusCode)
	}

	msg, err := s.session.ChannelMessageSendComplex(
		s.channelID,
		&discordgo.MessageSend{
			Files: []*discordgo.File{
				{
					Name:        attachment.Filename,
					ContentType: attachment.ContentType,
					Reader:      io.LimitReader(resp.Body, maxImageDownloadSize),
				},
			},
		},
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("error posting to image dump channel: %w", err)
	}
	if len(msg.Attachments) == 0 {
		return "", errors.New("image dump message has no attachments")
	}
	s.logger.InfoContext(ctx, "stored image", "message_id", msg.ID, "filename", attachment.Filename)
	return msg.Attachments[0].URL, nil
}

// cloudinaryImageStore has cloudinary fetch the attachment URL directly.
type cloudinaryImageStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *slog.Logger
}

func newCloudinaryImageStore(cfg *ImagesConfig, logger *slog.Logger) (*cloudinaryImageStore, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
	} else {
		// reads CLOUDINARY_URL
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true
	return &cloudinaryImageStore{cld: cld, folder: cfg.CloudinaryFolder, logger: logger}, nil
}

func (*cloudinaryImageStore) Backend() string { return imageBackendCloudinary }

func (s *cloudinaryImageStore) Store(
	ctx context.Context,
	attachment *discordgo.MessageAttachment,
) (string, error) {
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       fmt.Sprintf("%d-%s", time.Now().UnixNano(), attachment.ID),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
	}
	resp, err := s.cld.Upload.Upload(ctx, attachment.URL, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload succeeded but secure URL is empty")
	}
	s.logger.InfoContext(ctx, "stored image", "public_id", resp.PublicID)
	return resp.SecureURL, nil
}
