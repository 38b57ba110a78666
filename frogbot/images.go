package frogbot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	maxAdditionalImages = 10
	maxCaptionLength    = 50
)

// allowedImageTypes are the attachment content types accepted for
// profile images.
var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/apng",
	"image/webp",
}

// CheckImageContentType returns an *InvalidFileTypeError unless
// contentType is one of the accepted image types.
func CheckImageContentType(section SectionType, contentType string) error {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if !slices.Contains(allowedImageTypes, mediaType) {
		return &InvalidFileTypeError{ContentType: contentType, Section: section}
	}
	return nil
}

// AdditionalImage is one entry in a profile's image gallery.
type AdditionalImage struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Caption *string `json:"caption,omitempty"`
}

// markdown renders the image as a link, captioned if possible.
func (i AdditionalImage) markdown() string {
	if i.Caption == nil {
		return i.URL
	}
	return fmt.Sprintf("[%s](%s)", *i.Caption, i.URL)
}

type imagesFields struct {
	Thumbnail *string
	MainImage *string
}

// Images holds the thumbnail, the main image and up to ten additional
// images. Additional images have their own rows and are written
// individually.
type Images struct {
	profile    *Profile
	f          imagesFields
	additional []AdditionalImage
}

// loadImages rebuilds the section from thumbnail, main_image. Additional
// images are attached afterwards from addl_images.
func loadImages(p *Profile, raw []*string) *Images {
	return &Images{
		profile: p,
		f: imagesFields{
			Thumbnail: rawField(raw, 0),
			MainImage: rawField(raw, 1),
		},
	}
}

func (s *Images) Profile() *Profile { return s.profile }

func (s *Images) save(ctx context.Context, f imagesFields) error {
	return s.profile.store.SaveImages(
		ctx, &ImagesRecord{
			ProfileID: s.profile.ID,
			Thumbnail: f.Thumbnail,
			MainImage: f.MainImage,
		},
	)
}

// attachAdditional appends loaded rows, ignoring any past the cap.
func (s *Images) attachAdditional(records ...AdditionalImageRecord) {
	for _, rec := range records {
		if len(s.additional) >= maxAdditionalImages {
			return
		}
		s.additional = append(
			s.additional, AdditionalImage{
				ID:      rec.ImageID,
				URL:     rec.URL,
				Caption: rec.Caption,
			},
		)
	}
}

func (s *Images) Thumbnail() string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return stringPointerValue(s.f.Thumbnail)
}

func (s *Images) MainImage() string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return stringPointerValue(s.f.MainImage)
}

func (s *Images) AdditionalImages() []AdditionalImage {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return slices.Clone(s.additional)
}

// AdditionalImage returns the gallery entry with the given id.
func (s *Images) AdditionalImage(imageID string) (AdditionalImage, bool) {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	i := s.indexOf(imageID)
	if i < 0 {
		return AdditionalImage{}, false
	}
	return s.additional[i], true
}

func (s *Images) indexOf(imageID string) int {
	return slices.IndexFunc(
		s.additional, func(img AdditionalImage) bool {
			return img.ID == imageID
		},
	)
}

// SetThumbnail replaces the thumbnail. An empty url removes it.
func (s *Images) SetThumbnail(ctx context.Context, url string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()
	next := s.f
	next.Thumbnail = optString(url)
	return commit(ctx, &s.f, next, s.save)
}

// SetMainImage replaces the main image. An empty url removes it.
func (s *Images) SetMainImage(ctx context.Context, url string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()
	next := s.f
	next.MainImage = optString(url)
	return commit(ctx, &s.f, next, s.save)
}

// CanAddAdditional reports a *MaxImagesReachedError once the gallery is
// full.
func (s *Images) CanAddAdditional() error {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	if len(s.additional) >= maxAdditionalImages {
		return &MaxImagesReachedError{Max: maxAdditionalImages}
	}
	return nil
}

// AddAdditional appends a gallery image. A full gallery is left
// untouched and a *MaxImagesReachedError is returned.
func (s *Images) AddAdditional(
	ctx context.Context,
	url string,
	caption string,
) (AdditionalImage, error) {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()

	if len(s.additional) >= maxAdditionalImages {
		return AdditionalImage{}, &MaxImagesReachedError{Max: maxAdditionalImages}
	}
	rec, err := s.profile.store.CreateAdditionalImage(
		ctx,
		s.profile.ID,
		url,
		optString(truncate(caption, maxCaptionLength)),
	)
	if err != nil {
		return AdditionalImage{}, fmt.Errorf("error adding image: %w", err)
	}
	img := AdditionalImage{ID: rec.ImageID, URL: rec.URL, Caption: rec.Caption}
	s.additional = append(s.additional, img)
	return img, nil
}

// SetCaption updates one gallery image's caption. A blank caption
// removes it.
func (s *Images) SetCaption(ctx context.Context, imageID string, caption string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()

	i := s.indexOf(imageID)
	if i < 0 {
		return fmt.Errorf("image %s not found", imageID)
	}
	c := optString(truncate(caption, maxCaptionLength))
	if err := s.profile.store.UpdateAdditionalImageCaption(ctx, imageID, c); err != nil {
		return err
	}
	s.additional[i].Caption = c
	return nil
}

// RemoveAdditional deletes one gallery image, keeping the order of the
// rest.
func (s *Images) RemoveAdditional(ctx context.Context, imageID string) error {
	s.profile.mu.Lock()
	defer s.profile.mu.Unlock()

	i := s.indexOf(imageID)
	if i < 0 {
		return fmt.Errorf("image %s not found", imageID)
	}
	if err := s.profile.store.DeleteAdditionalImage(ctx, imageID); err != nil {
		return err
	}
	s.additional = slices.Delete(s.additional, i, i+1)
	return nil
}

func (s *Images) additionalField() *discordgo.MessageEmbedField {
	if len(s.additional) == 0 {
		return nil
	}
	var b strings.Builder
	for _, img := range s.additional {
		b.WriteString(img.markdown() + "\n")
	}
	return embedField(
		fmt.Sprintf("%s __Additional Images__ %s", EmojiCamera, EmojiCamera),
		b.String(),
		false,
	)
}

func (s *Images) Status() *discordgo.MessageEmbed {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()

	additional := s.additionalField()
	if additional == nil {
		additional = embedField("__Additional Images__", notSet, false)
	}
	thumbnail := stringPointerValue(s.f.Thumbnail)
	if thumbnail == "" {
		thumbnail = placeholderImage
	}
	mainImage := stringPointerValue(s.f.MainImage)
	if mainImage == "" {
		mainImage = placeholderImage
	}

	e := newEmbed(
		fmt.Sprintf("Image Details for `%s`", s.profile.details.charNameDisplay()),
		"The buttons below allow you to remove and image attached to your profile\n"+
			"or to view a paginated list of your current additional images.\n\n"+
			"***To change your thumbnail and main image assets, or to add an additional image\n"+
			"to your profile, use the `/profiles add_image` command.***",
		s.profile.details.color(),
	)
	e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnail}
	e.Image = &discordgo.MessageEmbedImage{URL: mainImage}
	e.Fields = []*discordgo.MessageEmbedField{
		embedField(separatorLine(30), "** **", false),
		additional,
		embedField(separatorLine(30), "** **", false),
		embedField(
			"__Main Image__",
			"-"+strings.Repeat(EmojiArrowDown, 3)+"-",
			true,
		),
		embedField("** **", "** **", true),
		embedField(
			"__Thumbnail__",
			"-"+strings.Repeat(EmojiArrowRight, 3)+"-",
			true,
		),
	}
	return e
}

// ImagesFragments is the compiled form of Images.
type ImagesFragments struct {
	Thumbnail  string
	MainImage  string
	Additional *discordgo.MessageEmbedField
}

func (s *Images) Compile() ImagesFragments {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return s.compile()
}

func (s *Images) compile() ImagesFragments {
	return ImagesFragments{
		Thumbnail:  stringPointerValue(s.f.Thumbnail),
		MainImage:  stringPointerValue(s.f.MainImage),
		Additional: s.additionalField(),
	}
}

func (s *Images) Progress() string {
	s.profile.mu.RLock()
	defer s.profile.mu.RUnlock()
	return s.progress()
}

func (s *Images) progress() string {
	return fmt.Sprintf(
		"%s\n__**Images**__\n"+
			"%s -- Thumbnail *(Upper-Right)*\n"+
			"%s -- Main Image *(Bottom-Center)*\n"+
			"%s -- (`%d`) -- Additional Images\n",
		separatorLine(15),
		progressEmoji(s.f.Thumbnail != nil),
		progressEmoji(s.f.MainImage != nil),
		progressEmoji(len(s.additional) > 0),
		len(s.additional),
	)
}
