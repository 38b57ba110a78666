package frogbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	actionRemoveThumbnail = "remove_thumbnail"
	actionRemoveMainImage = "remove_main_image"
	actionGallery         = "gallery"
	actionGalleryPrev     = "gallery_prev"
	actionGalleryNext     = "gallery_next"
	actionEditCaption     = "edit_caption"
	actionCaptionModal    = "caption_modal"
	actionRemoveImage     = "remove_image"
	actionImagesStatus    = "images_status"
	actionConfirmRemove   = "confirm_remove"
	actionKeepImage       = "keep_image"
	actionNewCaptionModal = "new_caption_modal"

	removeTargetThumbnail = "thumbnail"
	removeTargetMainImage = "main_image"
)

func captionInputs(current string) []discordgo.TextInput {
	return []discordgo.TextInput{
		instructionsInput(
			"Enter the caption for your image.",
			"Enter the caption for your additional image. This text will "+
				"take the place of the ugly-looking link text on your profile.",
		),
		{
			CustomID:    inputValue,
			Label:       "Image Caption",
			Style:       discordgo.TextInputShort,
			Placeholder: "eg. 'Having a ribbiting good time~'",
			Value:       current,
			MaxLength:   maxCaptionLength,
			Required:    false,
		},
	}
}

func removalConfirmEmbed(color int) *discordgo.MessageEmbed {
	return newEmbed(
		"Confirm Image Removal",
		"Confirm that you want to remove the attached image from the "+
			"corresponding spot on your profile.\n\n"+
			"*(It's gone forever and you'll need to re-upload it again if "+
			"you change your mind!)*",
		color,
	)
}

// imagesView is the Images status message, which can switch to a paged
// gallery of the additional images.
type imagesView struct {
	*view
	images *Images

	// headline replaces the status title and description until the
	// member's first action.
	headline string
	gallery  bool
	page     int
	// pending is what the open removal confirmation would remove: a
	// removeTarget constant or an additional image id.
	pending string
}

// runImages shows the Images status view for /profiles images.
func (b *FrogBot) runImages(ctx context.Context, profile *Profile, origin InteractionHandler) error {
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	return (&imagesView{view: v, images: profile.Images()}).run(ctx)
}

func (iv *imagesView) render() *discordgo.InteractionResponseData {
	if iv.gallery {
		return iv.renderGallery()
	}
	status := iv.images.Status()
	if iv.headline != "" {
		status.Title = "Success!"
		status.Description = iv.headline
	}
	thumb := iv.button("Remove Thumbnail", actionRemoveThumbnail, iv.images.Thumbnail() != "")
	thumb.Disabled = iv.images.Thumbnail() == ""
	mainImage := iv.button("Remove Main Image", actionRemoveMainImage, iv.images.MainImage() != "")
	mainImage.Disabled = iv.images.MainImage() == ""
	additional := iv.images.AdditionalImages()
	gallery := iv.button("View Additional Images", actionGallery, len(additional) > 0)
	gallery.Disabled = len(additional) == 0
	return embedsData(buttonRows(thumb, mainImage, gallery, iv.closeButton()), status)
}

func (iv *imagesView) renderGallery() *discordgo.InteractionResponseData {
	images := iv.images.AdditionalImages()
	statusButton := discordgo.Button{
		Label:    "View Images Status",
		Style:    discordgo.PrimaryButton,
		CustomID: iv.prompt.CustomID(actionImagesStatus),
	}
	if len(images) == 0 {
		return embedsData(
			buttonRows(statusButton, iv.closeButton()),
			newEmbed("Additional Images", "`No Images Uploaded!`", 0),
		)
	}
	iv.page = (iv.page%len(images) + len(images)) % len(images)
	img := images[iv.page]

	e := newEmbed("Additional Images", "", 0)
	e.Image = &discordgo.MessageEmbedImage{URL: img.URL}
	footer := fmt.Sprintf("Image %d of %d", iv.page+1, len(images))
	if img.Caption != nil {
		footer = fmt.Sprintf("Caption: %s | %s", *img.Caption, footer)
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: footer}

	rows := buttonRows(
		discordgo.Button{
			Label:    "Edit Caption",
			Style:    discordgo.PrimaryButton,
			CustomID: iv.prompt.CustomID(actionEditCaption),
		},
		discordgo.Button{
			Label:    "Remove Image",
			Style:    discordgo.DangerButton,
			CustomID: iv.prompt.CustomID(actionRemoveImage),
		},
		statusButton,
		iv.closeButton(),
	)
	rows = append(
		rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					Emoji:    &discordgo.ComponentEmoji{Name: EmojiArrowLeft},
					CustomID: iv.prompt.CustomID(actionGalleryPrev),
					Disabled: len(images) == 1,
				},
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					Emoji:    &discordgo.ComponentEmoji{Name: EmojiArrowRight},
					CustomID: iv.prompt.CustomID(actionGalleryNext),
					Disabled: len(images) == 1,
				},
			},
		},
	)
	return embedsData(rows, e)
}

// current returns the gallery image on screen.
func (iv *imagesView) current() (AdditionalImage, bool) {
	images := iv.images.AdditionalImages()
	if len(images) == 0 {
		return AdditionalImage{}, false
	}
	return images[(iv.page%len(images)+len(images))%len(images)], true
}

// confirmRemoval opens the confirmation message for target.
func (iv *imagesView) confirmRemoval(ctx context.Context, ev ComponentEvent, target string) (bool, error) {
	e := removalConfirmEmbed(iv.profile.Color())
	switch target {
	case removeTargetThumbnail:
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: iv.images.Thumbnail()}
	case removeTargetMainImage:
		e.Image = &discordgo.MessageEmbedImage{URL: iv.images.MainImage()}
	default:
		img, ok := iv.images.AdditionalImage(target)
		if !ok {
			iv.ack(ctx, ev)
			return false, nil
		}
		e.Image = &discordgo.MessageEmbedImage{URL: img.URL}
		caption := "(No Caption)"
		if img.Caption != nil {
			caption = *img.Caption
		}
		e.Footer = &discordgo.MessageEmbedFooter{Text: caption}
	}
	iv.pending = target
	return false, iv.followup(
		ctx, ev, embedsData(
			buttonRows(
				discordgo.Button{
					Label:    "Confirm",
					Style:    discordgo.SuccessButton,
					Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
					CustomID: iv.prompt.CustomID(actionConfirmRemove),
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.DangerButton,
					Emoji:    &discordgo.ComponentEmoji{Name: EmojiCross},
					CustomID: iv.prompt.CustomID(actionKeepImage),
				},
			),
			e,
		),
	)
}

func (iv *imagesView) remove(ctx context.Context) error {
	switch iv.pending {
	case "":
		return nil
	case removeTargetThumbnail:
		return iv.images.SetThumbnail(ctx, "")
	case removeTargetMainImage:
		return iv.images.SetMainImage(ctx, "")
	default:
		return iv.images.RemoveAdditional(ctx, iv.pending)
	}
}

func (iv *imagesView) run(ctx context.Context) error {
	// moved clears the success headline and redraws.
	moved := func(ctx context.Context, ev ComponentEvent) (bool, error) {
		iv.headline = ""
		return false, iv.update(ctx, ev, iv.render())
	}
	// answered closes the confirmation message and redraws the view.
	answered := func(ctx context.Context, ev ComponentEvent, title string) (bool, error) {
		iv.pending = ""
		iv.headline = ""
		err := iv.update(
			ctx, ev, embedsData([]discordgo.MessageComponent{}, newEmbed(title, "", iv.profile.Color())),
		)
		iv.refresh(ctx, iv.render())
		return false, err
	}

	return iv.view.run(
		ctx, iv.render, map[string]viewAction{
			actionRemoveThumbnail: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return iv.confirmRemoval(ctx, ev, removeTargetThumbnail)
			},
			actionRemoveMainImage: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return iv.confirmRemoval(ctx, ev, removeTargetMainImage)
			},
			actionRemoveImage: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				img, ok := iv.current()
				if !ok {
					return moved(ctx, ev)
				}
				return iv.confirmRemoval(ctx, ev, img.ID)
			},
			actionConfirmRemove: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				if err := iv.remove(ctx); err != nil {
					return false, err
				}
				return answered(ctx, ev, "Image Removed")
			},
			actionKeepImage: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				return answered(ctx, ev, "Image Removal Cancelled")
			},
			actionGallery: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				iv.gallery = true
				iv.page = 0
				return moved(ctx, ev)
			},
			actionImagesStatus: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				iv.gallery = false
				return moved(ctx, ev)
			},
			actionGalleryPrev: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				iv.page--
				return moved(ctx, ev)
			},
			actionGalleryNext: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				iv.page++
				return moved(ctx, ev)
			},
			actionEditCaption: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				img, ok := iv.current()
				if !ok {
					return moved(ctx, ev)
				}
				iv.pending = img.ID
				var caption string
				if img.Caption != nil {
					caption = *img.Caption
				}
				return false, iv.modal(ctx, ev, actionCaptionModal, "Enter Image Caption", captionInputs(caption)...)
			},
			actionCaptionModal: func(ctx context.Context, ev ComponentEvent) (bool, error) {
				imageID := iv.pending
				iv.pending = ""
				if err := iv.images.SetCaption(ctx, imageID, ev.Field(inputValue)); err != nil {
					return false, err
				}
				return moved(ctx, ev)
			},
		},
	)
}

// addImage handles /profiles add_image. The attachment is re-hosted
// through the image store before the profile is updated, then the Images
// status view is shown with a success headline.
func (b *FrogBot) addImage(
	ctx context.Context,
	profile *Profile,
	origin InteractionHandler,
	section SectionType,
	attachment *discordgo.MessageAttachment,
) error {
	if attachment == nil {
		return errors.New("no attachment in add_image command")
	}
	if err := CheckImageContentType(section, attachment.ContentType); err != nil {
		return err
	}
	images := profile.Images()
	v, err := b.newView(ctx, profile, origin)
	if err != nil {
		return err
	}
	iv := &imagesView{view: v, images: images}

	var caption string
	if section == SectionAdditionalImages {
		if err := images.CanAddAdditional(); err != nil {
			v.prompt.Close(err)
			return err
		}
		err := origin.Respond(
			ctx,
			discordModalResponse(v.prompt.CustomID(actionNewCaptionModal), "Enter Image Caption", captionInputs("")...),
		)
		if err != nil {
			v.prompt.Close(err)
			return err
		}
		ev, err := v.prompt.Next(ctx)
		if err != nil {
			v.prompt.Close(err)
			if errors.Is(err, ErrPromptTimeout) || errors.Is(err, ErrPromptCancelled) {
				return nil
			}
			return err
		}
		caption = ev.Field(inputValue)
		origin = ev.Handler
	}
	if err := v.deferTo(ctx, origin); err != nil {
		v.prompt.Close(err)
		return err
	}

	if err := iv.store(ctx, section, attachment, caption); err != nil {
		v.prompt.Close(err)
		// origin is answered by now, so report here rather than to the
		// slash command
		if !b.respondError(ctx, v.origin, err) {
			return reportedError{err}
		}
		return nil
	}
	return iv.run(ctx)
}

func (iv *imagesView) store(
	ctx context.Context,
	section SectionType,
	attachment *discordgo.MessageAttachment,
	caption string,
) error {
	b := iv.bot
	url, err := b.imageStore.Store(ctx, attachment)
	if err != nil {
		return fmt.Errorf("error storing image: %w", err)
	}
	b.metrics.imageStored(b.imageStore.Backend())
	iv.logger.InfoContext(ctx, "image stored", "section", section.Label(), "url", url)

	switch section {
	case SectionThumbnail:
		iv.headline = "Your thumbnail image was updated successfully!"
		return iv.images.SetThumbnail(ctx, url)
	case SectionMainImage:
		iv.headline = "Your main image was updated successfully!"
		return iv.images.SetMainImage(ctx, url)
	default:
		iv.headline = "A new additional image was added to your profile!"
		_, err = iv.images.AddAdditional(ctx, url, caption)
		return err
	}
}
