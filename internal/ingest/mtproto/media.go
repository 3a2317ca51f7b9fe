package mtproto

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// Files above this size are not downloaded for re-upload.
const maxDownloadBytes = 10 * 1024 * 1024

func mediaKind(media tg.MessageMediaClass) string {
	switch media.(type) {
	case nil:
		return domain.MediaNone
	case *tg.MessageMediaPhoto:
		return domain.MediaPhoto
	case *tg.MessageMediaDocument:
		return domain.MediaDocument
	case *tg.MessageMediaWebPage:
		return domain.MediaWebPage
	default:
		return domain.MediaOther
	}
}

// inputMedia converts received media into a reference that can be sent again.
func inputMedia(media any) (tg.InputMediaClass, error) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, fmt.Errorf("%w: empty photo", apperrors.ErrUnsupportedMedia)
		}

		return &tg.InputMediaPhoto{
			ID: &tg.InputPhoto{
				ID:            photo.ID,
				AccessHash:    photo.AccessHash,
				FileReference: photo.FileReference,
			},
		}, nil
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil, fmt.Errorf("%w: empty document", apperrors.ErrUnsupportedMedia)
		}

		return &tg.InputMediaDocument{
			ID: &tg.InputDocument{
				ID:            doc.ID,
				AccessHash:    doc.AccessHash,
				FileReference: doc.FileReference,
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", apperrors.ErrUnsupportedMedia, media)
	}
}

// FetchMedia downloads a photo or an image document.
func (c *Client) FetchMedia(ctx context.Context, media any) ([]byte, error) {
	c.mu.RLock()
	api := c.api
	c.mu.RUnlock()

	if api == nil {
		return nil, apperrors.ErrClientNotInitialized
	}

	location, err := fileLocation(media)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)

	err = c.call(ctx, "download", func(ctx context.Context) error {
		buf.Reset()

		_, err := downloader.NewDownloader().Download(api, location).Stream(ctx, buf)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}

	return buf.Bytes(), nil
}

func fileLocation(media any) (tg.InputFileLocationClass, error) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, fmt.Errorf("%w: empty photo", apperrors.ErrUnsupportedMedia)
		}

		thumbSize := largestPhotoSize(photo.Sizes)
		if thumbSize == "" {
			return nil, fmt.Errorf("%w: photo without sizes", apperrors.ErrUnsupportedMedia)
		}

		return &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumbSize,
		}, nil
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok || !isImageDocument(doc) {
			return nil, fmt.Errorf("%w: document is not an image", apperrors.ErrUnsupportedMedia)
		}

		if doc.Size > maxDownloadBytes {
			return nil, fmt.Errorf("%w: document of %d bytes", apperrors.ErrUnsupportedMedia, doc.Size)
		}

		return &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", apperrors.ErrUnsupportedMedia, media)
	}
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) string {
	var (
		best    string
		maxArea int
	)

	for _, size := range sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			if s.W*s.H > maxArea {
				maxArea = s.W * s.H
				best = s.Type
			}
		case *tg.PhotoSizeProgressive:
			if s.W*s.H > maxArea {
				maxArea = s.W * s.H
				best = s.Type
			}
		}
	}

	return best
}

func isImageDocument(doc *tg.Document) bool {
	if strings.HasPrefix(doc.MimeType, "image/") {
		return true
	}

	for _, attr := range doc.Attributes {
		if _, ok := attr.(*tg.DocumentAttributeImageSize); ok {
			return true
		}
	}

	return false
}
