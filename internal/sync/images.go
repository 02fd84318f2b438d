package sync

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-sync-service/internal/models"
	"product-sync-service/internal/repository"
)

// imageMimeTypes maps file extensions to MIME types for virtual attachments.
// Unknown extensions fall back to the generic image MIME.
var imageMimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
}

const genericImageMime = "image/*"

// Attacher creates or reuses virtual attachments for remote image URLs. No
// bytes are ever downloaded; an attachment's identity is its source URL.
type Attacher struct {
	repo   repository.CatalogRepositoryInterface
	logger *logrus.Entry
}

func NewAttacher(repo repository.CatalogRepositoryInterface, logger *logrus.Logger) *Attacher {
	return &Attacher{
		repo:   repo,
		logger: logger.WithField("component", "image-attacher"),
	}
}

// Attach returns the attachment ID for the given remote URL, reusing an
// existing attachment when one already tracks the same source URL. Returns
// uuid.Nil for malformed URLs or storage failures.
func (a *Attacher) Attach(ctx context.Context, ownerID uuid.UUID, rawURL string) uuid.UUID {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return uuid.Nil
	}

	existing, err := a.repo.FindAttachmentBySourceURL(ctx, rawURL)
	if err != nil {
		a.logger.WithError(err).WithField("url", rawURL).Warn("Attachment lookup failed")
		return uuid.Nil
	}
	if existing != nil {
		a.backfill(ctx, existing, rawURL)
		return existing.ID
	}

	filename := path.Base(parsed.Path)
	if filename == "/" || filename == "." {
		filename = ""
	}
	title := strings.TrimSuffix(filename, path.Ext(filename))
	if title == "" {
		title = filename
	}

	metadata := models.JSON{"source": rawURL}
	attachment := &models.Attachment{
		SourceURL: rawURL,
		MimeType:  mimeForFilename(filename),
		Title:     title,
		ParentID:  &ownerID,
		Metadata:  &metadata,
	}
	if err := a.repo.CreateAttachment(ctx, attachment); err != nil {
		a.logger.WithError(err).WithField("url", rawURL).Warn("Failed to create attachment")
		return uuid.Nil
	}
	return attachment.ID
}

// backfill repairs tracking metadata on attachments created before the source
// URL was recorded explicitly
func (a *Attacher) backfill(ctx context.Context, attachment *models.Attachment, rawURL string) {
	changed := false
	if attachment.Metadata == nil {
		metadata := models.JSON{"source": rawURL}
		attachment.Metadata = &metadata
		changed = true
	} else if _, ok := (*attachment.Metadata)["source"]; !ok {
		(*attachment.Metadata)["source"] = rawURL
		changed = true
	}
	if attachment.MimeType == "" {
		attachment.MimeType = genericImageMime
		changed = true
	}
	if changed {
		if err := a.repo.SaveAttachment(ctx, attachment); err != nil {
			a.logger.WithError(err).WithField("url", rawURL).Warn("Failed to backfill attachment metadata")
		}
	}
}

func mimeForFilename(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if mime, ok := imageMimeTypes[ext]; ok {
		return mime
	}
	return genericImageMime
}
