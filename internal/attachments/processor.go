// Package attachments validates and materializes message attachments before
// any network call is made. Attachments are shared across cohorts, so every
// failure here is fatal for the whole request.
package attachments

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aix-dean/mailcourier/internal/assets"
	"github.com/aix-dean/mailcourier/internal/domain"
)

// DefaultMaxTotalBytes is a soft ceiling set above the transport provider's
// hard limit so oversize errors are attributable to this system instead of
// an opaque provider rejection.
const DefaultMaxTotalBytes int64 = 500 * 1024 * 1024

// StoredRef points at an already-uploaded attachment (for example a rendered
// proposal PDF) that has to be re-fetched from object storage.
type StoredRef struct {
	Filename string
	URL      string
}

type Processor struct {
	maxTotalBytes int64
	fetcher       assets.Fetcher
}

func NewProcessor(maxTotalBytes int64, fetcher assets.Fetcher) *Processor {
	if maxTotalBytes <= 0 {
		maxTotalBytes = DefaultMaxTotalBytes
	}
	return &Processor{
		maxTotalBytes: maxTotalBytes,
		fetcher:       fetcher,
	}
}

// Process validates uploaded attachments, fetches stored references, and
// enforces the aggregate size ceiling. Output order is inline attachments
// first, then stored references, each in input order.
func (p *Processor) Process(ctx context.Context, inline []domain.Attachment, stored []StoredRef) ([]domain.Attachment, error) {
	if p == nil {
		return nil, fmt.Errorf("attachment processor is not initialized")
	}

	out := make([]domain.Attachment, 0, len(inline)+len(stored))

	for _, attachment := range inline {
		if len(attachment.Content) == 0 {
			return nil, fmt.Errorf("%w: %q has no content", domain.ErrEmptyAttachment, attachment.Filename)
		}
		out = append(out, domain.Attachment{
			Filename: normalizeFilename(attachment.Filename),
			Content:  attachment.Content,
		})
	}

	for _, ref := range stored {
		if p.fetcher == nil {
			return nil, fmt.Errorf("stored attachment %q requested but no object fetcher configured", ref.Filename)
		}
		content, err := p.fetcher.Fetch(ctx, ref.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch stored attachment %q: %w", ref.Filename, err)
		}
		if len(content) == 0 {
			return nil, fmt.Errorf("%w: %q has no content", domain.ErrEmptyAttachment, ref.Filename)
		}

		filename := normalizeFilename(ref.Filename)
		if filename == "attachment" {
			if base := path.Base(ref.URL); base != "." && base != "/" {
				filename = base
			}
		}
		out = append(out, domain.Attachment{Filename: filename, Content: content})
	}

	var total int64
	for _, attachment := range out {
		total += int64(len(attachment.Content))
	}
	if total > p.maxTotalBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte ceiling",
			domain.ErrAttachmentTooLarge, total, p.maxTotalBytes)
	}

	return out, nil
}

func normalizeFilename(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "attachment"
	}
	// Strip any path component a client may have sent along.
	return path.Base(strings.ReplaceAll(trimmed, "\\", "/"))
}
