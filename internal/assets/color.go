package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Registered decoders for the logo formats companies actually upload.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/RobCherry/vibrant"
	"go.uber.org/zap"
)

// ColorResolver derives a template accent color from a company logo. Every
// stage fails soft: a missing URL, fetch error, undecodable image, or empty
// palette all yield "" and the renderer falls back to the default palette.
type ColorResolver struct {
	fetcher Fetcher
	logger  *zap.Logger
}

func NewColorResolver(fetcher Fetcher, logger *zap.Logger) *ColorResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColorResolver{
		fetcher: fetcher,
		logger:  logger,
	}
}

// ResolveAccentColor returns a "#rrggbb" accent derived from the logo's
// dominant palette, or "" when no color could be resolved.
func (r *ColorResolver) ResolveAccentColor(ctx context.Context, logoURL string) string {
	if r == nil || r.fetcher == nil || logoURL == "" {
		return ""
	}

	raw, err := r.fetcher.Fetch(ctx, logoURL)
	if err != nil {
		r.logger.Debug("logo fetch failed, using default palette",
			zap.String("url", logoURL),
			zap.Error(err),
		)
		return ""
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		r.logger.Debug("logo decode failed, using default palette",
			zap.String("url", logoURL),
			zap.Error(err),
		)
		return ""
	}

	return DominantColor(img)
}

// DominantColor extracts a swatch from the image palette, preferring the
// vibrant swatch and walking a fixed fallback order when it is absent.
func DominantColor(img image.Image) string {
	if img == nil {
		return ""
	}

	palette := vibrant.NewPaletteBuilder(img).Generate()

	swatches := []*vibrant.Swatch{
		palette.VibrantSwatch(),
		palette.LightVibrantSwatch(),
		palette.DarkVibrantSwatch(),
		palette.MutedSwatch(),
		palette.LightMutedSwatch(),
		palette.DarkMutedSwatch(),
	}

	for _, swatch := range swatches {
		if swatch == nil {
			continue
		}
		red, green, blue, _ := swatch.Color().RGBA()
		return fmt.Sprintf("#%02x%02x%02x", uint8(red>>8), uint8(green>>8), uint8(blue>>8))
	}

	return ""
}
