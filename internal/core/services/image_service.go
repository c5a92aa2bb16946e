package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

const (
	ImageSize   = 256
	ImagePixels = 100
)

type imageService struct {
	logger *slog.Logger
	intN   func(n int) int
}

func NewImageService(logger *slog.Logger) ports.ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &imageService{
		logger: logger,
		intN:   rand.IntN,
	}
}

// Generate paints ImagePixels random pixels on a transparent canvas and
// returns it PNG-encoded. Coordinates may repeat.
func (s *imageService) Generate(ctx context.Context) ([]byte, error) {
	start := time.Now()

	img := image.NewNRGBA(image.Rect(0, 0, ImageSize, ImageSize))
	for range ImagePixels {
		x, y := s.intN(ImageSize), s.intN(ImageSize)
		img.SetNRGBA(x, y, color.NRGBA{
			R: s.channel(),
			G: s.channel(),
			B: s.channel(),
			A: s.channel(),
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImageEncoding, err)
	}

	s.logger.DebugContext(ctx, "image generated",
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

func (s *imageService) channel() uint8 {
	return uint8(s.intN(256))
}
