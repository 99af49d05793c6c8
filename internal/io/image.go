package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // yt-dlp thumbnails are usually WebP
)

// thumbnailExtensions lists the image extensions yt-dlp writes for thumbnails.
var thumbnailExtensions = []string{".webp", ".jpg", ".jpeg", ".png"}

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Resize thumbnails to fit maximum dimensions before embedding them in MP3 tags
//   - Convert thumbnails (WebP, PNG) to JPEG for player compatibility
//
// Example usage:
//
//	svc := NewImageService()
//	data, _ := os.ReadFile(thumbPath)
//	cover, _ := svc.ResizeImage(ctx, data, 1000, 1000)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and the result is JPEG-encoded. Images that
// already fit are only re-encoded. The Catmull-Rom kernel is used for scaling.
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ConvertToJPEG converts an image (JPEG, PNG, WebP) to JPEG with 90% quality.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// FindThumbnail returns the thumbnail file written next to an artifact,
// i.e. a file with the artifact's stem and an image extension.
func FindThumbnail(artifactPath string) string {
	stem := artifactPath[:len(artifactPath)-len(filepath.Ext(artifactPath))]
	for _, ext := range thumbnailExtensions {
		candidate := stem + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
