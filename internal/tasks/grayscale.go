package tasks

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"eva/internal/state"
)

// GrayscaleImage converts the image at path to grayscale with the usual
// luma weights and writes it next to the original as grayscale_<name>.
// The done flag wakes the monitor once the file is on disk.
func GrayscaleImage(log *zap.Logger, st *state.Shared, path string) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("grayscale")

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	img, _, err := image.Decode(src)
	src.Close()
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray.SetGray(x, y, color.Gray{Y: uint8(luma)})
		}
	}

	outPath := filepath.Join(filepath.Dir(path), "grayscale_"+filepath.Base(path))
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output image: %w", err)
	}
	defer out.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(out, gray, nil)
	default:
		err = png.Encode(out, gray)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode output image: %w", err)
	}

	st.SetNewImagePath(outPath)
	st.GrayscaleDone.Raise()
	log.Info("image converted", zap.String("output", outPath))

	return "Grayscaling was finished, you can check the new black and white pic, in the same directory where pic was", nil
}
