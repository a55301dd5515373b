package cropper

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/color-analyzer/pkg/segmentation"
)

// createTestImage creates a plain test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{64, 64, 64, 255})
		}
	}
	return img
}

// createTestMask labels the mask rectangle r with class c
func createTestMask(t *testing.T, width, height int, r image.Rectangle, c segmentation.Class) *segmentation.Mask {
	t.Helper()
	data := make([]uint8, width*height)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			data[y*width+x] = uint8(c)
		}
	}
	mask, err := segmentation.NewMask(width, height, data)
	if err != nil {
		t.Fatalf("Failed to create mask: %v", err)
	}
	return mask
}

func TestNew(t *testing.T) {
	cropper := New()
	if cropper == nil {
		t.Fatal("New() returned nil")
	}
	if cropper.config.Aspect != Square {
		t.Errorf("Expected square aspect by default, got %+v", cropper.config.Aspect)
	}
	if !cropper.config.IncludeHair {
		t.Error("Expected IncludeHair to be true by default")
	}
}

func TestAspectRatio(t *testing.T) {
	if r := Portrait.Ratio(); r != 0.75 {
		t.Errorf("Expected portrait ratio 0.75, got %v", r)
	}
	if r := (AspectRatio{}).Ratio(); r != 0 {
		t.Errorf("Expected zero ratio for zero value, got %v", r)
	}
	if n := len(CommonAspectRatios()); n != 3 {
		t.Errorf("Expected 3 common ratios, got %d", n)
	}
}

func TestFaceBoundsScalesMask(t *testing.T) {
	mask := createTestMask(t, 50, 50, image.Rect(10, 10, 20, 30), segmentation.Skin)
	got, err := New().FaceBounds(mask, 100, 100)
	if err != nil {
		t.Fatalf("FaceBounds failed: %v", err)
	}
	if want := image.Rect(20, 20, 40, 60); got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCropSquare(t *testing.T) {
	img := createTestImage(100, 100)
	mask := createTestMask(t, 50, 50, image.Rect(10, 10, 20, 30), segmentation.Skin)

	result, err := New().Crop(img, mask)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if want := image.Rect(4, 14, 56, 66); result.Region != want {
		t.Errorf("Expected region %v, got %v", want, result.Region)
	}
	b := result.Image.Bounds()
	if b.Dx() != 52 || b.Dy() != 52 {
		t.Errorf("Expected 52x52 crop, got %dx%d", b.Dx(), b.Dy())
	}
	if result.AspectRatio != 1 {
		t.Errorf("Expected aspect ratio 1, got %v", result.AspectRatio)
	}
	if result.Quality <= 0 || result.Quality > 1 {
		t.Errorf("Expected quality in (0,1], got %v", result.Quality)
	}
}

func TestCropShiftsIntoBounds(t *testing.T) {
	img := createTestImage(100, 100)
	mask := createTestMask(t, 50, 50, image.Rect(0, 0, 5, 5), segmentation.Skin)

	result, err := New().Crop(img, mask)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if want := image.Rect(0, 0, 14, 14); result.Region != want {
		t.Errorf("Expected region %v, got %v", want, result.Region)
	}
}

func TestCropFullFrame(t *testing.T) {
	img := createTestImage(100, 100)
	mask := createTestMask(t, 10, 10, image.Rect(0, 0, 10, 10), segmentation.Skin)

	result, err := New().Crop(img, mask)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if result.Region != img.Bounds() {
		t.Errorf("Expected full frame, got %v", result.Region)
	}
	if result.Quality != 1 {
		t.Errorf("Expected quality 1 for a centered full-frame face, got %v", result.Quality)
	}
}

func TestCropWithoutHair(t *testing.T) {
	img := createTestImage(40, 40)
	mask := createTestMask(t, 40, 40, image.Rect(0, 0, 40, 8), segmentation.Hair)

	if _, err := New().Crop(img, mask); err != nil {
		t.Errorf("Expected hair to count by default, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.IncludeHair = false
	if _, err := NewWithConfig(cfg).Crop(img, mask); !errors.Is(err, ErrNoFace) {
		t.Errorf("Expected ErrNoFace, got %v", err)
	}
	if _, err := New().Crop(img, nil); !errors.Is(err, ErrNoFace) {
		t.Errorf("Expected ErrNoFace for nil mask, got %v", err)
	}
}

func TestCropKeepsFaceBox(t *testing.T) {
	img := createTestImage(100, 100)
	mask := createTestMask(t, 100, 100, image.Rect(40, 20, 60, 80), segmentation.Skin)

	cfg := DefaultConfig()
	cfg.Aspect = AspectRatio{}
	cfg.PaddingRatio = 0
	result, err := NewWithConfig(cfg).Crop(img, mask)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if want := image.Rect(40, 20, 60, 80); result.Region != want {
		t.Errorf("Expected region %v, got %v", want, result.Region)
	}
}
