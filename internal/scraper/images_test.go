package scraper

import (
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImageManager(t *testing.T) *ImageManager {
	t.Helper()
	manager, err := NewImageManager(filepath.Join(t.TempDir(), "images"), t.TempDir(), 2*time.Second)
	require.NoError(t, err)
	return manager
}

// noisePixel gives every coordinate a distinct deterministic gray value so
// template matching has exactly one strong peak
func noisePixel(x, y int) uint8 {
	return uint8((x*31 + y*57 + x*y*13) % 251)
}

func newNoiseImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := noisePixel(x, y)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

func TestInferExtension(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"png", "https://cdn.example.com/web/upload/a.png", ".png"},
		{"jpg with query", "https://cdn.example.com/a.jpg?v=3", ".jpg"},
		{"no extension", "https://cdn.example.com/image/12345", ".jpg"},
		{"gif", "https://cdn.example.com/spacer.gif", ".gif"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, inferExtension(tc.url))
		})
	}
}

func TestDownloadImagesKeepsStableIndexes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	manager := newTestImageManager(t)

	urls := []string{
		server.URL + "/first.jpg",
		server.URL + "/missing.jpg",
		server.URL + "/third.png",
	}
	results := manager.DownloadImages(urls, "summer-dress", KindGallery)

	require.Len(t, results, 2, "the failed download is omitted, not fatal")
	assert.Equal(t, "summer-dress_gallery_1.jpg", filepath.Base(results[0].Path))
	assert.Equal(t, "summer-dress_gallery_3.png", filepath.Base(results[1].Path),
		"filename index follows input position, not success count")

	for _, result := range results {
		data, err := os.ReadFile(result.Path)
		require.NoError(t, err)
		assert.Equal(t, "image-bytes", string(data))
		assert.Equal(t, KindGallery, result.Kind)
	}
}

func TestDownloadImagesSkipsEmptyURL(t *testing.T) {
	manager := newTestImageManager(t)
	results := manager.DownloadImages([]string{""}, "p", KindMain)
	assert.Empty(t, results)
}

func TestOptimizeImageResizesWideImages(t *testing.T) {
	manager := newTestImageManager(t)

	path := filepath.Join(manager.BaseDir(), "wide.png")
	writePNG(t, path, newNoiseImage(2400, 600))

	require.NoError(t, manager.OptimizeImage(path, 1200))

	img, err := loadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy(), "aspect ratio is preserved")
}

func TestOptimizeImageKeepsSmallImages(t *testing.T) {
	manager := newTestImageManager(t)

	path := filepath.Join(manager.BaseDir(), "small.png")
	writePNG(t, path, newNoiseImage(800, 200))

	require.NoError(t, manager.OptimizeImage(path, 1200))

	img, err := loadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestCropDetailImage(t *testing.T) {
	manager := newTestImageManager(t)

	target := newNoiseImage(60, 80)
	targetPath := filepath.Join(manager.BaseDir(), "detail.png")
	writePNG(t, targetPath, target)

	// template is an exact copy of rows 12..30 of the target
	template := image.NewRGBA(image.Rect(0, 0, 60, 18))
	for y := 0; y < 18; y++ {
		for x := 0; x < 60; x++ {
			v := noisePixel(x, y+12)
			template.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	writePNG(t, filepath.Join(manager.templatesDir, "detail_header.png"), template)

	croppedPath := manager.CropDetailImage(targetPath, "detail_header.png", 4)
	require.NotEmpty(t, croppedPath)
	assert.Equal(t, "detail_cropped.png", filepath.Base(croppedPath))

	cropped, err := loadImage(croppedPath)
	require.NoError(t, err)
	assert.Equal(t, 60, cropped.Bounds().Dx())
	// everything above match row 12 + template height 18 + buffer 4 is gone
	assert.Equal(t, 46, cropped.Bounds().Dy())
}

func TestCropDetailImageWeakMatch(t *testing.T) {
	manager := newTestImageManager(t)

	targetPath := filepath.Join(manager.BaseDir(), "detail.png")
	writePNG(t, targetPath, newNoiseImage(60, 80))

	// a flat template correlates with nothing
	flat := image.NewRGBA(image.Rect(0, 0, 60, 18))
	for y := 0; y < 18; y++ {
		for x := 0; x < 60; x++ {
			flat.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	writePNG(t, filepath.Join(manager.templatesDir, "detail_header.png"), flat)

	assert.Empty(t, manager.CropDetailImage(targetPath, "detail_header.png", 4))
}

func TestCropDetailImageMissingTemplate(t *testing.T) {
	manager := newTestImageManager(t)

	targetPath := filepath.Join(manager.BaseDir(), "detail.png")
	writePNG(t, targetPath, newNoiseImage(20, 20))

	assert.Empty(t, manager.CropDetailImage(targetPath, "does_not_exist.png", 4))
}

func TestMatchTemplateFindsOffset(t *testing.T) {
	target := newNoiseImage(40, 50)

	template := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			v := noisePixel(x+7, y+23)
			template.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	bestX, bestY, score := matchTemplate(target, template)
	assert.Equal(t, 7, bestX)
	assert.Equal(t, 23, bestY)
	assert.InDelta(t, 1.0, score, 0.001)
}

func TestMatchTemplateLargerThanTarget(t *testing.T) {
	_, _, score := matchTemplate(newNoiseImage(10, 10), newNoiseImage(20, 20))
	assert.Equal(t, 0.0, score)
}
