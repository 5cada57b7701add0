package scraper

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"sjsage522/cafe24worker/logger"
	"sjsage522/cafe24worker/pkg/errors"
)

const (
	jpegQuality      = 90
	defaultExtension = ".jpg"
	croppedSuffix    = "_cropped"
	matchThreshold   = 0.8
	cropBufferPixels = 10
	defaultMaxWidth  = 1200
)

// ImageManager downloads product images and applies template-based
// cropping and size optimization
type ImageManager struct {
	outputDir    string
	templatesDir string
	client       *http.Client
	log          *logger.Logger
}

// NewImageManager creates an image manager writing into outputDir,
// creating it if absent
func NewImageManager(outputDir, templatesDir string, timeout time.Duration) (*ImageManager, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.NewImage("", "failed to create images directory", err)
	}
	return &ImageManager{
		outputDir:    outputDir,
		templatesDir: templatesDir,
		client:       &http.Client{Timeout: timeout},
		log:          logger.ForImages(),
	}, nil
}

// BaseDir returns the directory downloaded images are written to
func (m *ImageManager) BaseDir() string {
	return m.outputDir
}

// DownloadImages fetches each URL independently. A failed download is
// logged and omitted; it never aborts the batch. The filename index is
// the 1-based position in the input, stable across earlier failures.
func (m *ImageManager) DownloadImages(urls []string, prefix, kind string) []ImageDownloadResult {
	var results []ImageDownloadResult
	for idx, imageURL := range urls {
		path, err := m.downloadSingle(imageURL, prefix, kind, idx+1)
		if err != nil {
			m.log.Warn().Err(err).Str("url", imageURL).Str("kind", kind).Msg("Failed to download image")
			continue
		}
		if path == "" {
			continue
		}
		results = append(results, ImageDownloadResult{Path: path, SourceURL: imageURL, Kind: kind})
	}
	return results
}

func (m *ImageManager) downloadSingle(imageURL, prefix, kind string, index int) (string, error) {
	if imageURL == "" {
		return "", nil
	}

	resp, err := m.client.Get(imageURL)
	if err != nil {
		return "", errors.NewFetch(imageURL, "image request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewFetch(imageURL, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	filename := fmt.Sprintf("%s_%s_%d%s", prefix, kind, index, inferExtension(imageURL))
	destination := filepath.Join(m.outputDir, filename)

	out, err := os.Create(destination)
	if err != nil {
		return "", errors.NewImage(imageURL, "failed to create image file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", errors.NewImage(imageURL, "failed to write image file", err)
	}
	return destination, nil
}

// inferExtension takes the final dot-segment of the URL path, defaulting
// to .jpg when the path carries no extension
func inferExtension(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return defaultExtension
	}
	ext := filepath.Ext(parsed.Path)
	if ext == "" {
		return defaultExtension
	}
	return ext
}

// CropDetailImage removes a known header banner from a detail image by
// locating the named template and keeping everything below it plus a
// small buffer. Returns the cropped file path, or "" when no crop was
// applied (missing template, decode failure, weak match, empty crop) —
// none of these are fatal.
func (m *ImageManager) CropDetailImage(imagePath, templateName string, bufferPixels int) string {
	templatePath := filepath.Join(m.templatesDir, templateName)
	if _, err := os.Stat(templatePath); err != nil {
		m.log.Warn().Str("template", templateName).Msg("Template missing, skipping crop")
		return ""
	}

	target, err := loadImage(imagePath)
	if err != nil {
		m.log.Warn().Err(err).Str("image", imagePath).Msg("Failed to decode image")
		return ""
	}
	template, err := loadImage(templatePath)
	if err != nil {
		m.log.Warn().Err(err).Str("template", templatePath).Msg("Failed to decode template")
		return ""
	}

	_, matchY, score := matchTemplate(target, template)
	if score < matchThreshold {
		m.log.Debug().Str("image", imagePath).Float64("score", score).Msg("No confident match for template")
		return ""
	}

	cropStart := matchY + template.Bounds().Dy() + bufferPixels
	bounds := target.Bounds()
	if cropStart >= bounds.Dy() {
		m.log.Warn().Str("image", imagePath).Msg("Cropping resulted in empty image")
		return ""
	}

	cropped := cropBelow(target, cropStart)
	ext := filepath.Ext(imagePath)
	stem := strings.TrimSuffix(imagePath, ext)
	croppedPath := stem + croppedSuffix + ext

	if err := saveImage(croppedPath, cropped); err != nil {
		m.log.Warn().Err(err).Str("image", croppedPath).Msg("Failed to save cropped image")
		return ""
	}
	return croppedPath
}

// OptimizeImage resizes an image proportionally down to maxWidth and
// overwrites the file. Images at or below the limit are untouched.
func (m *ImageManager) OptimizeImage(imagePath string, maxWidth int) error {
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}

	img, err := loadImage(imagePath)
	if err != nil {
		return errors.NewImage("", "failed to decode image for optimization", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return nil
	}

	ratio := float64(maxWidth) / float64(bounds.Dx())
	newHeight := int(float64(bounds.Dy()) * ratio)
	resized := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, xdraw.Over, nil)

	if err := saveImage(imagePath, resized); err != nil {
		return errors.NewImage("", "failed to save optimized image", err)
	}
	return nil
}

// cropBelow keeps every row at or below startY
func cropBelow(img image.Image, startY int) image.Image {
	bounds := img.Bounds()
	rect := image.Rect(bounds.Min.X, bounds.Min.Y+startY, bounds.Max.X, bounds.Max.Y)

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(cropped, cropped.Bounds(), img, rect.Min, xdraw.Src)
	return cropped
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// saveImage encodes by file extension; everything that is not PNG is
// written as JPEG at quality 90
func saveImage(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".png") {
		return png.Encode(file, img)
	}
	return jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality})
}
