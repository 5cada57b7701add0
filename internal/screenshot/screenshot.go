package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"sjsage522/cafe24worker/logger"
)

// Capturer takes full-page screenshots of product pages with a headless
// Chrome. Capture failures are logged and skipped; the run never fails
// because a screenshot did.
type Capturer struct {
	timeout time.Duration
	log     *logger.Logger
}

// NewCapturer creates a capturer with a per-page timeout
func NewCapturer(timeout time.Duration) *Capturer {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Capturer{
		timeout: timeout,
		log:     logger.ForScreenshot(),
	}
}

// CaptureAll screenshots every URL into outputDir as screenshot_{n}.png
// and returns the number of successful captures
func (c *Capturer) CaptureAll(ctx context.Context, urls []string, outputDir string) int {
	if len(urls) == 0 {
		return 0
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		c.log.Error().Err(err).Str("dir", outputDir).Msg("Failed to create screenshots directory")
		return 0
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	captured := 0
	for idx, pageURL := range urls {
		select {
		case <-ctx.Done():
			return captured
		default:
		}

		destination := filepath.Join(outputDir, fmt.Sprintf("screenshot_%d.png", idx+1))
		if err := c.captureOne(allocCtx, pageURL, destination); err != nil {
			c.log.Warn().Err(err).Str("url", pageURL).Msg("Failed to capture screenshot")
			continue
		}
		captured++
		c.log.Debug().Str("url", pageURL).Str("path", destination).Msg("Captured screenshot")
	}
	return captured
}

func (c *Capturer) captureOne(allocCtx context.Context, pageURL, destination string) error {
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, c.timeout)
	defer cancelRun()

	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return err
	}
	return os.WriteFile(destination, buf, 0o644)
}
