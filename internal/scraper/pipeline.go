package scraper

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"sjsage522/cafe24worker/helpers"
	"sjsage522/cafe24worker/logger"
	"sjsage522/cafe24worker/pkg/errors"
	"sjsage522/cafe24worker/services/cache"
)

// PipelineSettings configures one pipeline run
type PipelineSettings struct {
	InputPath          string
	OutputDir          string
	TemplatesDir       string
	ProxyURL           string
	DetailTemplateName string
	ZipOutputs         bool
	ZipImagesName      string
	ZipScreenshotsName string
	MaxImageWidth      int

	BaseDelay    time.Duration
	Jitter       time.Duration
	FetchTimeout time.Duration
	ImageTimeout time.Duration
	BlockTime    time.Duration

	// BlockCache may be nil; it disables the rate-limit block window
	BlockCache cache.Service
}

// PipelineResult aggregates one completed run
type PipelineResult struct {
	Records        []*ShopifyRecord
	Failures       []Failure
	CSVPath        string
	SummaryPath    string
	ImagesDir      string
	ImagesZip      string
	ScreenshotsZip string
}

// RunSummary is the JSON document written next to the export
type RunSummary struct {
	SuccessCount       int       `json:"success_count"`
	FailureCount       int       `json:"failure_count"`
	Failures           []Failure `json:"failures"`
	ImagesArchive      string    `json:"images_archive,omitempty"`
	ScreenshotsArchive string    `json:"screenshots_archive,omitempty"`
}

// Pipeline drives one input list through fetch, parse, image processing,
// transform and export. Items are processed strictly sequentially; the
// rate-limit delay dominates cost, so there is nothing to parallelize.
type Pipeline struct {
	settings PipelineSettings
	parser   *Parser
	images   *ImageManager
	log      *logger.Logger

	// separated from the Fetcher so tests can stub network access
	fetchFunc func(url string) (string, error)
}

// NewPipeline wires a pipeline for the given settings, creating the
// output directory tree
func NewPipeline(settings PipelineSettings) (*Pipeline, error) {
	if settings.ZipImagesName == "" {
		settings.ZipImagesName = "images.zip"
	}
	if settings.ZipScreenshotsName == "" {
		settings.ZipScreenshotsName = "screenshots.zip"
	}

	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return nil, errors.NewStorage("failed to create output directory", err)
	}

	fetcher, err := NewFetcher(FetcherConfig{
		ProxyURL:  settings.ProxyURL,
		BaseDelay: settings.BaseDelay,
		Jitter:    settings.Jitter,
		Timeout:   settings.FetchTimeout,
		BlockTime: settings.BlockTime,
	}, settings.BlockCache)
	if err != nil {
		return nil, err
	}

	images, err := NewImageManager(filepath.Join(settings.OutputDir, "images"), settings.TemplatesDir, settings.ImageTimeout)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		settings:  settings,
		parser:    NewParser(),
		images:    images,
		log:       logger.ForPipeline(),
		fetchFunc: fetcher.Fetch,
	}, nil
}

// Run executes the pipeline. A per-item error is recorded and skipped;
// only pre-flight problems (bad input file, unwritable output) fail the
// run itself.
func (p *Pipeline) Run() (*PipelineResult, error) {
	inputs, err := LoadInputs(p.settings.InputPath)
	if err != nil {
		return nil, err
	}
	inputs = DedupeInputs(inputs)

	p.log.Info().Int("count", len(inputs)).Msg("Processing product URLs")

	var records []*ShopifyRecord
	var failures []Failure
	for _, input := range inputs {
		record, err := p.processSingle(input)
		if err != nil {
			p.log.Error().Err(err).Str("url", input.URL).Msg("Failed to process product")
			failures = append(failures, Failure{URL: input.URL, Error: err.Error()})
			continue
		}
		records = append(records, record)
	}

	csvPath := filepath.Join(p.settings.OutputDir, "shopify_import.csv")
	if err := ExportCSV(records, csvPath); err != nil {
		return nil, err
	}
	p.log.Info().Int("records", len(records)).Str("path", csvPath).Msg("Wrote Shopify CSV")

	imagesZip := ""
	screenshotsZip := ""
	if p.settings.ZipOutputs {
		imagesZip = p.archiveDirectory(p.images.BaseDir(), p.settings.ZipImagesName)
		screenshotsZip = p.archiveDirectory(filepath.Join(p.settings.OutputDir, "screenshots"), p.settings.ZipScreenshotsName)
	}

	summaryPath := filepath.Join(p.settings.OutputDir, "run_summary.json")
	if err := writeSummary(summaryPath, len(records), failures, imagesZip, screenshotsZip); err != nil {
		return nil, err
	}
	p.log.Info().Str("path", summaryPath).Msg("Run summary saved")

	return &PipelineResult{
		Records:        records,
		Failures:       failures,
		CSVPath:        csvPath,
		SummaryPath:    summaryPath,
		ImagesDir:      p.images.BaseDir(),
		ImagesZip:      imagesZip,
		ScreenshotsZip: screenshotsZip,
	}, nil
}

// processSingle runs the full chain for one product URL
func (p *Pipeline) processSingle(input ProductInput) (*ShopifyRecord, error) {
	body, err := p.fetchFunc(input.URL)
	if err != nil {
		return nil, err
	}

	raw, err := p.parser.Parse(input.URL, body)
	if err != nil {
		return nil, err
	}

	prefix := helpers.Slugify(firstNonEmpty(raw.Title, raw.SKU, raw.SourceURL))

	if raw.MainImage != "" {
		if paths := p.downloadAndPrepare([]string{raw.MainImage}, prefix, KindMain); len(paths) > 0 {
			raw.MainImage = paths[0]
		}
	}
	if len(raw.GalleryImages) > 0 {
		raw.GalleryImages = p.downloadAndPrepare(raw.GalleryImages, prefix, KindGallery)
	}
	if len(raw.DetailImages) > 0 {
		raw.DetailImages = p.downloadAndPrepare(raw.DetailImages, prefix, KindDetail)
	}

	return RawToShopify(raw), nil
}

// downloadAndPrepare downloads a batch, applies the detail-header crop
// when configured, optimizes each file and returns output-root-relative
// paths. One image's failure never aborts its siblings.
func (p *Pipeline) downloadAndPrepare(urls []string, prefix, kind string) []string {
	downloads := p.images.DownloadImages(urls, prefix, kind)

	prepared := make([]string, 0, len(downloads))
	for _, download := range downloads {
		workingPath := download.Path
		if kind == KindDetail && p.settings.DetailTemplateName != "" {
			if cropped := p.images.CropDetailImage(download.Path, p.settings.DetailTemplateName, cropBufferPixels); cropped != "" {
				workingPath = cropped
			}
		}
		if err := p.images.OptimizeImage(workingPath, p.settings.MaxImageWidth); err != nil {
			p.log.Warn().Err(err).Str("image", workingPath).Msg("Failed to optimize image")
		}
		prepared = append(prepared, relativePath(workingPath, p.settings.OutputDir))
	}
	return prepared
}

// relativePath rewrites a path relative to the output root, falling back
// to the original path when it is not a descendant
func relativePath(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || (len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// archiveDirectory zips a directory into the output root. Empty or
// missing directories are skipped and reported as no archive.
func (p *Pipeline) archiveDirectory(sourceDir, archiveName string) string {
	destination := filepath.Join(p.settings.OutputDir, archiveName)
	path, err := ZipDirectory(sourceDir, destination)
	if err != nil {
		p.log.Error().Err(err).Str("directory", sourceDir).Msg("Failed to create archive")
		return ""
	}
	if path == "" {
		p.log.Info().Str("directory", sourceDir).Msg("Zip skipped; directory empty")
	} else {
		p.log.Info().Str("archive", path).Msg("Created archive")
	}
	return path
}

// ZipDirectory archives every file under sourceDir into destination.
// Returns "" with no error when the directory is missing or empty.
func ZipDirectory(sourceDir, destination string) (string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil || len(entries) == 0 {
		return "", nil
	}

	out, err := os.Create(destination)
	if err != nil {
		return "", errors.NewArchive("failed to create archive file", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)

	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		// the archive may live inside the directory being archived
		if samePath(path, destination) {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(entry, file)
		return err
	})
	if err != nil {
		return "", errors.NewArchive("failed to archive directory", err)
	}

	if err := writer.Close(); err != nil {
		return "", errors.NewArchive("failed to finalize archive", err)
	}
	return destination, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

// writeSummary writes the run summary JSON document
func writeSummary(path string, successCount int, failures []Failure, imagesZip, screenshotsZip string) error {
	if failures == nil {
		failures = []Failure{}
	}
	summary := RunSummary{
		SuccessCount:       successCount,
		FailureCount:       len(failures),
		Failures:           failures,
		ImagesArchive:      imagesZip,
		ScreenshotsArchive: screenshotsZip,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.NewStorage("failed to encode run summary", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewStorage("failed to write run summary", err)
	}
	return nil
}
