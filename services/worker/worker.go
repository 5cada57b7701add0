package worker

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"sjsage522/cafe24worker/config"
	"sjsage522/cafe24worker/internal/scraper"
	"sjsage522/cafe24worker/internal/screenshot"
	"sjsage522/cafe24worker/logger"
	"sjsage522/cafe24worker/pkg/errors"
	"sjsage522/cafe24worker/services/cache"
	"sjsage522/cafe24worker/services/runstore"
)

// Executor runs one complete scraper run: optional screenshot capture,
// the core pipeline, and the deliverables archive.
type Executor struct {
	cfg        config.Config
	blockCache cache.Service
	capturer   *screenshot.Capturer
	log        *logger.Logger
}

// NewExecutor creates an executor. blockCache may be nil.
func NewExecutor(cfg config.Config, blockCache cache.Service) *Executor {
	var capturer *screenshot.Capturer
	if cfg.ScreenshotEnabled {
		capturer = screenshot.NewCapturer(cfg.ScreenshotTimeout)
	}
	return &Executor{
		cfg:        cfg,
		blockCache: blockCache,
		capturer:   capturer,
		log:        logger.ForWorker(),
	}
}

// Execute runs the pipeline for inputPath into outputDir and returns the
// pipeline result plus the deliverables archive path ("" when absent)
func (e *Executor) Execute(ctx context.Context, inputPath, outputDir string) (*scraper.PipelineResult, string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, "", errors.NewStorage("failed to create run output directory", err)
	}

	// Screenshots land before the pipeline so its archive step packages
	// them alongside the images.
	if e.capturer != nil {
		e.captureScreenshots(ctx, inputPath, outputDir)
	}

	pipeline, err := scraper.NewPipeline(scraper.PipelineSettings{
		InputPath:          inputPath,
		OutputDir:          outputDir,
		TemplatesDir:       e.cfg.TemplatesRoot,
		ProxyURL:           e.cfg.ProxyURL,
		DetailTemplateName: e.cfg.DetailTemplateName,
		ZipOutputs:         e.cfg.ZipOutputs,
		ZipImagesName:      e.cfg.ZipImagesName,
		ZipScreenshotsName: e.cfg.ZipScreenshotsName,
		MaxImageWidth:      e.cfg.MaxImageWidth,
		BaseDelay:          e.cfg.BaseDelay,
		Jitter:             e.cfg.Jitter,
		FetchTimeout:       e.cfg.FetchTimeout,
		ImageTimeout:       e.cfg.ImageTimeout,
		BlockTime:          e.cfg.BlockTime,
		BlockCache:         e.blockCache,
	})
	if err != nil {
		return nil, "", err
	}

	result, err := pipeline.Run()
	if err != nil {
		return nil, "", err
	}

	archivePath := ""
	if e.cfg.ZipOutputs {
		archivePath, err = scraper.ZipDirectory(outputDir, filepath.Join(outputDir, "deliverables.zip"))
		if err != nil {
			e.log.Error().Err(err).Str("dir", outputDir).Msg("Failed to build deliverables archive")
			archivePath = ""
		}
	}
	return result, archivePath, nil
}

func (e *Executor) captureScreenshots(ctx context.Context, inputPath, outputDir string) {
	inputs, err := scraper.LoadInputs(inputPath)
	if err != nil {
		// the pipeline will surface the input error properly
		return
	}
	inputs = scraper.DedupeInputs(inputs)

	urls := make([]string, 0, len(inputs))
	for _, input := range inputs {
		urls = append(urls, input.URL)
	}
	captured := e.capturer.CaptureAll(ctx, urls, filepath.Join(outputDir, "screenshots"))
	e.log.Info().Int("captured", captured).Int("requested", len(urls)).Msg("Screenshot capture finished")
}

type runRequest struct {
	id        string
	inputPath string
}

// Worker serializes pipeline runs on a single consumer. The queue holds
// exactly one pending run beyond the executing one, so submitted runs
// never hit the target site concurrently.
type Worker struct {
	executor   *Executor
	store      runstore.Store
	outputRoot string
	queue      chan runRequest
	log        *logger.Logger
}

// NewWorker creates a worker writing run outputs under outputRoot
func NewWorker(executor *Executor, store runstore.Store, outputRoot string) *Worker {
	return &Worker{
		executor:   executor,
		store:      store,
		outputRoot: outputRoot,
		queue:      make(chan runRequest, 1),
		log:        logger.ForWorker(),
	}
}

// Submit validates the input file, persists a queued run and hands it to
// the consumer. It blocks until the queue has room or ctx is done.
func (w *Worker) Submit(ctx context.Context, inputPath string, source string) (string, error) {
	absPath, err := filepath.Abs(inputPath)
	if err == nil {
		inputPath = absPath
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", errors.NewInput("input file not found", err)
	}

	id := uuid.New().String()
	record := &runstore.RunRecord{
		ID:            id,
		InputPath:     inputPath,
		InputFilename: filepath.Base(inputPath),
		Source:        source,
	}
	if err := w.store.CreateRun(ctx, record); err != nil {
		return "", err
	}

	select {
	case w.queue <- runRequest{id: id, inputPath: inputPath}:
		w.log.Info().Str("run_id", id).Str("input", inputPath).Msg("Run queued")
		return id, nil
	case <-ctx.Done():
		if err := w.store.MarkFailed(context.Background(), id, "run was not queued before shutdown"); err != nil {
			w.log.Error().Err(err).Str("run_id", id).Msg("Failed to mark abandoned run")
		}
		return "", ctx.Err()
	}
}

// Start consumes queued runs until ctx is cancelled. It blocks; callers
// run it in a goroutine. Queued-but-unstarted work is abandoned on
// shutdown without waiting.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Run worker stopped")
			return
		case req := <-w.queue:
			w.process(ctx, req)
		}
	}
}

func (w *Worker) process(ctx context.Context, req runRequest) {
	if err := w.store.MarkRunning(ctx, req.id); err != nil {
		w.log.Error().Err(err).Str("run_id", req.id).Msg("Failed to mark run running")
	}

	outputDir := filepath.Join(w.outputRoot, req.id)
	result, archivePath, err := w.executor.Execute(ctx, req.inputPath, outputDir)
	if err != nil {
		w.log.Error().Err(err).Str("run_id", req.id).Msg("Run failed")
		if storeErr := w.store.MarkFailed(ctx, req.id, err.Error()); storeErr != nil {
			w.log.Error().Err(storeErr).Str("run_id", req.id).Msg("Failed to mark run failed")
		}
		return
	}

	artifacts := runstore.Artifacts{
		OutputDir:          outputDir,
		CSVPath:            result.CSVPath,
		SummaryPath:        result.SummaryPath,
		ImagesZipPath:      result.ImagesZip,
		ScreenshotsZipPath: result.ScreenshotsZip,
		ArchivePath:        archivePath,
	}
	if err := w.store.MarkSucceeded(ctx, req.id, artifacts); err != nil {
		w.log.Error().Err(err).Str("run_id", req.id).Msg("Failed to mark run succeeded")
		return
	}
	w.log.Info().
		Str("run_id", req.id).
		Int("successes", len(result.Records)).
		Int("failures", len(result.Failures)).
		Msg("Run completed")
}
