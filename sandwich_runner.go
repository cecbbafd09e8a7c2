package ocrworker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

type RunState int

const (
	StateIdle = RunState(iota)
	StateConverting
	StateRecognizing
	StateMerging
	StateDone
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConverting:
		return "CONVERTING"
	case StateRecognizing:
		return "RECOGNIZING"
	case StateMerging:
		return "MERGING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return ""
}

// Reporter is the interaction surface as seen from a run. Both methods are
// called from the run's goroutine.
type Reporter interface {
	Log(msg string)
	// StateChanged is called on every transition; page and total are only
	// meaningful once the page count is known.
	StateChanged(state RunState, page int, total int)
}

// Result is the terminal outcome of one run
type Result struct {
	State    RunState
	Pages    int
	Output   string
	Duration time.Duration
	Err      error
}

// Toolchain bundles the three external collaborators of a run
type Toolchain struct {
	Rasterizer Rasterizer
	Engine     OcrEngine
	Merger     Merger
}

// NewToolchain builds the collaborators a RunConfig asks for
func NewToolchain(runConfig RunConfig) Toolchain {
	return Toolchain{
		Rasterizer: PopplerRasterizer{BinDir: runConfig.PopplerPath, Timeout: runConfig.ToolTimeout},
		Engine:     NewOcrEngine(runConfig.Engine, runConfig),
		Merger:     NewMerger(runConfig.Merger, runConfig),
	}
}

type RunnerOption func(*Runner)

// WithToolchain replaces the collaborator factory
func WithToolchain(toolchain func(RunConfig) Toolchain) RunnerOption {
	return func(r *Runner) {
		r.toolchain = toolchain
	}
}

// WithWorkspaceRoot places run workspaces below dir instead of os.TempDir()
func WithWorkspaceRoot(dir string) RunnerOption {
	return func(r *Runner) {
		r.workspaceRoot = dir
	}
}

// Runner sequences rasterization, recognition and merging for one document
// at a time.
type Runner struct {
	mu      deadlock.Mutex
	state   RunState
	running bool

	reporter      Reporter
	toolchain     func(RunConfig) Toolchain
	workspaceRoot string
}

func NewRunner(reporter Reporter, opts ...RunnerOption) *Runner {
	runner := &Runner{
		state:     StateIdle,
		reporter:  reporter,
		toolchain: NewToolchain,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// State returns the state of the current or last run
func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Running reports whether a run currently owns the runner
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start checks the precondition and launches the run in the background. The
// returned channel delivers exactly one Result. Nothing is started when the
// precondition fails or another run is still in progress.
func (r *Runner) Start(ctx context.Context, runConfig RunConfig) (<-chan Result, error) {
	if err := runConfig.Validate(); err != nil {
		log.Warn().Str("component", "OCR_PIPELINE").Err(err).Msg("run refused")
		return nil, err
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		log.Warn().Str("component", "OCR_PIPELINE").Err(ErrRunInProgress).Msg("run refused")
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	done := make(chan Result, 1)
	go func() {
		result := r.execute(ctx, runConfig)

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()

		done <- result
		close(done)
	}()
	return done, nil
}

// Run is the blocking form of Start
func (r *Runner) Run(ctx context.Context, runConfig RunConfig) Result {
	done, err := r.Start(ctx, runConfig)
	if err != nil {
		return Result{State: r.State(), Err: err}
	}
	return <-done
}

func (r *Runner) execute(ctx context.Context, runConfig RunConfig) Result {
	start := time.Now()
	inFlightGauge.Inc()
	defer inFlightGauge.Dec()

	log.Info().Str("component", "OCR_PIPELINE").
		Str("input", runConfig.InputPDF).
		Str("output", runConfig.OutputPDF).
		Str("engine", runConfig.Engine.String()).
		Str("merger", runConfig.Merger.String()).
		Msg("run started")

	pages, err := r.process(ctx, runConfig)
	result := Result{Pages: pages, Duration: time.Since(start), Err: err}
	if err != nil {
		result.State = StateFailed
		runsTotal.WithLabelValues("failed").Inc()
		log.Error().Str("component", "OCR_PIPELINE").Err(err).Msg("run failed")
		r.setState(StateFailed, 0, pages)
	} else {
		result.State = StateDone
		result.Output = runConfig.OutputPDF
		runsTotal.WithLabelValues("done").Inc()
		r.logLine("DONE ✔ Searchable PDF created")
		r.setState(StateDone, pages, pages)
	}

	if runConfig.MetricsFile != "" {
		if err := WriteMetricsFile(runConfig.MetricsFile); err != nil {
			log.Warn().Str("component", "OCR_PIPELINE").Err(err).
				Str("file_name", runConfig.MetricsFile).Msg("metrics could not be written")
		}
	}
	return result
}

// process runs the three stages inside a scoped workspace and returns the
// number of pages found
func (r *Runner) process(ctx context.Context, runConfig RunConfig) (int, error) {
	tools := r.toolchain(runConfig)

	r.setState(StateConverting, 0, 0)
	r.logLine("Converting PDF to images...")

	ws, err := NewWorkspace(r.workspaceRoot)
	if err != nil {
		return 0, newToolError(StageConvert, "workspace", "", err)
	}
	defer ws.Close()

	if err := checkInputPDF(runConfig.InputPDF); err != nil {
		return 0, err
	}

	convertStart := time.Now()
	images, err := tools.Rasterizer.Rasterize(ctx, runConfig.InputPDF, runConfig.DPI, ws.ImagePrefix())
	if err != nil {
		return 0, err
	}
	timeTrack(convertStart, StageConvert, "pages rasterized")

	total := len(images)
	r.logLine(fmt.Sprintf("Total pages: %d", total))
	if count, err := pdfPageCount(runConfig.InputPDF); err != nil {
		log.Debug().Str("component", "OCR_PIPELINE").Err(err).Msg("page count of input not available")
	} else if count != total {
		log.Warn().Str("component", "OCR_PIPELINE").Int("pdf_pages", count).
			Int("images", total).Msg("page count differs from rasterized images")
	}

	fragments := make([]string, 0, total)
	for i, image := range images {
		page := i + 1
		if err := ctx.Err(); err != nil {
			return total, err
		}
		r.setState(StateRecognizing, page, total)
		r.logLine(fmt.Sprintf("OCR page %d/%d", page, total))

		pageStart := time.Now()
		fragment, err := tools.Engine.Recognize(ctx, image, ws.FragmentBase(page), runConfig.Lang)
		if err != nil {
			return total, err
		}
		fragments = append(fragments, fragment)
		pagesTotal.Inc()
		stageDuration.WithLabelValues(string(StageRecognize)).Observe(time.Since(pageStart).Seconds())

		// the image is no longer needed once its fragment exists
		if err := os.Remove(image); err != nil {
			log.Warn().Str("component", "OCR_PIPELINE").Err(err).Str("file_name", image).
				Msg("page image could not be removed")
		}
	}

	r.setState(StateMerging, total, total)
	r.logLine("Merging pages...")

	mergeStart := time.Now()
	merged := ws.MergedPath()
	if err := tools.Merger.Merge(ctx, fragments, merged); err != nil {
		return total, err
	}
	if count, err := pdfPageCount(merged); err != nil {
		log.Warn().Str("component", "OCR_PIPELINE").Err(err).Msg("merged document could not be verified")
	} else if count != total {
		return total, newToolError(StageMerge, "verify", "",
			fmt.Errorf("merged document has %d pages, expected %d", count, total))
	}
	if err := publishFile(merged, runConfig.OutputPDF); err != nil {
		return total, newToolError(StagePublish, "publish", "", err)
	}
	timeTrack(mergeStart, StageMerge, "pages merged")

	return total, nil
}

// checkInputPDF makes sure the input exists and carries a PDF header
func checkInputPDF(path string) error {
	buffer, err := readFirstBytes(path, pdfHeaderWindow)
	if err != nil {
		return newToolError(StageConvert, "input", "", errors.Wrap(err, "reading input document"))
	}
	if !hasPDFHeader(buffer) {
		return newToolError(StageConvert, "input", "",
			fmt.Errorf("%s is not a PDF document", path))
	}
	return nil
}

func (r *Runner) setState(state RunState, page int, total int) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()

	log.Debug().Str("component", "OCR_PIPELINE").Str("state", state.String()).
		Int("page", page).Int("total", total).Msg("state changed")
	if r.reporter != nil {
		r.reporter.StateChanged(state, page, total)
	}
}

func (r *Runner) logLine(msg string) {
	if r.reporter != nil {
		r.reporter.Log(msg)
	}
}
