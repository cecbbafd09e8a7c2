package ocrworker

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/couchbaselabs/go.assert"
)

// writeInputPDF creates a PDF with one page per marker
func writeInputPDF(t *testing.T, path string, markers ...string) {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "B", 96)
	for _, marker := range markers {
		pdf.AddPage()
		pdf.Text(100, 300, marker)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("writing input pdf: %v", err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := encodeBlankPNG(path); err != nil {
		t.Fatalf("writing png: %v", err)
	}
}

// encodeBlankPNG writes a small white page image
func encodeBlankPNG(path string) error {
	img := image.NewGray(image.Rect(0, 0, 85, 110))
	for x := 0; x < 85; x++ {
		for y := 0; y < 110; y++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	assert.True(t, err == nil)
	if len(entries) != 0 {
		t.Errorf("expected %s to be empty, found %d entries (first: %s)", dir, len(entries), entries[0].Name())
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s not to exist, stat returned %v", path, err)
	}
}

// fakeRasterizer writes unpadded <prefix>-<n>.png images like pdftoppm does
// for small documents
type fakeRasterizer struct {
	pages   int
	release chan struct{} // when set, Rasterize blocks until closed or ctx ends
}

func (f fakeRasterizer) Rasterize(ctx context.Context, inputPDF string, dpi int, outPrefix string) ([]string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for page := 1; page <= f.pages; page++ {
		if err := encodeBlankPNG(fmt.Sprintf("%s-%d.png", outPrefix, page)); err != nil {
			return nil, err
		}
	}
	return collectPageImages(outPrefix)
}

// recordingEngine remembers which images it was asked to recognize and
// fails on page failOn (1-indexed, 0 never fails)
type recordingEngine struct {
	inner  OcrEngine
	failOn int

	mu     sync.Mutex
	images []string
}

func (r *recordingEngine) Recognize(ctx context.Context, imagePath string, outBase string, lang string) (string, error) {
	r.mu.Lock()
	r.images = append(r.images, imagePath)
	page := len(r.images)
	r.mu.Unlock()

	if page == r.failOn {
		return "", newToolError(StageRecognize, "tesseract", "Failed loading language 'xxx'", fmt.Errorf("exit status 1"))
	}
	return r.inner.Recognize(ctx, imagePath, outBase, lang)
}

type recordingMerger struct {
	inner Merger
	err   error

	mu        sync.Mutex
	fragments []string
}

func (r *recordingMerger) Merge(ctx context.Context, fragments []string, dst string) error {
	r.mu.Lock()
	r.fragments = append([]string(nil), fragments...)
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.inner.Merge(ctx, fragments, dst)
}

type recordingReporter struct {
	mu     sync.Mutex
	lines  []string
	states []RunState
}

func (r *recordingReporter) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, msg)
}

func (r *recordingReporter) StateChanged(state RunState, page int, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingReporter) hasLine(line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l == line {
			return true
		}
	}
	return false
}

// testRun prepares an input document, an output path and a workspace root
type testRun struct {
	dir           string
	workspaceRoot string
	config        RunConfig
}

func newTestRun(t *testing.T) testRun {
	dir := t.TempDir()
	workspaceRoot := filepath.Join(dir, "tmp")
	if err := os.Mkdir(workspaceRoot, 0700); err != nil {
		t.Fatalf("creating workspace root: %v", err)
	}
	input := filepath.Join(dir, "scan.pdf")
	writeInputPDF(t, input, "A", "B", "C")

	runConfig := DefaultRunConfig()
	runConfig.InputPDF = input
	runConfig.OutputPDF = filepath.Join(dir, "searchable.pdf")
	runConfig.Engine = EngineMock
	runConfig.Merger = MergerPdfcpu
	return testRun{dir: dir, workspaceRoot: workspaceRoot, config: runConfig}
}

// stallingRasterizer blocks its first call until the run is cancelled and
// behaves like fakeRasterizer afterwards
type stallingRasterizer struct {
	pages int

	mu    sync.Mutex
	calls int
}

func (s *stallingRasterizer) Rasterize(ctx context.Context, inputPDF string, dpi int, outPrefix string) ([]string, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return fakeRasterizer{pages: s.pages}.Rasterize(ctx, inputPDF, dpi, outPrefix)
}

// waitFor polls cond until it holds or the test gives up
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
