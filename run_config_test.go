package ocrworker

import (
	"context"
	"flag"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/couchbaselabs/go.assert"
)

func newTestFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("searchable-pdf", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestDefaultRunConfig(t *testing.T) {
	runConfig := DefaultRunConfig()
	assert.Equals(t, runConfig.TesseractPath, "/usr/bin/tesseract")
	assert.Equals(t, runConfig.PopplerPath, "/usr/bin")
	assert.Equals(t, runConfig.Lang, "eng")
	assert.Equals(t, runConfig.DPI, 300)
	assert.Equals(t, runConfig.Engine, EngineTesseract)
	assert.Equals(t, runConfig.Merger, MergerPdfunite)
	assert.Equals(t, runConfig.ToolTimeout, time.Duration(0))
	assert.Equals(t, runConfig.InputPDF, "")
	assert.Equals(t, runConfig.OutputPDF, "")
}

func TestRunConfigValidate(t *testing.T) {
	runConfig := DefaultRunConfig()
	assert.True(t, IsPrecondition(runConfig.Validate()))

	runConfig.InputPDF = "scan.pdf"
	assert.True(t, IsPrecondition(runConfig.Validate()))

	runConfig.InputPDF = ""
	runConfig.OutputPDF = "out.pdf"
	assert.True(t, IsPrecondition(runConfig.Validate()))

	runConfig.InputPDF = "scan.pdf"
	assert.True(t, runConfig.Validate() == nil)
}

func TestParseRunFlags(t *testing.T) {
	runConfig, err := parseRunFlags(newTestFlagSet(), []string{
		"-input", "scan.pdf",
		"-output", "out.pdf",
		"-tesseract", "/opt/tesseract/bin/tesseract",
		"-poppler_path", "/opt/poppler/bin",
		"-lang", "eng+deu",
		"-psm", "4",
		"-tesseract_config", "preserve_interword_spaces=1",
		"-tesseract_config", "textonly_pdf = 0",
		"-dpi", "200",
		"-engine", "mock",
		"-merger", "pdfcpu",
		"-tool_timeout", "2m",
		"-metrics_file", "/var/lib/node_exporter/ocr.prom",
		"-debug",
	})
	assert.True(t, err == nil)
	assert.Equals(t, runConfig.InputPDF, "scan.pdf")
	assert.Equals(t, runConfig.OutputPDF, "out.pdf")
	assert.Equals(t, runConfig.TesseractPath, "/opt/tesseract/bin/tesseract")
	assert.Equals(t, runConfig.PopplerPath, "/opt/poppler/bin")
	assert.Equals(t, runConfig.Lang, "eng+deu")
	assert.Equals(t, runConfig.PageSegMode, "4")
	assert.True(t, reflect.DeepEqual(runConfig.TesseractVars, map[string]string{
		"preserve_interword_spaces": "1",
		"textonly_pdf":              "0",
	}))
	assert.Equals(t, runConfig.DPI, 200)
	assert.Equals(t, runConfig.Engine, EngineMock)
	assert.Equals(t, runConfig.Merger, MergerPdfcpu)
	assert.Equals(t, runConfig.ToolTimeout, 2*time.Minute)
	assert.Equals(t, runConfig.MetricsFile, "/var/lib/node_exporter/ocr.prom")
	assert.True(t, runConfig.Debug)
	assert.True(t, !runConfig.Batch)
}

func TestParseRunFlagsKeepsDefaults(t *testing.T) {
	runConfig, err := parseRunFlags(newTestFlagSet(), nil)
	assert.True(t, err == nil)
	assert.True(t, reflect.DeepEqual(runConfig, DefaultRunConfig()))
}

func TestParseRunFlagsRejectsUnknownTools(t *testing.T) {
	_, err := parseRunFlags(newTestFlagSet(), []string{"-engine", "cuneiform"})
	assert.True(t, err != nil)

	_, err = parseRunFlags(newTestFlagSet(), []string{"-merger", "pdftk"})
	assert.True(t, err != nil)
}

func TestParseRunFlagsRejectsMalformedTesseractConfig(t *testing.T) {
	_, err := parseRunFlags(newTestFlagSet(), []string{"-tesseract_config", "textonly_pdf"})
	assert.True(t, err != nil)
	_, err = parseRunFlags(newTestFlagSet(), []string{"-tesseract_config", "=1"})
	assert.True(t, err != nil)
}

// a batch run with missing paths is refused by the runner, not the parser,
// so the refusal reaches the console like any other failure
func TestParseRunFlagsBatchLeavesValidationToRunner(t *testing.T) {
	runConfig, err := parseRunFlags(newTestFlagSet(), []string{"-batch", "-input", "scan.pdf"})
	assert.True(t, err == nil)
	assert.True(t, runConfig.Batch)
	assert.True(t, IsPrecondition(runConfig.Validate()))

	result := NewRunner(nil).Run(context.Background(), runConfig)
	assert.True(t, IsPrecondition(result.Err))
	assert.Equals(t, result.Err.Error(), "Please select input and output PDFs.")
}
