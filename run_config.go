package ocrworker

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTesseract = "/usr/bin/tesseract"
	DefaultPoppler   = "/usr/bin"
	DefaultLang      = "eng"
	DefaultDPI       = 300
)

// RunConfig is everything a single conversion needs. The form edits a copy of
// it and hands it to the runner when the user starts a run.
type RunConfig struct {
	InputPDF      string
	OutputPDF     string
	TesseractPath string
	PopplerPath   string
	Lang          string
	PageSegMode   string
	TesseractVars map[string]string
	DPI           int
	Engine        OcrEngineType
	Merger        MergerType
	ToolTimeout   time.Duration
	MetricsFile   string
	Debug         bool
	Batch         bool
}

func DefaultRunConfig() RunConfig {

	runConfig := RunConfig{
		TesseractPath: DefaultTesseract,
		PopplerPath:   DefaultPoppler,
		Lang:          DefaultLang,
		DPI:           DefaultDPI,
		Engine:        EngineTesseract,
		Merger:        MergerPdfunite,
		ToolTimeout:   0, // external tools may take as long as they need
	}
	return runConfig

}

// Validate checks the only precondition of a run: both document paths are set
func (c RunConfig) Validate() error {
	if c.InputPDF == "" || c.OutputPDF == "" {
		return &PreconditionError{Msg: "Please select input and output PDFs."}
	}
	return nil
}

type FlagFunctionRun func()

func NoOpFlagFunctionRun() FlagFunctionRun {
	return func() {}
}

// DefaultConfigFlagsRunOverride lets flagFunction register additional flags on
// the default flag set, then parses the command line on top of the defaults.
func DefaultConfigFlagsRunOverride(flagFunction FlagFunctionRun) (RunConfig, error) {
	flagFunction()
	return parseRunFlags(flag.CommandLine, os.Args[1:])
}

func parseRunFlags(fs *flag.FlagSet, args []string) (RunConfig, error) {
	runConfig := DefaultRunConfig()

	fs.StringVar(
		&runConfig.InputPDF,
		"input",
		runConfig.InputPDF,
		"scanned PDF to make searchable",
	)
	fs.StringVar(
		&runConfig.OutputPDF,
		"output",
		runConfig.OutputPDF,
		"path of the searchable PDF to create",
	)
	fs.StringVar(
		&runConfig.TesseractPath,
		"tesseract",
		runConfig.TesseractPath,
		"path of the tesseract executable",
	)
	fs.StringVar(
		&runConfig.PopplerPath,
		"poppler_path",
		runConfig.PopplerPath,
		"directory holding the poppler binaries (pdftoppm, pdfunite); empty means search PATH",
	)
	fs.StringVar(
		&runConfig.Lang,
		"lang",
		runConfig.Lang,
		"OCR language(s), e.g. eng or eng+deu",
	)
	fs.StringVar(
		&runConfig.PageSegMode,
		"psm",
		runConfig.PageSegMode,
		"tesseract page segmentation mode, empty keeps the tesseract default",
	)
	fs.Var(
		(*configVarsFlag)(&runConfig.TesseractVars),
		"tesseract_config",
		"tesseract config variable as key=value, may be repeated",
	)
	fs.IntVar(
		&runConfig.DPI,
		"dpi",
		runConfig.DPI,
		"resolution used to rasterize the pages",
	)
	fs.Var(
		&runConfig.Engine,
		"engine",
		"OCR engine, one of {tesseract,mock}",
	)
	fs.Var(
		&runConfig.Merger,
		"merger",
		"merge utility, one of {pdfunite,pdfcpu}",
	)
	fs.DurationVar(
		&runConfig.ToolTimeout,
		"tool_timeout",
		runConfig.ToolTimeout,
		"timeout for every external tool invocation, 0 disables it",
	)
	fs.StringVar(
		&runConfig.MetricsFile,
		"metrics_file",
		runConfig.MetricsFile,
		"write prometheus metrics to this textfile after every run",
	)
	fs.BoolVar(
		&runConfig.Debug,
		"debug",
		false,
		"sets debug flag, program will print more messages",
	)
	fs.BoolVar(
		&runConfig.Batch,
		"batch",
		false,
		"run one conversion from the flags and exit instead of opening the form",
	)

	if err := fs.Parse(args); err != nil {
		return runConfig, errors.Wrap(err, "parsing flags")
	}
	return runConfig, nil
}

// configVarsFlag collects repeated -tesseract_config key=value flags
type configVarsFlag map[string]string

func (c *configVarsFlag) String() string {
	if c == nil || len(*c) == 0 {
		return ""
	}
	keys := make([]string, 0, len(*c))
	for k := range *c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + (*c)[k]
	}
	return strings.Join(pairs, ",")
}

func (c *configVarsFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("tesseract config %q is not key=value", value)
	}
	if *c == nil {
		*c = make(configVarsFlag)
	}
	(*c)[key] = strings.TrimSpace(val)
	return nil
}
