package ocrworker

import (
	"context"
	"fmt"
	"strings"
)

type OcrEngineType int

const (
	EngineTesseract = OcrEngineType(iota)
	EngineMock
)

// OcrEngine turns one page image into a single-page PDF fragment that shows
// the image and carries the recognized text as an invisible layer. The
// fragment is written to outBase + ".pdf" and its path returned.
type OcrEngine interface {
	Recognize(ctx context.Context, imagePath string, outBase string, lang string) (string, error)
}

func NewOcrEngine(engineType OcrEngineType, runConfig RunConfig) OcrEngine {
	switch engineType {
	case EngineMock:
		return &MockEngine{DPI: runConfig.DPI}
	case EngineTesseract:
		return &TesseractEngine{
			Path:        runConfig.TesseractPath,
			PageSegMode: runConfig.PageSegMode,
			ConfigVars:  runConfig.TesseractVars,
			Timeout:     runConfig.ToolTimeout,
		}
	}
	return nil
}

func (e OcrEngineType) String() string {
	switch e {
	case EngineMock:
		return "mock"
	case EngineTesseract:
		return "tesseract"
	}
	return ""
}

// Set implements flag.Value
func (e *OcrEngineType) Set(value string) error {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TESSERACT":
		*e = EngineTesseract
	case "MOCK":
		*e = EngineMock
	default:
		return fmt.Errorf("unknown OCR engine %q, choose tesseract or mock", value)
	}
	return nil
}
