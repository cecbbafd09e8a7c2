package ocrworker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"
)

// mockEngineText is written into every mock fragment ahead of lang and image name
const mockEngineText = "mock engine decoder response"

// MockEngine builds the page fragment in-process: the page image scaled to
// its physical size plus one invisible line of text. It lets the rest of the
// pipeline run without tesseract installed.
type MockEngine struct {
	DPI int
}

func (m MockEngine) Recognize(ctx context.Context, imagePath string, outBase string, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	imgBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return "", newToolError(StageRecognize, "mock", "", err)
	}
	imgConfig, format, err := image.DecodeConfig(bytes.NewReader(imgBytes))
	if err != nil {
		return "", newToolError(StageRecognize, "mock", "", fmt.Errorf("failed to decode image config: %w", err))
	}

	dpi := m.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	w := float64(imgConfig.Width) * 72 / float64(dpi)
	h := float64(imgConfig.Height) * 72 / float64(dpi)

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: strings.ToUpper(format)}
	pdf.RegisterImageOptionsReader("page", opts, bytes.NewReader(imgBytes))
	pdf.ImageOptions("page", 0, 0, w, h, false, opts, 0, "")

	// hide text from normal view, like the tesseract text layer
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetAlpha(0.0, "Normal")
	pdf.Text(0, 10, fmt.Sprintf("%s %s %s", mockEngineText, lang, filepath.Base(imagePath)))

	outFile := outBase + ".pdf"
	if err := pdf.OutputFileAndClose(outFile); err != nil {
		return "", newToolError(StageRecognize, "mock", "", err)
	}
	return outFile, nil
}
