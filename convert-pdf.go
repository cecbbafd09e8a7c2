package ocrworker

/*	The rasterizer renders every page of the input document into a PNG
	inside the workspace. poppler's pdftoppm names the images
	<prefix>-<page>.png and zero pads the page number depending on the
	page count, so the images are ordered by their parsed page number.
*/

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

type Rasterizer interface {
	// Rasterize returns the page images in page order
	Rasterize(ctx context.Context, inputPDF string, dpi int, outPrefix string) ([]string, error)
}

// PopplerRasterizer calls pdftoppm via exec
type PopplerRasterizer struct {
	BinDir  string
	Timeout time.Duration
}

func (p PopplerRasterizer) Rasterize(ctx context.Context, inputPDF string, dpi int, outPrefix string) ([]string, error) {
	pdftoppm := binaryIn(p.BinDir, "pdftoppm")
	if dpi <= 0 {
		return nil, newToolError(StageConvert, "pdftoppm", "", fmt.Errorf("invalid resolution %d dpi", dpi))
	}

	cmdArgs := []string{"-r", strconv.Itoa(dpi), "-png", inputPDF, outPrefix}
	log.Info().Str("component", "OCR_CONVERTPDF").Str("input", inputPDF).
		Int("dpi", dpi).Msg("Convert PDF")

	if _, err := runExternalCmd(ctx, StageConvert, pdftoppm, cmdArgs, p.Timeout); err != nil {
		return nil, err
	}

	images, err := collectPageImages(outPrefix)
	if err != nil {
		return nil, newToolError(StageConvert, "pdftoppm", "", err)
	}
	if len(images) == 0 {
		return nil, newToolError(StageConvert, "pdftoppm", "", fmt.Errorf("no page images were produced for %s", inputPDF))
	}
	return images, nil
}

type pageImage struct {
	page int
	path string
}

// collectPageImages finds <prefix>-<n>.png and returns them sorted by n. The
// directory is listed rather than globbed since the workspace root may
// contain pattern characters.
func collectPageImages(outPrefix string) ([]string, error) {
	dir, base := filepath.Split(outPrefix)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	pages := make([]pageImage, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(name, base+"-"), ".png")
		page, err := strconv.Atoi(numStr)
		if err != nil {
			log.Warn().Str("component", "OCR_CONVERTPDF").Str("file_name", name).
				Msg("ignoring image without page number")
			continue
		}
		pages = append(pages, pageImage{page: page, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })

	images := make([]string, len(pages))
	for i, p := range pages {
		images[i] = p.path
	}
	return images, nil
}

// pdfPageCount reads the page count with pdfcpu
func pdfPageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
