package ocrworker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

func init() {
	// settings are never persisted, keep pdfcpu from creating its config dir
	api.DisableConfigDir()
}

type MergerType int

const (
	MergerPdfunite = MergerType(iota)
	MergerPdfcpu
)

// Merger concatenates the page fragments, in the given order, into dst
type Merger interface {
	Merge(ctx context.Context, fragments []string, dst string) error
}

func NewMerger(mergerType MergerType, runConfig RunConfig) Merger {
	switch mergerType {
	case MergerPdfcpu:
		return &PdfcpuMerger{}
	case MergerPdfunite:
		return &PdfuniteMerger{BinDir: runConfig.PopplerPath, Timeout: runConfig.ToolTimeout}
	}
	return nil
}

func (m MergerType) String() string {
	switch m {
	case MergerPdfunite:
		return "pdfunite"
	case MergerPdfcpu:
		return "pdfcpu"
	}
	return ""
}

// Set implements flag.Value
func (m *MergerType) Set(value string) error {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PDFUNITE":
		*m = MergerPdfunite
	case "PDFCPU":
		*m = MergerPdfcpu
	default:
		return fmt.Errorf("unknown merger %q, choose pdfunite or pdfcpu", value)
	}
	return nil
}

// PdfuniteMerger calls poppler's pdfunite via exec, from BinDir when it
// holds one and from PATH otherwise
type PdfuniteMerger struct {
	BinDir  string
	Timeout time.Duration
}

func (p PdfuniteMerger) Merge(ctx context.Context, fragments []string, dst string) error {
	if len(fragments) == 0 {
		return newToolError(StageMerge, "pdfunite", "", fmt.Errorf("nothing to merge"))
	}
	var cmdArgs []string
	cmdArgs = append(cmdArgs, fragments...)
	cmdArgs = append(cmdArgs, dst)
	log.Info().Str("component", "OCR_MERGE").Int("fragments", len(fragments)).
		Str("file_name", dst).Msg("Arguments for pdfunite to combine pdf files")

	_, err := runExternalCmd(ctx, StageMerge, binaryOrPath(p.BinDir, "pdfunite"), cmdArgs, p.Timeout)
	return err
}

// PdfcpuMerger merges in-process with pdfcpu
type PdfcpuMerger struct{}

func (PdfcpuMerger) Merge(ctx context.Context, fragments []string, dst string) error {
	if len(fragments) == 0 {
		return newToolError(StageMerge, "pdfcpu", "", fmt.Errorf("nothing to merge"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	log.Info().Str("component", "OCR_MERGE").Int("fragments", len(fragments)).
		Str("file_name", dst).Msg("merging pdf files with pdfcpu")

	if err := api.MergeCreateFile(fragments, dst, false, conf); err != nil {
		return newToolError(StageMerge, "pdfcpu", "", err)
	}
	return nil
}
