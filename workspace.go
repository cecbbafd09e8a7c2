package ocrworker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
)

const workspacePrefix = "searchable-pdf-"

// Workspace is the scratch directory of one run. Page images and fragments
// live here and disappear with Close.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a fresh directory below root (os.TempDir() if empty).
// The directory name is based on ksuid K-Sortable Globally Unique IDs.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, workspacePrefix+ksuid.New().String())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "creating workspace")
	}
	log.Debug().Str("component", "OCR_WORKSPACE").Str("dir", dir).Msg("workspace created")
	return &Workspace{Dir: dir}, nil
}

// ImagePrefix is the prefix handed to the rasterizer; it appends -<page>.png
func (w *Workspace) ImagePrefix() string {
	return filepath.Join(w.Dir, "page")
}

// FragmentBase is the output base for page n (1-indexed); engines append .pdf
func (w *Workspace) FragmentBase(page int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("page_%04d", page))
}

// MergedPath is where the merge utility writes before the result is published
func (w *Workspace) MergedPath() string {
	return filepath.Join(w.Dir, "merged.pdf")
}

// Close removes the workspace and everything in it
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.Dir); err != nil {
		log.Warn().Err(err).Str("component", "OCR_WORKSPACE").Str("dir", w.Dir).
			Msg("workspace could not be removed")
		return err
	}
	log.Debug().Str("component", "OCR_WORKSPACE").Str("dir", w.Dir).Msg("workspace removed")
	return nil
}
