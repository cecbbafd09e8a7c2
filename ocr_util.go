package ocrworker

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func readFirstBytes(filePath string, nBytesToRead uint) ([]byte, error) {

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buffer := make([]byte, nBytesToRead)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buffer[:n], nil
}

// pdfHeaderWindow is how far into a file PDF readers look for the header
const pdfHeaderWindow = 1024

// hasPDFHeader reports whether buffer carries a %PDF- header; bytes before
// it are tolerated as long as it starts inside pdfHeaderWindow
func hasPDFHeader(buffer []byte) bool {
	if len(buffer) > pdfHeaderWindow {
		buffer = buffer[:pdfHeaderWindow]
	}
	return bytes.Contains(buffer, []byte("%PDF-"))
}

// timeTrack used to measure time of selected operations
func timeTrack(start time.Time, stage Stage, message string) time.Duration {
	elapsed := time.Since(start)
	stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	log.Info().Str("component", "OCR_PIPELINE").Str("stage", string(stage)).
		Dur("elapsed", elapsed).Msg(message)
	return elapsed
}

// publishFile moves src to dst. When a plain rename is impossible (e.g. the
// workspace is on another filesystem) the content is copied next to dst and
// renamed into place, so dst never holds a partial document.
func publishFile(src string, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening merged document")
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*.part")
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing output file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing output file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing output file")
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errors.Wrap(err, "writing output file")
	}
	return errors.Wrap(os.Rename(tmpName, dst), "moving output file into place")
}
