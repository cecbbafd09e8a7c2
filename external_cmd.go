package ocrworker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// runExternalCmd runs one of the collaborating binaries and blocks until it
// returns. A zero timeout means the tool may run until ctx is cancelled.
func runExternalCmd(ctx context.Context, stage Stage, commandToRun string, cmdArgs []string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log.Debug().Str("component", "OCR_EXEC").
		Str("stage", string(stage)).
		Str("command", commandToRun).
		Interface("cmdArgs", cmdArgs).
		Msg("running external command")

	cmd := exec.CommandContext(ctx, commandToRun, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("command timed out after %v: %v", timeout, err)
	} else if ctx.Err() == context.Canceled {
		err = ctx.Err()
	}
	if err != nil {
		log.Error().Str("component", "OCR_EXEC").
			Str("stage", string(stage)).
			Str("command", commandToRun).
			Err(err).Msg("error exec external command")
		return string(output), newToolError(stage, filepath.Base(commandToRun), string(output), err)
	}
	return string(output), nil
}

// binaryIn resolves name inside dir, falling back to a PATH lookup when dir
// is empty.
func binaryIn(dir string, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// binaryOrPath prefers name inside dir and falls back to a PATH lookup when
// dir does not contain it. Without either, the path inside dir is returned
// so the failure names the configured location.
func binaryOrPath(dir string, name string) string {
	candidate := binaryIn(dir, name)
	if dir == "" {
		return candidate
	}
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	if found, err := exec.LookPath(name); err == nil {
		log.Debug().Str("component", "OCR_EXEC").Str("dir", dir).
			Str("command", found).Msg("binary not in configured directory, using PATH")
		return found
	}
	return candidate
}
