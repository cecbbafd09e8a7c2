package ocrworker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Stage names the pipeline step an external tool failed in
type Stage string

const (
	StageConvert   = Stage("convert")
	StageRecognize = Stage("recognize")
	StageMerge     = Stage("merge")
	StagePublish   = Stage("publish")
)

// ErrRunInProgress is returned by Start while another run still owns the runner
var ErrRunInProgress = errors.New("a conversion is already running")

// PreconditionError is raised before any background work begins, e.g. when
// the input or output path is missing.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return e.Msg
}

// ToolError wraps a failure of one of the external collaborators together
// with whatever the tool printed.
type ToolError struct {
	Stage  Stage
	Tool   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, output)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Cause keeps pkg/errors.Cause walking through tool errors
func (e *ToolError) Cause() error {
	return e.Err
}

// IsPrecondition reports whether err was caused by a failed precondition
func IsPrecondition(err error) bool {
	var preErr *PreconditionError
	return errors.As(err, &preErr)
}

// StageOf returns the stage of the first ToolError in the chain, if any
func StageOf(err error) (Stage, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Stage, true
	}
	return "", false
}

func newToolError(stage Stage, tool string, output string, err error) *ToolError {
	return &ToolError{Stage: stage, Tool: tool, Output: output, Err: err}
}
