package ocrworker

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchbaselabs/go.assert"
)

func newScriptedTerminalPicker(input string) (*TerminalPicker, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewTerminalPicker(bufio.NewReader(strings.NewReader(input)), out), out
}

func pickerFixture(t *testing.T) string {
	dir := t.TempDir()
	for _, name := range []string{"scan-2024.pdf", "scan-2025.pdf", "notes.txt"} {
		assert.True(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0600) == nil)
	}
	assert.True(t, os.Mkdir(filepath.Join(dir, "bin"), 0700) == nil)
	return dir
}

func TestTerminalPickerTypedPath(t *testing.T) {
	dir := pickerFixture(t)
	input := filepath.Join(dir, "scan-2024.pdf")
	picker, _ := newScriptedTerminalPicker(input + "\n")

	path, ok, err := picker.Pick(PickRequest{Kind: PickOpenFile, Title: "Select input PDF", Patterns: []string{"*.pdf"}})
	assert.True(t, err == nil)
	assert.True(t, ok)
	assert.Equals(t, path, input)
}

func TestTerminalPickerEmptyCancels(t *testing.T) {
	picker, _ := newScriptedTerminalPicker("\n")
	_, ok, err := picker.Pick(PickRequest{Kind: PickOpenFile, Title: "Select input PDF"})
	assert.True(t, err == nil)
	assert.True(t, !ok)

	picker, _ = newScriptedTerminalPicker("")
	_, ok, err = picker.Pick(PickRequest{Kind: PickSaveFile, Title: "Save searchable PDF as"})
	assert.True(t, err == nil)
	assert.True(t, !ok)
}

func TestTerminalPickerFuzzyChoice(t *testing.T) {
	dir := pickerFixture(t)
	picker, out := newScriptedTerminalPicker(filepath.Join(dir, "sc25") + "\n1\n")

	path, ok, err := picker.Pick(PickRequest{Kind: PickOpenFile, Title: "Select input PDF", Patterns: []string{"*.pdf"}})
	assert.True(t, err == nil)
	assert.True(t, ok)
	assert.Equals(t, path, filepath.Join(dir, "scan-2025.pdf"))
	assert.True(t, strings.Contains(out.String(), "1. "+filepath.Join(dir, "scan-2025.pdf")))
	assert.True(t, !strings.Contains(out.String(), "notes.txt"))
}

func TestTerminalPickerDirectory(t *testing.T) {
	dir := pickerFixture(t)

	picker, _ := newScriptedTerminalPicker(dir + "\n")
	path, ok, err := picker.Pick(PickRequest{Kind: PickDirectory, Title: "Select poppler bin directory"})
	assert.True(t, err == nil)
	assert.True(t, ok)
	assert.Equals(t, path, dir)

	// a file is not a directory, so the entries next to it are offered
	picker, out := newScriptedTerminalPicker(filepath.Join(dir, "bi") + "\n1\n")
	path, ok, err = picker.Pick(PickRequest{Kind: PickDirectory, Title: "Select poppler bin directory"})
	assert.True(t, err == nil)
	assert.True(t, ok)
	assert.Equals(t, path, filepath.Join(dir, "bin"))
	assert.True(t, !strings.Contains(out.String(), "scan-2024.pdf"))
}

func TestTerminalPickerSaveRejectsDirectory(t *testing.T) {
	dir := pickerFixture(t)

	picker, _ := newScriptedTerminalPicker(dir + "\n")
	_, ok, err := picker.Pick(PickRequest{Kind: PickSaveFile, Title: "Save searchable PDF as"})
	assert.True(t, err == nil)
	assert.True(t, !ok)

	target := filepath.Join(dir, "new.pdf")
	picker, _ = newScriptedTerminalPicker(target + "\n")
	path, ok, err := picker.Pick(PickRequest{Kind: PickSaveFile, Title: "Save searchable PDF as"})
	assert.True(t, err == nil)
	assert.True(t, ok)
	assert.Equals(t, path, target)
}

func TestTerminalPickerInvalidChoice(t *testing.T) {
	dir := pickerFixture(t)
	picker, _ := newScriptedTerminalPicker(filepath.Join(dir, "scan") + "\n7\n")

	_, ok, err := picker.Pick(PickRequest{Kind: PickOpenFile, Title: "Select input PDF", Patterns: []string{"*.pdf"}})
	assert.True(t, err == nil)
	assert.True(t, !ok)
}

func TestMatchesPatterns(t *testing.T) {
	assert.True(t, matchesPatterns("/scans/Invoice.PDF", []string{"*.pdf"}))
	assert.True(t, !matchesPatterns("/scans/invoice.tiff", []string{"*.pdf"}))
	assert.True(t, matchesPatterns("/usr/bin/tesseract", nil))
}
