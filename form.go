package ocrworker

import (
	"fmt"
	"path/filepath"
)

type Field int

const (
	FieldInputPDF = Field(iota)
	FieldOutputPDF
	FieldTesseractPath
	FieldPopplerPath
	FieldLang
)

// Fields lists the editable fields in display order
var Fields = []Field{FieldInputPDF, FieldOutputPDF, FieldTesseractPath, FieldPopplerPath, FieldLang}

func (f Field) String() string {
	switch f {
	case FieldInputPDF:
		return "Input PDF"
	case FieldOutputPDF:
		return "Output PDF"
	case FieldTesseractPath:
		return "Tesseract Path"
	case FieldPopplerPath:
		return "Poppler Bin Path"
	case FieldLang:
		return "OCR Language(s)"
	}
	return ""
}

// Hint is shown next to the field, empty when there is none
func (f Field) Hint() string {
	if f == FieldLang {
		return "e.g. eng or eng+deu"
	}
	return ""
}

type PickerKind int

const (
	PickOpenFile = PickerKind(iota)
	PickSaveFile
	PickDirectory
)

// PickRequest constrains what a picker may return
type PickRequest struct {
	Kind       PickerKind
	Title      string
	Patterns   []string // e.g. "*.pdf"; empty accepts any file
	DefaultExt string   // appended by save pickers when the name has no extension
	Current    string
}

// Picker is a native file or folder selection dialog. ok is false when the
// user cancelled.
type Picker interface {
	Pick(req PickRequest) (path string, ok bool, err error)
}

// Form holds the configuration being edited by the user
type Form struct {
	config RunConfig
	picker Picker
}

func NewForm(runConfig RunConfig, picker Picker) *Form {
	return &Form{config: runConfig, picker: picker}
}

// Config returns a copy of the edited configuration
func (f *Form) Config() RunConfig {
	return f.config
}

func (f *Form) Get(field Field) string {
	switch field {
	case FieldInputPDF:
		return f.config.InputPDF
	case FieldOutputPDF:
		return f.config.OutputPDF
	case FieldTesseractPath:
		return f.config.TesseractPath
	case FieldPopplerPath:
		return f.config.PopplerPath
	case FieldLang:
		return f.config.Lang
	}
	return ""
}

// Set stores value verbatim; fields are free-form strings
func (f *Form) Set(field Field, value string) {
	switch field {
	case FieldInputPDF:
		f.config.InputPDF = value
	case FieldOutputPDF:
		f.config.OutputPDF = value
	case FieldTesseractPath:
		f.config.TesseractPath = value
	case FieldPopplerPath:
		f.config.PopplerPath = value
	case FieldLang:
		f.config.Lang = value
	}
}

// CanBrowse reports whether field has a browse action
func (f *Form) CanBrowse(field Field) bool {
	_, ok := browseRequest(field)
	return ok
}

// Browse opens the picker for field. The field is only overwritten when the
// user selected something.
func (f *Form) Browse(field Field) (bool, error) {
	req, ok := browseRequest(field)
	if !ok {
		return false, fmt.Errorf("%s has no browse action", field)
	}
	req.Current = f.Get(field)

	path, picked, err := f.picker.Pick(req)
	if err != nil || !picked || path == "" {
		return false, err
	}
	if req.Kind == PickSaveFile && req.DefaultExt != "" && filepath.Ext(path) == "" {
		path += req.DefaultExt
	}
	f.Set(field, path)
	return true, nil
}

func browseRequest(field Field) (PickRequest, bool) {
	switch field {
	case FieldInputPDF:
		return PickRequest{Kind: PickOpenFile, Title: "Select input PDF", Patterns: []string{"*.pdf"}}, true
	case FieldOutputPDF:
		return PickRequest{Kind: PickSaveFile, Title: "Save searchable PDF as", Patterns: []string{"*.pdf"}, DefaultExt: ".pdf"}, true
	case FieldTesseractPath:
		return PickRequest{Kind: PickOpenFile, Title: "Select tesseract executable"}, true
	case FieldPopplerPath:
		return PickRequest{Kind: PickDirectory, Title: "Select poppler bin directory"}, true
	}
	return PickRequest{}, false
}
