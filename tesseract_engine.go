package ocrworker

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// This variant of the TesseractEngine calls tesseract via exec
type TesseractEngine struct {
	Path        string
	PageSegMode string
	ConfigVars  map[string]string
	Timeout     time.Duration
}

type TesseractEngineArgs struct {
	configVars  map[string]string
	pageSegMode string
	lang        string
}

// return a slice that can be passed to tesseract binary as command line
// args, eg, ["-c", "tessedit_char_whitelist=0123456789", "-l", "eng", "pdf"]
func (t TesseractEngineArgs) Export() []string {
	var result []string
	keys := make([]string, 0, len(t.configVars))
	for k := range t.configVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		result = append(result, "-c")
		keyValArg := fmt.Sprintf("%s=%s", k, t.configVars[k])
		result = append(result, keyValArg)
	}
	if t.pageSegMode != "" {
		result = append(result, "--psm", t.pageSegMode)
	}
	if t.lang != "" {
		result = append(result, "-l", t.lang)
	}
	// the pdf config makes tesseract write image plus invisible text layer
	result = append(result, "pdf")

	return result
}

// Recognize runs tesseract on imagePath and returns the fragment it wrote
func (t TesseractEngine) Recognize(ctx context.Context, imagePath string, outBase string, lang string) (string, error) {
	engineArgs := TesseractEngineArgs{
		configVars:  t.ConfigVars,
		pageSegMode: t.PageSegMode,
		lang:        lang,
	}

	cmdArgs := []string{imagePath, outBase}
	cmdArgs = append(cmdArgs, engineArgs.Export()...)
	log.Debug().Str("component", "OCR_TESSERACT").Interface("cmdArgs", cmdArgs).Msg("exec tesseract")

	tesseract := t.Path
	if tesseract == "" {
		tesseract = "tesseract"
	}
	if _, err := runExternalCmd(ctx, StageRecognize, tesseract, cmdArgs, t.Timeout); err != nil {
		return "", err
	}

	outFile, err := findOutfile(outBase, []string{"pdf"})
	if err != nil {
		log.Error().Err(err).Str("component", "OCR_TESSERACT").
			Str("file_name", outBase).Msg("Error getting data from out file")
		return "", newToolError(StageRecognize, "tesseract", "", err)
	}
	return outFile, nil
}

func findOutfile(outfileBaseName string, fileExtensions []string) (string, error) {

	for _, fileExtension := range fileExtensions {

		outFile := fmt.Sprintf("%v.%v", outfileBaseName, fileExtension)
		log.Debug().Str("component", "OCR_TESSERACT").Str("outFile", outFile).
			Msg("check if file exists")

		if _, err := os.Stat(outFile); err == nil {
			return outFile, nil
		}

	}

	return "", fmt.Errorf("could not find outfile, basename: %v extensions: %v", outfileBaseName, fileExtensions)

}
