package ocrworker

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
	"github.com/schollz/progressbar/v3"
)

const WindowTitle = "PDF OCR → Searchable PDF"

// Console is the terminal rendition of the window: a scrolling read-only log,
// a page progress bar and modal notifications. It implements Reporter.
type Console struct {
	mu          deadlock.Mutex
	out         io.Writer
	progressOut io.Writer
	logger      zerolog.Logger
	bar         *progressbar.ProgressBar

	success *color.Color
	failure *color.Color
	label   *color.Color
}

// NewConsole writes the log to out and the progress bar to progressOut; a nil
// progressOut disables the bar.
func NewConsole(out io.Writer, progressOut io.Writer, noColor bool) *Console {
	console := &Console{
		out:         out,
		progressOut: progressOut,
		logger: zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    noColor,
			TimeFormat: "15:04:05",
		}).With().Timestamp().Logger(),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		label:   color.New(color.FgCyan),
	}
	if noColor {
		console.success.DisableColor()
		console.failure.DisableColor()
		console.label.DisableColor()
	}
	return console
}

func (c *Console) Log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info().Msg(msg)
}

func (c *Console) StateChanged(state RunState, page int, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch state {
	case StateRecognizing:
		if c.bar == nil && c.progressOut != nil {
			c.bar = newPageBar(total, c.progressOut)
		}
		if c.bar != nil {
			_ = c.bar.Set(page - 1)
		}
	case StateMerging, StateDone, StateFailed:
		if c.bar != nil {
			if state != StateFailed {
				_ = c.bar.Set(total)
			}
			_ = c.bar.Finish()
			c.bar = nil
		}
	}
}

func newPageBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("OCR"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// NotifySuccess shows a success notification
func (c *Console) NotifySuccess(title string, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.box(c.success, "✓ "+title, msg)
}

// NotifyError shows an error notification with the raw message
func (c *Console) NotifyError(title string, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.box(c.failure, "✗ "+title, msg)
}

// RenderForm prints the window title and the current field values
func (c *Console) RenderForm(form *Form) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%s\n%s\n", WindowTitle, strings.Repeat("=", len([]rune(WindowTitle))))
	for i, field := range Fields {
		browse := "  "
		if form.CanBrowse(field) {
			browse = "b" + fmt.Sprint(i+1)
		}
		line := fmt.Sprintf("%d/%s  %-17s %s", i+1, browse, c.label.Sprint(field.String()), form.Get(field))
		if hint := field.Hint(); hint != "" {
			line += "   (" + hint + ")"
		}
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out, "s  Start OCR    q  Quit")
}

func (c *Console) box(col *color.Color, title string, content string) {
	lines := strings.Split(content, "\n")
	width := len([]rune(title))
	for _, line := range lines {
		if n := len([]rune(line)); n > width {
			width = n
		}
	}
	if width < 40 {
		width = 40
	}

	horizontal := strings.Repeat("─", width+2)
	fmt.Fprintf(c.out, "\n┌%s┐\n", horizontal)
	fmt.Fprintf(c.out, "│ %s%s │\n", col.Sprint(title), strings.Repeat(" ", width-len([]rune(title))))
	fmt.Fprintf(c.out, "├%s┤\n", horizontal)
	for _, line := range lines {
		fmt.Fprintf(c.out, "│ %s%s │\n", line, strings.Repeat(" ", width-len([]rune(line))))
	}
	fmt.Fprintf(c.out, "└%s┘\n\n", horizontal)
}
