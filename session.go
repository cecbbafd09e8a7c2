package ocrworker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Session is the interactive form loop: edit fields, browse, start, quit.
// Runs happen in the background so the form stays usable meanwhile.
type Session struct {
	form    *Form
	runner  *Runner
	console *Console
	in      *bufio.Reader
	out     io.Writer

	wg sync.WaitGroup

	mu        deadlock.Mutex
	runID     int
	cancelRun context.CancelFunc
}

func NewSession(form *Form, runner *Runner, console *Console, in *bufio.Reader, out io.Writer) *Session {
	return &Session{form: form, runner: runner, console: console, in: in, out: out}
}

// Loop reads commands until q or end of input. On q a running conversion is
// cancelled; on end of input it is allowed to finish. Every run gets its own
// context below ctx, so cancelling one run leaves the form usable.
func (s *Session) Loop(ctx context.Context) error {
	for {
		s.console.RenderForm(s.form)
		fmt.Fprint(s.out, "> ")

		line, err := readLine(s.in)
		if err != nil && err != io.EOF {
			s.CancelRun()
			s.wg.Wait()
			return err
		}
		if err == io.EOF && line == "" {
			s.wg.Wait()
			return nil
		}

		if quit := s.handle(ctx, line); quit {
			s.CancelRun()
			s.wg.Wait()
			return nil
		}
	}
}

// CancelRun cancels the conversion started from this session and reports
// whether one was running
func (s *Session) CancelRun() bool {
	s.mu.Lock()
	cancel := s.cancelRun
	s.cancelRun = nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	log.Info().Str("component", "OCR_CLI").Msg("cancelling running conversion")
	cancel()
	return true
}

func (s *Session) handle(ctx context.Context, cmd string) bool {
	switch {
	case cmd == "":
	case cmd == "q":
		return true
	case cmd == "s":
		s.start(ctx)
	case strings.HasPrefix(cmd, "b"):
		field, ok := s.fieldFor(strings.TrimPrefix(cmd, "b"))
		if !ok || !s.form.CanBrowse(field) {
			fmt.Fprintf(s.out, "unknown command %q\n", cmd)
			return false
		}
		if _, err := s.form.Browse(field); err != nil {
			s.console.NotifyError("Error", err.Error())
		}
	default:
		field, ok := s.fieldFor(cmd)
		if !ok {
			fmt.Fprintf(s.out, "unknown command %q\n", cmd)
			return false
		}
		s.edit(field)
	}
	return false
}

func (s *Session) fieldFor(number string) (Field, bool) {
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 || n > len(Fields) {
		return 0, false
	}
	return Fields[n-1], true
}

// edit replaces the field with the typed value; an empty answer keeps it
func (s *Session) edit(field Field) {
	fmt.Fprintf(s.out, "%s [%s]: ", field, s.form.Get(field))
	value, err := readLine(s.in)
	if err != nil && err != io.EOF {
		return
	}
	if value != "" {
		s.form.Set(field, value)
	}
}

func (s *Session) start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	done, err := s.runner.Start(runCtx, s.form.Config())
	if err != nil {
		cancel()
		s.console.NotifyError("Error", err.Error())
		return
	}

	s.mu.Lock()
	s.runID++
	id := s.runID
	s.cancelRun = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := <-done

		s.mu.Lock()
		if s.runID == id {
			s.cancelRun = nil
		}
		s.mu.Unlock()
		cancel()

		if result.Err != nil {
			s.console.NotifyError("Error", result.Err.Error())
			return
		}
		s.console.NotifySuccess("Success", "OCR completed successfully!")
	}()
}
