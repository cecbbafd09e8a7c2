package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xf0e/searchable-pdf"
)

// Without -batch the form is shown on the terminal; all flags only seed it.
//   cli-sandwich -input scan.pdf -output searchable.pdf -batch

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	// Default level is info, unless debug flag is present
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli})
}

func main() {
	noOpFlagFunc := ocrworker.NoOpFlagFunctionRun()
	runConfig, err := ocrworker.DefaultConfigFlagsRunOverride(noOpFlagFunc)
	if err != nil {
		log.Error().Str("component", "OCR_CLI").Err(err).Msg("error getting arguments")
		os.Exit(2)
	}
	if runConfig.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		// the console log already tells the user what happens
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	log.Debug().Interface("runConfig", runConfig).Msg("parameter list of runConfig")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)

	console := ocrworker.NewConsole(os.Stdout, os.Stderr, false)
	runner := ocrworker.NewRunner(console)

	if runConfig.Batch {
		go func() {
			sig := <-signals
			log.Warn().Str("component", "OCR_CLI").Str("signal", sig.String()).
				Msg("Caught signal to terminate, cancelling the running conversion")
			// a second signal terminates right away
			signal.Stop(signals)
			cancel()
		}()

		result := runner.Run(ctx, runConfig)
		if result.Err != nil {
			console.NotifyError("Error", result.Err.Error())
			os.Exit(1)
		}
		console.NotifySuccess("Success", "OCR completed successfully!")
		return
	}

	in := bufio.NewReader(os.Stdin)
	form := ocrworker.NewForm(runConfig, ocrworker.NewTerminalPicker(in, os.Stdout))
	session := ocrworker.NewSession(form, runner, console, in, os.Stdout)

	// a signal during a run cancels that run and returns to the form; a
	// signal while idle terminates
	go func() {
		for sig := range signals {
			if session.CancelRun() {
				log.Warn().Str("component", "OCR_CLI").Str("signal", sig.String()).
					Msg("Caught signal, cancelling the running conversion")
				continue
			}
			log.Warn().Str("component", "OCR_CLI").Str("signal", sig.String()).
				Msg("Caught signal to terminate")
			signal.Stop(signals)
			cancel()
			os.Exit(130)
		}
	}()

	if err := session.Loop(ctx); err != nil {
		log.Error().Str("component", "OCR_CLI").Err(err).Msg("reading commands failed")
		os.Exit(1)
	}
}
