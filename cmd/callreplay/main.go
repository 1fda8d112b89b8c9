// Command callreplay replays a recorded call session through the call
// controller and prints the resulting state as JSON.
//
// The voice vendor and the feedback backend are replaced with recorders and
// time only moves on "advance" steps, so a script reproduces the same
// transitions every run:
//
//	callreplay -script testdata/keyword_end.yaml
//	cat session.json | callreplay
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

func main() {
	scriptPath := flag.String("script", "", "path to the script (default: stdin)")
	wait := flag.Duration("wait", 5*time.Second, "how long to wait for feedback to settle")
	verbose := flag.Bool("v", false, "log controller transitions to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*scriptPath, *wait, os.Stdin, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, wait time.Duration, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	in := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	script, err := ParseScript(in)
	if err != nil {
		return err
	}
	report, err := Replay(context.Background(), script, wait, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
