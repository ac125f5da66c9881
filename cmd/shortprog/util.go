package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// isTerminalWriter reports whether w is a terminal. Writers other than
// *os.File, such as test buffers, never are.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

// newLogger returns a console logger for terminals and a JSON logger
// otherwise.
func newLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	if isTerminalWriter(w) {
		w = zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// prettyJSON colorizes JSON output for terminals.
func prettyJSON(data []byte, w io.Writer) []byte {
	if color.NoColor || !isTerminalWriter(w) {
		return data
	}
	formatted, err := prettyjson.Format(data)
	if err != nil {
		return data
	}
	return formatted
}
