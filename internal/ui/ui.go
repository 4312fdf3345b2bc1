// Package ui prints leveled, colored status messages to the terminal.
// Findings and reports go through the output sinks; this package is
// only for operator-facing chatter around a run.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Level classifies a message.
type Level int

const (
	Info Level = iota
	Success
	Warn
	Error
	Debug
)

var (
	mu     sync.RWMutex
	quiet  bool
	debug  bool
	writer io.Writer = os.Stderr

	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.Faint)
	bannerColor  = color.New(color.FgHiBlue, color.Bold)
)

// SetQuiet suppresses info, success and debug messages.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetDebug enables debug messages.
func SetDebug(d bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = d
}

// SetNoColor disables ANSI colors globally.
func SetNoColor(nc bool) {
	color.NoColor = nc
}

// PrintMessage prints a message at the given level, honoring the quiet
// and debug settings.
func PrintMessage(level Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	switch level {
	case Debug:
		if !debug || quiet {
			return
		}
		debugColor.Fprintf(writer, "[d] %s\n", fmt.Sprintf(format, args...))
	case Info:
		if quiet {
			return
		}
		infoColor.Fprintf(writer, "[*] %s\n", fmt.Sprintf(format, args...))
	case Success:
		if quiet {
			return
		}
		successColor.Fprintf(writer, "[+] %s\n", fmt.Sprintf(format, args...))
	case Warn:
		warnColor.Fprintf(writer, "[!] %s\n", fmt.Sprintf(format, args...))
	case Error:
		errorColor.Fprintf(writer, "[-] %s\n", fmt.Sprintf(format, args...))
	}
}

const banner = `
           _
  ___ _ __ | |_ _ __ __ _ ___  ___ __ _ _ __
 / _ \ '_ \| __| '__/ _' / __|/ __/ _' | '_ \
|  __/ | | | |_| | | (_| \__ \ (_| (_| | | | |
 \___|_| |_|\__|_|  \__,_|___/\___\__,_|_| |_|
`

// Banner prints the program banner with a version line.
func Banner(version string) {
	mu.RLock()
	defer mu.RUnlock()
	if quiet {
		return
	}
	bannerColor.Fprint(writer, banner)
	fmt.Fprintf(writer, "  cloud identity auditor %s\n\n", version)
}
