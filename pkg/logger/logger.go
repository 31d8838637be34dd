// Package logger is the project's thin structured-logging front door: a
// small set of level functions plus a couple of presentational helpers for
// CLI banners, all backed by logrus so every package gets consistent
// field-based output instead of ad hoc fmt.Printf.
package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// ANSI color codes, used only by the presentational helpers below.
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
)

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	base.SetLevel(logrus.InfoLevel)
}

// SetLevel sets the minimum log level by name ("debug", "info", "warn",
// "error").
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// With returns a field-scoped logger, e.g. for tagging all lines from one
// peer's goroutine with its handle.
func With(fields logrus.Fields) *logrus.Entry {
	return base.WithFields(fields)
}

func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }
func Info(format string, args ...interface{})  { base.Infof(format, args...) }
func Warn(format string, args ...interface{})  { base.Warnf(format, args...) }
func Error(format string, args ...interface{}) { base.Errorf(format, args...) }

// Success logs at info level tagged with a "result=success" field, since
// logrus has no distinct success level.
func Success(format string, args ...interface{}) {
	base.WithField("result", "success").Infof(format, args...)
}

// Fatal logs at fatal level and exits, matching log.Fatal semantics.
func Fatal(format string, args ...interface{}) {
	base.Fatalf(format, args...)
}

// InfoCyan logs at info level tagged for a highlighted CLI line.
func InfoCyan(format string, args ...interface{}) {
	base.WithField("highlight", true).Infof(format, args...)
}

// Section prints a section header directly to stdout. Purely
// presentational; not part of the structured log stream.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the CLI application banner directly to stdout.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██████╗ ██████╗ ███████╗██████╗ ██████╗ ██╗  ██╗       ║
║   ╚════██╗██╔══██╗██╔════╝██╔══██╗██╔══██╗██║ ██╔╝       ║
║    █████╔╝██████╔╝███████╗██║  ██║██████╔╝█████╔╝        ║
║   ██╔═══╝ ██╔══██╗╚════██║██║  ██║██╔═══╝ ██╔═██╗        ║
║   ███████╗██║  ██║███████║██████╔╝██║     ██║  ██╗       ║
║   ╚══════╝╚═╝  ╚═╝╚══════╝╚═════╝ ╚═╝     ╚═╝  ╚═╝       ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Fprintf(os.Stdout, banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
