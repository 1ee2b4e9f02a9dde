package persist

import (
	"fmt"
	"log"
	"os"
)

// Logger is a wrapper for the standard library logger that enforces
// logging with a header and a STARTUP/SHUTDOWN bookend, writes only to the
// file it was given, and exposes a Debug* set of methods that are no-ops
// unless the logger was created verbose.
//
// This mirrors the shape every darve-server module expects of its `log`
// field (Debug/Debugf/Debugln, Print/Printf/Println, Critical, Close) —
// see modules/taskreward, which holds a *persist.Logger.
type Logger struct {
	*log.Logger
	verbose bool
	file    *os.File
}

// NewLogger returns a logger that can be closed. Calls should not be made
// to the logger after 'Close' has been called.
func NewLogger(w *os.File, header string, verbose bool) (*Logger, error) {
	l := &Logger{
		Logger:  log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile),
		verbose: verbose,
		file:    w,
	}
	if header != "" {
		l.Println("STARTUP", header)
	} else {
		l.Println("STARTUP")
	}
	return l, nil
}

// NewFileLogger creates a logger that logs to logFilename, appending to any
// data already there. The header is written once at startup for operators
// grepping logs across restarts (matches the call shape of
// persist.NewFileLogger across every darve-server module).
func NewFileLogger(header, logFilename string, verbose bool) (*Logger, error) {
	file, err := os.OpenFile(logFilename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0660)
	if err != nil {
		return nil, err
	}
	return NewLogger(file, header, verbose)
}

// Close logs a shutdown message and closes the file handle backing the
// logger, if any.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN")
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Debug is a passthrough to log.Logger.Print that is a no-op unless the
// logger is verbose.
func (l *Logger) Debug(v ...interface{}) {
	if l.verbose {
		l.Output(2, fmt.Sprint(v...))
	}
}

// Debugf is a passthrough to log.Logger.Printf that is a no-op unless the
// logger is verbose.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.verbose {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Debugln is a passthrough to log.Logger.Println that is a no-op unless the
// logger is verbose.
func (l *Logger) Debugln(v ...interface{}) {
	if l.verbose {
		l.Output(2, fmt.Sprintln(v...))
	}
}

// Critical logs a critical message and then panics, the same escalation
// rivine's consensus/wallet modules use for invariant violations that must
// never be allowed to keep running silently (e.g. a chain-integrity break
// in the ledger).
func (l *Logger) Critical(v ...interface{}) {
	l.Output(2, "CRITICAL: "+fmt.Sprint(v...))
	panic(fmt.Sprint(v...))
}

// Criticalf is the formatted counterpart to Critical.
func (l *Logger) Criticalf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.Output(2, "CRITICAL: "+msg)
	panic(msg)
}
