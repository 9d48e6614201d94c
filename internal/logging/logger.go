package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ColorMode controls ANSI color output
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Options configures a Logger. Nil writers default to os.Stdout / os.Stderr.
type Options struct {
	Out     io.Writer
	Err     io.Writer
	Color   ColorMode
	LogFile string
}

// Logger provides leveled, optionally colored logging with an optional file sink.
// Errors go to the error writer, everything else to the output writer.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	err    io.Writer
	file   *os.File
	now    func() time.Time
	colors map[string]*color.Color
}

// New builds a Logger from opts. Call Close when LogFile was set.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		out: opts.Out,
		err: opts.Err,
		now: time.Now,
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if l.err == nil {
		l.err = os.Stderr
	}

	enable := false
	switch opts.Color {
	case ColorAlways:
		enable = true
	case ColorAuto, "":
		enable = isTerminal(l.out) && os.Getenv("NO_COLOR") == "" && strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
	l.colors = map[string]*color.Color{
		"INFO":    color.New(color.FgHiBlue, color.Bold),
		"SUCCESS": color.New(color.FgHiGreen, color.Bold),
		"WARN":    color.New(color.FgHiYellow, color.Bold),
		"ERROR":   color.New(color.FgHiRed, color.Bold),
		"DEBUG":   color.New(color.FgHiCyan, color.Bold),
	}
	for _, c := range l.colors {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
	}
	return l, nil
}

// Discard returns a Logger that drops every line.
func Discard() *Logger {
	l, _ := New(Options{Out: io.Discard, Err: io.Discard, Color: ColorNever})
	return l
}

// IsTerminal reports whether w is a character device attached to a terminal.
func IsTerminal(w io.Writer) bool {
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, text string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.out
	if level == "ERROR" {
		out = l.err
	}
	tag := l.colors[level].Sprint("[" + level + "]")
	_, _ = io.WriteString(out, ts+" "+tag+" "+text+"\n")
	if l.file != nil {
		_, _ = io.WriteString(l.file, ts+" ["+level+"] "+text+"\n")
	}
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level.
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", fmt.Sprintf(format, args...))
}

// Error logs at ERROR level to the error writer.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level only when verbose is set.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.line("DEBUG", fmt.Sprintf(format, args...))
}
