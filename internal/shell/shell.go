// Package shell carries the ambient output streams used across the core:
// a plain *log.Logger pair rather than a structured logging framework.
// Always passed explicitly, never a package-level global.
package shell

import (
	"io"
	"log"
)

// Shell bundles the output streams and verbosity flag passed explicitly
// into the cache, solver, and scheduler.
type Shell struct {
	Out     *log.Logger
	Err     *log.Logger
	Verbose bool
}

// New builds a Shell writing to out/err through loggers with no prefix and
// no flags (log.Logger's zero-flag, prefix-less style used for trace output).
func New(out, err io.Writer, verbose bool) *Shell {
	return &Shell{
		Out:     log.New(out, "", 0),
		Err:     log.New(err, "", 0),
		Verbose: verbose,
	}
}

// Tracef writes a trace line to Out only when Verbose is set.
func (s *Shell) Tracef(format string, args ...interface{}) {
	if s == nil || !s.Verbose {
		return
	}
	s.Out.Printf(format, args...)
}

// Printf writes an informational line to Out.
func (s *Shell) Printf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Out.Printf(format, args...)
}

// Errorf writes an error line to Err.
func (s *Shell) Errorf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Err.Printf(format, args...)
}
