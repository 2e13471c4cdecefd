package scheduler

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/elba-lang/elba/internal/compiler"
	"github.com/elba-lang/elba/internal/ident"
)

// TestCase names one built test binary to run.
type TestCase struct {
	Package ident.PackageId
	Name    string
	BinDir  string // the build's bin/ directory containing the test binary
}

// TestResult is one test binary's exit outcome.
type TestResult struct {
	Case TestCase
	Err  error // non-nil (*compiler.ProcessError, typically) on non-zero exit
}

// RunTests executes each case through an optional runner command (e.g. a
// cross-platform emulator), using its own worker pool independent of the
// build scheduler's; the two share a "thread count" concept in name only.
func RunTests(ctx context.Context, cases []TestCase, runner *Runner, threads int) []TestResult {
	sem := make(chan struct{}, maxInt(threads, 1))
	results := make([]TestResult, len(cases))
	var wg sync.WaitGroup
	for i, c := range cases {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c TestCase) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = TestResult{Case: c, Err: runOne(ctx, c, runner)}
		}(i, c)
	}
	wg.Wait()
	return results
}

func runOne(ctx context.Context, c TestCase, runner *Runner) error {
	bin := filepath.Join(c.BinDir, c.Name)
	var cmd *compiler.Command
	if runner != nil && runner.Program != "" {
		cmd = compiler.New(runner.Program, append(append([]string(nil), runner.Args...), bin)...)
	} else {
		cmd = compiler.New(bin)
	}
	_, err := cmd.Run(ctx)
	return err
}
